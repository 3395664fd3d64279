package services

import (
	"bytes"
	"fmt"

	"github.com/gocarina/gocsv"
	"github.com/subaruffles/backend/app/dto"
	"github.com/xuri/excelize/v2"
)

// Export format constants
const (
	ExportFormatCSV  = "csv"
	ExportFormatXLSX = "xlsx"
)

// ExportService renders raffle selections into downloadable files
type ExportService interface {
	Render(rows []dto.SelectionExportRow, format string) (data []byte, contentType, extension string, err error)
}

// ExportServiceImpl implements ExportService
type ExportServiceImpl struct{}

func NewExportService() ExportService {
	return &ExportServiceImpl{}
}

// Render produces the export file in the requested format. CSV is the
// default when format is empty.
func (s *ExportServiceImpl) Render(rows []dto.SelectionExportRow, format string) ([]byte, string, string, error) {
	switch format {
	case ExportFormatXLSX:
		data, err := s.renderXLSX(rows)
		if err != nil {
			return nil, "", "", err
		}
		return data, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", "xlsx", nil
	case ExportFormatCSV, "":
		data, err := s.renderCSV(rows)
		if err != nil {
			return nil, "", "", err
		}
		return data, "text/csv", "csv", nil
	default:
		return nil, "", "", fmt.Errorf("unsupported export format: %s", format)
	}
}

func (s *ExportServiceImpl) renderCSV(rows []dto.SelectionExportRow) ([]byte, error) {
	var buf bytes.Buffer
	if err := gocsv.Marshal(rows, &buf); err != nil {
		return nil, fmt.Errorf("failed to render csv: %w", err)
	}
	return buf.Bytes(), nil
}

func (s *ExportServiceImpl) renderXLSX(rows []dto.SelectionExportRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Selections"
	index, err := f.NewSheet(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"Number", "Page", "Receipt ID", "Status", "X", "Instagram", "Whatsapp", "Preferred", "Selected At"}
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return nil, err
		}
	}

	for i, row := range rows {
		values := []any{
			row.Number,
			row.PageNumber,
			row.ReceiptID,
			row.Status,
			row.XHandle,
			row.InstagramHandle,
			row.Whatsapp,
			row.PreferredContact,
			row.SelectedAt,
		}
		for j, v := range values {
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return nil, err
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}
