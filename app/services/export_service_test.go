package services

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/subaruffles/backend/app/dto"
	"github.com/xuri/excelize/v2"
)

func exportRows() []dto.SelectionExportRow {
	return []dto.SelectionExportRow{
		{Number: 42, PageNumber: 1, ReceiptID: "RCPTAAAAAAAAA", Status: "paid", XHandle: "@buyer", PreferredContact: "x", SelectedAt: "2026-08-30 12:00:00"},
		{Number: 150, PageNumber: 2, ReceiptID: "RCPTBBBBBBBBB", Status: "waiting_payment", Whatsapp: "+5511987654321", PreferredContact: "whatsapp", SelectedAt: "2026-08-30 12:05:00"},
	}
}

func TestExportService(t *testing.T) {
	svc := NewExportService()

	t.Run("CSV", func(t *testing.T) {
		data, contentType, ext, err := svc.Render(exportRows(), ExportFormatCSV)
		require.NoError(t, err)
		assert.Equal(t, "text/csv", contentType)
		assert.Equal(t, "csv", ext)

		body := string(data)
		assert.Contains(t, body, "number,page_number,receipt_id,status")
		assert.Contains(t, body, "RCPTAAAAAAAAA")
		assert.Contains(t, body, "+5511987654321")
	})

	t.Run("EmptyFormatDefaultsToCSV", func(t *testing.T) {
		_, contentType, ext, err := svc.Render(exportRows(), "")
		require.NoError(t, err)
		assert.Equal(t, "text/csv", contentType)
		assert.Equal(t, "csv", ext)
	})

	t.Run("XLSX", func(t *testing.T) {
		data, contentType, ext, err := svc.Render(exportRows(), ExportFormatXLSX)
		require.NoError(t, err)
		assert.Contains(t, contentType, "spreadsheet")
		assert.Equal(t, "xlsx", ext)

		f, err := excelize.OpenReader(bytes.NewReader(data))
		require.NoError(t, err)
		defer f.Close()

		rows, err := f.GetRows("Selections")
		require.NoError(t, err)
		require.Len(t, rows, 3)
		assert.Equal(t, "Number", rows[0][0])
		assert.Equal(t, "42", rows[1][0])
		assert.Equal(t, "RCPTBBBBBBBBB", rows[2][2])
	})

	t.Run("EmptyRows", func(t *testing.T) {
		data, _, _, err := svc.Render(nil, ExportFormatCSV)
		require.NoError(t, err)
		assert.Contains(t, string(data), "number")
	})

	t.Run("UnknownFormat", func(t *testing.T) {
		_, _, _, err := svc.Render(exportRows(), "pdf")
		assert.Error(t, err)
	})
}
