// Package scheduler
package scheduler

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"gorm.io/gorm"

	"github.com/subaruffles/backend/app/middleware"
	"github.com/subaruffles/backend/app/services"
	"github.com/subaruffles/backend/models"
	"github.com/subaruffles/backend/repository"
	"github.com/subaruffles/backend/utils"
)

// ExpirationScheduler periodically expires overdue receipts and releases
// their numbers back to the pool. It also runs a slower cleanup loop that
// purges old expired receipts and stale audit logs.
type ExpirationScheduler struct {
	receiptRepo   repository.ReceiptRepository
	selectionRepo repository.SelectionRepository
	auditRepo     repository.AuditLogRepository
	eventBus      services.EventBus
	logger        *log.Logger
	sweepInterval time.Duration
	cleanupEvery  time.Duration

	db *gorm.DB

	logFile *os.File
}

func NewExpirationScheduler(
	receiptRepo repository.ReceiptRepository,
	selectionRepo repository.SelectionRepository,
	auditRepo repository.AuditLogRepository,
	eventBus services.EventBus,
	db *gorm.DB,
	sweepInterval time.Duration,
	cleanupEvery time.Duration,
) *ExpirationScheduler {
	if sweepInterval <= 0 {
		sweepInterval = time.Minute
	}
	if cleanupEvery <= 0 {
		cleanupEvery = time.Hour
	}

	s := &ExpirationScheduler{
		receiptRepo:   receiptRepo,
		selectionRepo: selectionRepo,
		auditRepo:     auditRepo,
		eventBus:      eventBus,
		db:            db,
		sweepInterval: sweepInterval,
		cleanupEvery:  cleanupEvery,
	}

	if err := s.initSchedulerLogger(); err != nil {
		s.logger = log.Default()
		s.logger.Printf("scheduler: failed to initialize file logger: %v", err)
	}

	return s
}

// initSchedulerLogger configures a logger that writes to both stdout and a persistent file under data/ (or /data)
func (s *ExpirationScheduler) initSchedulerLogger() error {
	candidates := []string{
		filepath.Join("data"),
		"/data",
	}
	for _, dir := range candidates {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			continue
		}
		logPath := filepath.Join(dir, "scheduler.log")
		f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			continue
		}
		s.logFile = f
		mw := io.MultiWriter(os.Stdout, f)
		s.logger = log.New(mw, "scheduler ", log.LstdFlags|log.Lmicroseconds|log.LUTC)
		return nil
	}
	return fmt.Errorf("could not create scheduler log file in any candidate directory")
}

// Start launches the sweep and cleanup loops in background goroutines and
// returns a stop function.
func (s *ExpirationScheduler) Start(parent context.Context) func() {
	ctx, cancel := context.WithCancel(parent)

	go func() {
		ticker := time.NewTicker(s.sweepInterval)
		defer ticker.Stop()

		s.SweepOnce(ctx)

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.SweepOnce(ctx)
			}
		}
	}()

	go s.startCleanupWorker(ctx)

	return cancel
}

// SweepOnce expires every receipt whose payment window has closed. Each
// receipt is handled in its own transaction so one failure does not block
// the rest of the batch.
func (s *ExpirationScheduler) SweepOnce(ctx context.Context) {
	now := utils.UTCNow()

	overdue, err := s.receiptRepo.ListOverdue(ctx, now)
	if err != nil {
		s.logger.Printf("scheduler: list overdue receipts failed: %v", err)
		return
	}
	if len(overdue) == 0 {
		return
	}
	s.logger.Printf("scheduler: %d receipts overdue", len(overdue))

	for _, receipt := range overdue {
		released, err := s.expireReceipt(ctx, receipt, now)
		if err != nil {
			s.logger.Printf("scheduler: expire receipt id=%s failed: %v", receipt.ReceiptID, err)
			continue
		}
		s.logger.Printf("scheduler: receipt id=%s expired, released %d numbers", receipt.ReceiptID, released)

		middleware.RecordExpiration(released)
		if s.eventBus != nil {
			s.eventBus.Publish(ctx, services.EventReceiptExpired, services.ReceiptExpiredEvent{
				RaffleID:  receipt.RaffleID,
				ReceiptID: receipt.ReceiptID,
				Released:  released,
				ExpiredAt: now,
			})
		}
	}
}

func (s *ExpirationScheduler) expireReceipt(ctx context.Context, receipt *models.Receipt, now time.Time) (int64, error) {
	actor := models.ActorSystem
	note := "automatic timeout"

	next, err := models.NextReceipt(*receipt, models.ReceiptStatusExpired, &actor, &note, now, true)
	if err != nil {
		// Already terminal, nothing to do. ListOverdue racing with an
		// admin status change can surface this.
		return 0, nil
	}

	var released int64
	err = repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
		if err := s.receiptRepo.SaveTransition(txCtx, &next); err != nil {
			return err
		}
		var err error
		released, err = s.selectionRepo.ReleaseByReceipt(txCtx, receipt.ReceiptID)
		return err
	})
	if err != nil {
		return 0, err
	}

	s.auditExpiration(ctx, receipt, released)
	return released, nil
}

func (s *ExpirationScheduler) auditExpiration(ctx context.Context, receipt *models.Receipt, released int64) {
	description := fmt.Sprintf("Receipt %s expired, %d numbers released", receipt.ReceiptID, released)
	auditLog := &models.AuditLog{
		Action:      models.AuditActionReceiptExpired,
		Resource:    "receipt",
		ResourceID:  utils.ToPtr(receipt.ReceiptID),
		Description: utils.ToPtr(description),
		Success:     utils.ToPtr(true),
		CreatedAt:   utils.UTCNow(),
	}
	if err := s.auditRepo.Save(ctx, auditLog); err != nil {
		s.logger.Printf("scheduler: audit log for receipt id=%s failed: %v", receipt.ReceiptID, err)
	}
}

// startCleanupWorker purges old expired receipts, orphaned selections and
// stale audit logs on a slow cadence.
func (s *ExpirationScheduler) startCleanupWorker(ctx context.Context) {
	ticker := time.NewTicker(s.cleanupEvery)
	defer ticker.Stop()

	s.CleanupOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.CleanupOnce(ctx)
		}
	}
}

// CleanupOnce removes expired receipts past their retention window along
// with any selections left pointing at deleted receipts, then prunes old
// audit logs.
func (s *ExpirationScheduler) CleanupOnce(ctx context.Context) {
	now := utils.UTCNow()

	receiptIDs, err := s.receiptRepo.ListExpiredBefore(ctx, now.Add(-utils.ExpiredReceiptRetention))
	if err != nil {
		s.logger.Printf("scheduler: list purgeable receipts failed: %v", err)
	} else if len(receiptIDs) > 0 {
		err := repository.WithTransaction(ctx, s.db, func(txCtx context.Context) error {
			deleted, err := s.receiptRepo.DeleteByReceiptIDs(txCtx, receiptIDs)
			if err != nil {
				return err
			}
			orphans, err := s.selectionRepo.DeleteOrphaned(txCtx)
			if err != nil {
				return err
			}
			s.logger.Printf("scheduler: purged %d expired receipts, %d orphaned selections", deleted, orphans)
			return nil
		})
		if err != nil {
			s.logger.Printf("scheduler: purge expired receipts failed: %v", err)
		}
	}

	pruned, err := s.auditRepo.DeleteBefore(ctx, now.Add(-utils.AuditLogRetention))
	if err != nil {
		s.logger.Printf("scheduler: prune audit logs failed: %v", err)
	} else if pruned > 0 {
		s.logger.Printf("scheduler: pruned %d audit logs", pruned)
	}
}
