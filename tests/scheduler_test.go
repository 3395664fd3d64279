package tests

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subaruffles/backend/app/scheduler"
	"github.com/subaruffles/backend/app/services"
	"github.com/subaruffles/backend/models"
	"github.com/subaruffles/backend/repository"
	testingutil "github.com/subaruffles/backend/testing"
	"github.com/subaruffles/backend/utils"
)

func newScheduler(testDB *testingutil.TestDB, bus services.EventBus) *scheduler.ExpirationScheduler {
	return scheduler.NewExpirationScheduler(
		repository.NewReceiptRepository(testDB.DB),
		repository.NewSelectionRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		bus,
		testDB.DB,
		time.Minute,
		time.Hour,
	)
}

func TestSweepOnce(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		bus := services.NewEventBus(nil, "")
		events := bus.Subscribe(services.EventReceiptExpired, 16)
		sched := newScheduler(testDB, bus)

		t.Run("ExpiresOverdueAndReleasesNumbers", func(t *testing.T) {
			raffle, err := fixtures.CreateTestRaffle(100)
			require.NoError(t, err)

			overdue, err := fixtures.CreateOverdueReceipt(raffle, []int{1, 2})
			require.NoError(t, err)
			fresh, err := fixtures.CreateTestReceipt(raffle, []int{3})
			require.NoError(t, err)

			sched.SweepOnce(ctx)

			var expired models.Receipt
			require.NoError(t, testDB.DB.Where("receipt_id = ?", overdue.ReceiptID).First(&expired).Error)
			assert.Equal(t, models.ReceiptStatusExpired, expired.Status)

			// History records the system actor
			last := expired.History[len(expired.History)-1]
			require.NotNil(t, last.ChangedBy)
			assert.Equal(t, models.ActorSystem, *last.ChangedBy)

			// Ledger entries are released, the fresh receipt keeps its own
			var count int64
			require.NoError(t, testDB.DB.Model(&models.Selection{}).
				Where("receipt_id = ?", overdue.ReceiptID).Count(&count).Error)
			assert.Zero(t, count)

			var untouched models.Receipt
			require.NoError(t, testDB.DB.Where("receipt_id = ?", fresh.ReceiptID).First(&untouched).Error)
			assert.Equal(t, models.ReceiptStatusWaitingPayment, untouched.Status)

			// An expiration event was published
			select {
			case payload := <-events:
				event, ok := payload.(services.ReceiptExpiredEvent)
				require.True(t, ok)
				assert.Equal(t, overdue.ReceiptID, event.ReceiptID)
				assert.Equal(t, int64(2), event.Released)
			default:
				t.Fatal("expected a receipt expired event")
			}

			// Audit trail entry exists
			var audit models.AuditLog
			require.NoError(t, testDB.DB.Where("action = ? AND resource_id = ?",
				models.AuditActionReceiptExpired, overdue.ReceiptID).First(&audit).Error)
		})

		t.Run("NumbersClaimableAfterExpiration", func(t *testing.T) {
			raffle, err := fixtures.CreateTestRaffle(100)
			require.NoError(t, err)

			_, err = fixtures.CreateOverdueReceipt(raffle, []int{10})
			require.NoError(t, err)

			sched.SweepOnce(ctx)

			selectionRepo := repository.NewSelectionRepository(testDB.DB)
			err = selectionRepo.ClaimBatch(ctx, []*models.Selection{{
				RaffleID:   raffle.ID,
				ReceiptID:  "RECLAIMED2345",
				PageNumber: 1,
				Number:     10,
				Buyer:      testingutil.TestBuyer(),
			}})
			require.NoError(t, err)
		})

		t.Run("SecondSweepIsNoop", func(t *testing.T) {
			raffle, err := fixtures.CreateTestRaffle(100)
			require.NoError(t, err)
			overdue, err := fixtures.CreateOverdueReceipt(raffle, []int{20})
			require.NoError(t, err)

			sched.SweepOnce(ctx)
			sched.SweepOnce(ctx)

			var expired models.Receipt
			require.NoError(t, testDB.DB.Where("receipt_id = ?", overdue.ReceiptID).First(&expired).Error)
			assert.Equal(t, models.ReceiptStatusExpired, expired.Status)

			// Exactly one expired entry in the history
			transitions := 0
			for _, h := range expired.History {
				if h.Status == models.ReceiptStatusExpired {
					transitions++
				}
			}
			assert.Equal(t, 1, transitions)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestCleanupOnce(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()
		sched := newScheduler(testDB, services.NewEventBus(nil, ""))

		raffle, err := fixtures.CreateTestRaffle(100)
		require.NoError(t, err)

		// An expired receipt far past the retention window
		old, err := fixtures.CreateOverdueReceipt(raffle, []int{1})
		require.NoError(t, err)
		require.NoError(t, testDB.DB.Model(&models.Receipt{}).
			Where("receipt_id = ?", old.ReceiptID).
			Updates(map[string]any{
				"status":     models.ReceiptStatusExpired,
				"expires_at": utils.UTCNowAdd(-utils.ExpiredReceiptRetention - time.Hour),
			}).Error)

		// A recently expired receipt inside the retention window
		recent, err := fixtures.CreateOverdueReceipt(raffle, []int{2})
		require.NoError(t, err)
		require.NoError(t, testDB.DB.Model(&models.Receipt{}).
			Where("receipt_id = ?", recent.ReceiptID).
			Update("status", models.ReceiptStatusExpired).Error)

		// A stale audit log past its retention
		entry, err := fixtures.CreateTestAuditLog(nil, models.AuditActionExport, models.AuditResourceRaffle, true)
		require.NoError(t, err)
		require.NoError(t, testDB.DB.Model(&models.AuditLog{}).
			Where("id = ?", entry.ID).
			Update("created_at", utils.UTCNowAdd(-utils.AuditLogRetention-time.Hour)).Error)

		sched.CleanupOnce(ctx)

		var gone int64
		require.NoError(t, testDB.DB.Model(&models.Receipt{}).
			Where("receipt_id = ?", old.ReceiptID).Count(&gone).Error)
		assert.Zero(t, gone)

		// Its selections are purged as orphans
		var orphans int64
		require.NoError(t, testDB.DB.Model(&models.Selection{}).
			Where("receipt_id = ?", old.ReceiptID).Count(&orphans).Error)
		assert.Zero(t, orphans)

		var kept int64
		require.NoError(t, testDB.DB.Model(&models.Receipt{}).
			Where("receipt_id = ?", recent.ReceiptID).Count(&kept).Error)
		assert.Equal(t, int64(1), kept)

		var logs int64
		require.NoError(t, testDB.DB.Model(&models.AuditLog{}).
			Where("id = ?", entry.ID).Count(&logs).Error)
		assert.Zero(t, logs)

		return nil
	})
	require.NoError(t, err)
}
