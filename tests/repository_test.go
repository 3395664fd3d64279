// Package tests contains test cases for models and repository packages to avoid circular imports
package tests

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/subaruffles/backend/models"
	"github.com/subaruffles/backend/repository"
	testingutil "github.com/subaruffles/backend/testing"
	"github.com/subaruffles/backend/utils"
)

func TestRaffleRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewRaffleRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		t.Run("SaveAndByID", func(t *testing.T) {
			raffle, err := fixtures.CreateTestRaffle(200)
			require.NoError(t, err)

			loaded, err := repo.ByID(ctx, raffle.ID)
			require.NoError(t, err)
			require.NotNil(t, loaded)
			assert.Equal(t, raffle.Title, loaded.Title)
			assert.Equal(t, 200, loaded.TotalNumbers)
		})

		t.Run("ByIDNotFound", func(t *testing.T) {
			loaded, err := repo.ByID(ctx, 999999)
			require.NoError(t, err)
			assert.Nil(t, loaded)
		})

		t.Run("ListAll", func(t *testing.T) {
			raffles, err := repo.ListAll(ctx)
			require.NoError(t, err)
			assert.NotEmpty(t, raffles)
		})

		t.Run("Update", func(t *testing.T) {
			raffle, err := fixtures.CreateTestRaffle(100)
			require.NoError(t, err)

			raffle.Status = models.RaffleStatusWaiting
			raffle.Title = "Updated Title"
			require.NoError(t, repo.Update(ctx, raffle))

			loaded, err := repo.ByID(ctx, raffle.ID)
			require.NoError(t, err)
			require.NotNil(t, loaded)
			assert.Equal(t, models.RaffleStatusWaiting, loaded.Status)
			assert.Equal(t, "Updated Title", loaded.Title)
		})

		t.Run("Delete", func(t *testing.T) {
			raffle, err := fixtures.CreateTestRaffle(100)
			require.NoError(t, err)

			deleted, err := repo.Delete(ctx, raffle.ID)
			require.NoError(t, err)
			assert.True(t, deleted)

			loaded, err := repo.ByID(ctx, raffle.ID)
			require.NoError(t, err)
			assert.Nil(t, loaded)

			deleted, err = repo.Delete(ctx, raffle.ID)
			require.NoError(t, err)
			assert.False(t, deleted)
		})

		t.Run("ByFilterStatus", func(t *testing.T) {
			status := models.RaffleStatusWaiting
			raffles, err := repo.ByFilter(ctx, models.RaffleFilter{Status: &status}, "", 0, 0)
			require.NoError(t, err)
			for _, r := range raffles {
				assert.Equal(t, models.RaffleStatusWaiting, r.Status)
			}
		})

		return nil
	})
	require.NoError(t, err)
}

func TestSelectionRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewSelectionRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		buyer := testingutil.TestBuyer()

		newEntries := func(raffleID uint, receiptID string, numbers ...int) []*models.Selection {
			entries := make([]*models.Selection, 0, len(numbers))
			for _, n := range numbers {
				entries = append(entries, &models.Selection{
					RaffleID:   raffleID,
					ReceiptID:  receiptID,
					PageNumber: (n-1)/utils.NumbersPerPage + 1,
					Number:     n,
					Buyer:      buyer,
				})
			}
			return entries
		}

		t.Run("ClaimBatch", func(t *testing.T) {
			raffle, err := fixtures.CreateTestRaffle(200)
			require.NoError(t, err)

			err = repo.ClaimBatch(ctx, newEntries(raffle.ID, "RCPTAAAAAAAAA", 1, 2, 150))
			require.NoError(t, err)

			count, err := repo.CountByRaffle(ctx, raffle.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(3), count)
		})

		t.Run("ClaimBatchConflictWritesNothing", func(t *testing.T) {
			raffle, err := fixtures.CreateTestRaffle(200)
			require.NoError(t, err)

			require.NoError(t, repo.ClaimBatch(ctx, newEntries(raffle.ID, "RCPTBBBBBBBBB", 10)))

			// Second batch overlaps on 10; the whole insert must fail
			err = repo.ClaimBatch(ctx, newEntries(raffle.ID, "RCPTCCCCCCCCC", 9, 10, 11))
			require.Error(t, err)
			assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)

			count, err := repo.CountByRaffle(ctx, raffle.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(1), count)
		})

		t.Run("SameNumberDifferentRaffles", func(t *testing.T) {
			raffleA, err := fixtures.CreateTestRaffle(100)
			require.NoError(t, err)
			raffleB, err := fixtures.CreateTestRaffle(100)
			require.NoError(t, err)

			require.NoError(t, repo.ClaimBatch(ctx, newEntries(raffleA.ID, "RCPTDDDDDDDDD", 42)))
			require.NoError(t, repo.ClaimBatch(ctx, newEntries(raffleB.ID, "RCPTEEEEEEEEE", 42)))
		})

		t.Run("FirstClaimed", func(t *testing.T) {
			raffle, err := fixtures.CreateTestRaffle(200)
			require.NoError(t, err)

			require.NoError(t, repo.ClaimBatch(ctx, newEntries(raffle.ID, "RCPTFFFFFFFFF", 120)))

			claims := []models.ClaimedNumber{
				{Number: 20, PageNumber: 1},
				{Number: 120, PageNumber: 2},
			}
			taken, err := repo.FirstClaimed(ctx, raffle.ID, claims)
			require.NoError(t, err)
			require.NotNil(t, taken)
			assert.Equal(t, 120, taken.Number)
			assert.Equal(t, 2, taken.PageNumber)
		})

		t.Run("ListByRafflePage", func(t *testing.T) {
			raffle, err := fixtures.CreateTestRaffle(200)
			require.NoError(t, err)

			require.NoError(t, repo.ClaimBatch(ctx, newEntries(raffle.ID, "RCPTGGGGGGGGG", 3, 103)))

			pageOne, err := repo.ListByRafflePage(ctx, raffle.ID, 1)
			require.NoError(t, err)
			require.Len(t, pageOne, 1)
			assert.Equal(t, 3, pageOne[0].Number)

			pageTwo, err := repo.ListByRafflePage(ctx, raffle.ID, 2)
			require.NoError(t, err)
			require.Len(t, pageTwo, 1)
			assert.Equal(t, 103, pageTwo[0].Number)
		})

		t.Run("IsClaimed", func(t *testing.T) {
			raffle, err := fixtures.CreateTestRaffle(100)
			require.NoError(t, err)

			require.NoError(t, repo.ClaimBatch(ctx, newEntries(raffle.ID, "RCPTHHHHHHHHH", 55)))

			claimed, err := repo.IsClaimed(ctx, raffle.ID, 55, 1)
			require.NoError(t, err)
			assert.True(t, claimed)

			claimed, err = repo.IsClaimed(ctx, raffle.ID, 56, 1)
			require.NoError(t, err)
			assert.False(t, claimed)
		})

		t.Run("ReleaseByReceipt", func(t *testing.T) {
			raffle, err := fixtures.CreateTestRaffle(100)
			require.NoError(t, err)

			require.NoError(t, repo.ClaimBatch(ctx, newEntries(raffle.ID, "RCPTJJJJJJJJJ", 1, 2, 3)))

			released, err := repo.ReleaseByReceipt(ctx, "RCPTJJJJJJJJJ")
			require.NoError(t, err)
			assert.Equal(t, int64(3), released)

			// Numbers are claimable again
			require.NoError(t, repo.ClaimBatch(ctx, newEntries(raffle.ID, "RCPTKKKKKKKKK", 1, 2, 3)))
		})

		t.Run("ListByReceipt", func(t *testing.T) {
			raffle, err := fixtures.CreateTestRaffle(100)
			require.NoError(t, err)

			require.NoError(t, repo.ClaimBatch(ctx, newEntries(raffle.ID, "RCPTLLLLLLLLL", 8, 9)))

			selections, err := repo.ListByReceipt(ctx, "RCPTLLLLLLLLL")
			require.NoError(t, err)
			assert.Len(t, selections, 2)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestReceiptRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewReceiptRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		t.Run("ByReceiptID", func(t *testing.T) {
			raffle, err := fixtures.CreateTestRaffle(100)
			require.NoError(t, err)
			receipt, err := fixtures.CreateTestReceipt(raffle, []int{1})
			require.NoError(t, err)

			loaded, err := repo.ByReceiptID(ctx, receipt.ReceiptID)
			require.NoError(t, err)
			require.NotNil(t, loaded)
			assert.Equal(t, receipt.ReceiptID, loaded.ReceiptID)

			missing, err := repo.ByReceiptID(ctx, "NOSUCHRECEIPT")
			require.NoError(t, err)
			assert.Nil(t, missing)
		})

		t.Run("ReceiptIDExists", func(t *testing.T) {
			raffle, err := fixtures.CreateTestRaffle(100)
			require.NoError(t, err)
			receipt, err := fixtures.CreateTestReceipt(raffle, []int{2})
			require.NoError(t, err)

			exists, err := repo.ReceiptIDExists(ctx, receipt.ReceiptID)
			require.NoError(t, err)
			assert.True(t, exists)

			exists, err = repo.ReceiptIDExists(ctx, "NOSUCHRECEIPT")
			require.NoError(t, err)
			assert.False(t, exists)
		})

		t.Run("ListOverdue", func(t *testing.T) {
			raffle, err := fixtures.CreateTestRaffle(100)
			require.NoError(t, err)

			overdueReceipt, err := fixtures.CreateOverdueReceipt(raffle, []int{10})
			require.NoError(t, err)
			_, err = fixtures.CreateTestReceipt(raffle, []int{11})
			require.NoError(t, err)

			overdue, err := repo.ListOverdue(ctx, utils.UTCNow())
			require.NoError(t, err)

			ids := make([]string, 0, len(overdue))
			for _, r := range overdue {
				ids = append(ids, r.ReceiptID)
			}
			assert.Contains(t, ids, overdueReceipt.ReceiptID)
			assert.Len(t, overdue, 1)
		})

		t.Run("SaveTransition", func(t *testing.T) {
			raffle, err := fixtures.CreateTestRaffle(100)
			require.NoError(t, err)
			receipt, err := fixtures.CreateTestReceipt(raffle, []int{20})
			require.NoError(t, err)

			loaded, err := repo.ByReceiptID(ctx, receipt.ReceiptID)
			require.NoError(t, err)
			require.NotNil(t, loaded)

			next, err := models.NextReceipt(*loaded, models.ReceiptStatusPaid, nil, nil, utils.UTCNow(), true)
			require.NoError(t, err)
			require.NoError(t, repo.SaveTransition(ctx, &next))

			reloaded, err := repo.ByReceiptID(ctx, receipt.ReceiptID)
			require.NoError(t, err)
			require.NotNil(t, reloaded)
			assert.Equal(t, models.ReceiptStatusPaid, reloaded.Status)
			assert.NotNil(t, reloaded.PaidAt)
			assert.Len(t, reloaded.History, 2)
		})

		t.Run("ListExpiredBeforeAndDelete", func(t *testing.T) {
			require.NoError(t, testDB.ClearAllTables())

			raffle, err := fixtures.CreateTestRaffle(100)
			require.NoError(t, err)
			receipt, err := fixtures.CreateOverdueReceipt(raffle, []int{30})
			require.NoError(t, err)

			loaded, err := repo.ByReceiptID(ctx, receipt.ReceiptID)
			require.NoError(t, err)
			next, err := models.NextReceipt(*loaded, models.ReceiptStatusExpired, nil, nil, utils.UTCNow(), true)
			require.NoError(t, err)
			require.NoError(t, repo.SaveTransition(ctx, &next))

			// Deadline passed 10 minutes ago; a cutoff of now catches it
			ids, err := repo.ListExpiredBefore(ctx, utils.UTCNow())
			require.NoError(t, err)
			assert.Contains(t, ids, receipt.ReceiptID)

			// A cutoff before the deadline does not
			ids, err = repo.ListExpiredBefore(ctx, utils.UTCNowAdd(-time.Hour))
			require.NoError(t, err)
			assert.NotContains(t, ids, receipt.ReceiptID)

			deleted, err := repo.DeleteByReceiptIDs(ctx, []string{receipt.ReceiptID})
			require.NoError(t, err)
			assert.Equal(t, int64(1), deleted)

			gone, err := repo.ByReceiptID(ctx, receipt.ReceiptID)
			require.NoError(t, err)
			assert.Nil(t, gone)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestAdminRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewAdminRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		t.Run("AnyEmpty", func(t *testing.T) {
			any, err := repo.Any(ctx)
			require.NoError(t, err)
			assert.False(t, any)
		})

		t.Run("ByUsername", func(t *testing.T) {
			admin, err := fixtures.CreateTestAdmin("operator", "SuperSecret1!")
			require.NoError(t, err)

			loaded, err := repo.ByUsername(ctx, "operator")
			require.NoError(t, err)
			require.NotNil(t, loaded)
			assert.Equal(t, admin.ID, loaded.ID)

			missing, err := repo.ByUsername(ctx, "nobody")
			require.NoError(t, err)
			assert.Nil(t, missing)
		})

		t.Run("AnyAfterCreate", func(t *testing.T) {
			any, err := repo.Any(ctx)
			require.NoError(t, err)
			assert.True(t, any)
		})

		t.Run("UpdateLastLogin", func(t *testing.T) {
			admin, err := fixtures.CreateTestAdmin("operator2", "SuperSecret1!")
			require.NoError(t, err)
			require.Nil(t, admin.LastLoginAt)

			at := utils.UTCNow()
			require.NoError(t, repo.UpdateLastLogin(ctx, admin.ID, at))

			loaded, err := repo.ByID(ctx, admin.ID)
			require.NoError(t, err)
			require.NotNil(t, loaded)
			require.NotNil(t, loaded.LastLoginAt)
			assert.WithinDuration(t, at, *loaded.LastLoginAt, time.Second)
		})

		return nil
	})
	require.NoError(t, err)
}

func TestAuditLogRepository(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		repo := repository.NewAuditLogRepository(testDB.DB)
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		t.Run("SaveAndFilter", func(t *testing.T) {
			_, err := fixtures.CreateTestAuditLog(nil, models.AuditActionReservationMade, models.AuditResourceSelection, true)
			require.NoError(t, err)
			_, err = fixtures.CreateTestAuditLog(nil, models.AuditActionReceiptExpired, models.AuditResourceReceipt, true)
			require.NoError(t, err)
			_, err = fixtures.CreateTestAuditLog(nil, models.AuditActionLoginFailed, models.AuditResourceAdmin, false)
			require.NoError(t, err)

			action := models.AuditActionReceiptExpired
			logs, err := repo.ByFilter(ctx, models.AuditLogFilter{Action: &action}, "created_at DESC", 10, 0)
			require.NoError(t, err)
			require.Len(t, logs, 1)
			assert.Equal(t, models.AuditResourceReceipt, logs[0].Resource)

			failed := false
			logs, err = repo.ByFilter(ctx, models.AuditLogFilter{Success: &failed}, "", 0, 0)
			require.NoError(t, err)
			require.Len(t, logs, 1)
			assert.True(t, logs[0].IsFailed())
		})

		t.Run("DeleteBefore", func(t *testing.T) {
			entry, err := fixtures.CreateTestAuditLog(nil, models.AuditActionExport, models.AuditResourceRaffle, true)
			require.NoError(t, err)

			// Backdate the entry past the cutoff
			old := utils.UTCNowAdd(-48 * time.Hour)
			require.NoError(t, testDB.DB.Model(&models.AuditLog{}).
				Where("id = ?", entry.ID).
				Update("created_at", old).Error)

			deleted, err := repo.DeleteBefore(ctx, utils.UTCNowAdd(-24*time.Hour))
			require.NoError(t, err)
			assert.Equal(t, int64(1), deleted)

			total, err := repo.Count(ctx, models.AuditLogFilter{})
			require.NoError(t, err)
			assert.Equal(t, int64(3), total)
		})

		return nil
	})
	require.NoError(t, err)
}
