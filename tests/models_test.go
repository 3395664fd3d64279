// Package tests contains test cases for models and repository packages to avoid circular imports
package tests

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/subaruffles/backend/models"
	testingutil "github.com/subaruffles/backend/testing"
	"github.com/subaruffles/backend/utils"
)

func TestRafflePageMath(t *testing.T) {
	t.Run("TotalPages", func(t *testing.T) {
		cases := []struct {
			totalNumbers int
			want         int
		}{
			{100, 1},
			{101, 2},
			{200, 2},
			{250, 3},
			{1000, 10},
		}
		for _, tc := range cases {
			raffle := models.Raffle{TotalNumbers: tc.totalNumbers}
			assert.Equal(t, tc.want, raffle.TotalPages(), "total_numbers=%d", tc.totalNumbers)
		}
	})

	t.Run("PageBounds", func(t *testing.T) {
		raffle := models.Raffle{TotalNumbers: 250}

		start, end, err := raffle.PageBounds(1)
		require.NoError(t, err)
		assert.Equal(t, 1, start)
		assert.Equal(t, 100, end)

		start, end, err = raffle.PageBounds(2)
		require.NoError(t, err)
		assert.Equal(t, 101, start)
		assert.Equal(t, 200, end)

		// Last page is truncated to the raffle's total
		start, end, err = raffle.PageBounds(3)
		require.NoError(t, err)
		assert.Equal(t, 201, start)
		assert.Equal(t, 250, end)
	})

	t.Run("PageBoundsOutOfRange", func(t *testing.T) {
		raffle := models.Raffle{TotalNumbers: 250}

		_, _, err := raffle.PageBounds(0)
		assert.Error(t, err)

		_, _, err = raffle.PageBounds(4)
		assert.Error(t, err)
	})

	t.Run("ContainsNumber", func(t *testing.T) {
		raffle := models.Raffle{TotalNumbers: 100}
		assert.True(t, raffle.ContainsNumber(1))
		assert.True(t, raffle.ContainsNumber(100))
		assert.False(t, raffle.ContainsNumber(0))
		assert.False(t, raffle.ContainsNumber(101))
		assert.False(t, raffle.ContainsNumber(-5))
	})
}

func TestRaffleSellability(t *testing.T) {
	now := utils.UTCNow()

	t.Run("OpenAndBeforeEndDate", func(t *testing.T) {
		raffle := models.Raffle{Status: models.RaffleStatusOpen, EndDate: now.Add(time.Hour)}
		assert.True(t, raffle.IsSellable(now))
		assert.False(t, raffle.HasEnded(now))
	})

	t.Run("PastEndDate", func(t *testing.T) {
		raffle := models.Raffle{Status: models.RaffleStatusOpen, EndDate: now.Add(-time.Minute)}
		assert.True(t, raffle.HasEnded(now))
		assert.False(t, raffle.IsSellable(now))
	})

	t.Run("ExactlyAtEndDate", func(t *testing.T) {
		raffle := models.Raffle{Status: models.RaffleStatusOpen, EndDate: now}
		assert.True(t, raffle.HasEnded(now))
		assert.False(t, raffle.IsSellable(now))
	})

	t.Run("NotOpenStatus", func(t *testing.T) {
		for _, status := range []models.RaffleStatus{models.RaffleStatusWaiting, models.RaffleStatusClosed} {
			raffle := models.Raffle{Status: status, EndDate: now.Add(time.Hour)}
			assert.False(t, raffle.IsSellable(now), "status=%s", status)
		}
	})
}

func TestReceiptStatusMachine(t *testing.T) {
	t.Run("SystemTransitions", func(t *testing.T) {
		assert.True(t, models.CanTransition(models.ReceiptStatusWaitingPayment, models.ReceiptStatusReceiptUploaded))
		assert.True(t, models.CanTransition(models.ReceiptStatusWaitingPayment, models.ReceiptStatusPaid))
		assert.True(t, models.CanTransition(models.ReceiptStatusWaitingPayment, models.ReceiptStatusExpired))
		assert.True(t, models.CanTransition(models.ReceiptStatusReceiptUploaded, models.ReceiptStatusPaid))
		assert.True(t, models.CanTransition(models.ReceiptStatusReceiptUploaded, models.ReceiptStatusExpired))

		// No backward moves
		assert.False(t, models.CanTransition(models.ReceiptStatusReceiptUploaded, models.ReceiptStatusWaitingPayment))

		// Terminal states do not transition
		assert.False(t, models.CanTransition(models.ReceiptStatusPaid, models.ReceiptStatusExpired))
		assert.False(t, models.CanTransition(models.ReceiptStatusExpired, models.ReceiptStatusPaid))
	})

	t.Run("Terminal", func(t *testing.T) {
		assert.False(t, models.ReceiptStatusWaitingPayment.Terminal())
		assert.False(t, models.ReceiptStatusReceiptUploaded.Terminal())
		assert.True(t, models.ReceiptStatusPaid.Terminal())
		assert.True(t, models.ReceiptStatusExpired.Terminal())
	})

	t.Run("NextReceiptAppendsHistory", func(t *testing.T) {
		now := utils.UTCNow()
		receipt := models.Receipt{
			ReceiptID: "TESTRECEIPT",
			Status:    models.ReceiptStatusWaitingPayment,
			History:   models.StatusHistory{{Status: models.ReceiptStatusWaitingPayment, ChangedAt: now}},
		}

		next, err := models.NextReceipt(receipt, models.ReceiptStatusReceiptUploaded, nil, nil, now.Add(time.Minute), true)
		require.NoError(t, err)
		assert.Equal(t, models.ReceiptStatusReceiptUploaded, next.Status)
		require.Len(t, next.History, 2)
		assert.Equal(t, models.ReceiptStatusReceiptUploaded, next.History[1].Status)

		// The input receipt is untouched
		assert.Equal(t, models.ReceiptStatusWaitingPayment, receipt.Status)
		assert.Len(t, receipt.History, 1)
	})

	t.Run("NextReceiptRejectsEnforcedInvalidTransition", func(t *testing.T) {
		receipt := models.Receipt{Status: models.ReceiptStatusPaid}

		_, err := models.NextReceipt(receipt, models.ReceiptStatusExpired, nil, nil, utils.UTCNow(), true)
		require.Error(t, err)

		var invalid *models.InvalidTransitionError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, models.ReceiptStatusPaid, invalid.From)
		assert.Equal(t, models.ReceiptStatusExpired, invalid.To)
	})

	t.Run("AdminBypassesTransitionTable", func(t *testing.T) {
		changedBy := "admin"
		note := "manual correction"
		receipt := models.Receipt{Status: models.ReceiptStatusPaid}

		next, err := models.NextReceipt(receipt, models.ReceiptStatusWaitingPayment, &changedBy, &note, utils.UTCNow(), false)
		require.NoError(t, err)
		assert.Equal(t, models.ReceiptStatusWaitingPayment, next.Status)
		require.NotEmpty(t, next.History)
		last := next.History[len(next.History)-1]
		require.NotNil(t, last.ChangedBy)
		assert.Equal(t, "admin", *last.ChangedBy)
		require.NotNil(t, last.Note)
		assert.Equal(t, "manual correction", *last.Note)
	})

	t.Run("PaidAtSetOnceNeverReset", func(t *testing.T) {
		now := utils.UTCNow()
		receipt := models.Receipt{Status: models.ReceiptStatusWaitingPayment}

		paid, err := models.NextReceipt(receipt, models.ReceiptStatusPaid, nil, nil, now, true)
		require.NoError(t, err)
		require.NotNil(t, paid.PaidAt)
		assert.Equal(t, now, *paid.PaidAt)

		// Admin moves it back and forward again; the original PaidAt survives
		back, err := models.NextReceipt(paid, models.ReceiptStatusWaitingPayment, nil, nil, now.Add(time.Minute), false)
		require.NoError(t, err)
		require.NotNil(t, back.PaidAt)

		again, err := models.NextReceipt(back, models.ReceiptStatusPaid, nil, nil, now.Add(2*time.Minute), true)
		require.NoError(t, err)
		require.NotNil(t, again.PaidAt)
		assert.Equal(t, now, *again.PaidAt)
	})

	t.Run("UnknownStatusRejected", func(t *testing.T) {
		receipt := models.Receipt{Status: models.ReceiptStatusWaitingPayment}
		_, err := models.NextReceipt(receipt, models.ReceiptStatus("bogus"), nil, nil, utils.UTCNow(), false)
		assert.Error(t, err)
	})
}

func TestReceiptOverdue(t *testing.T) {
	now := utils.UTCNow()

	t.Run("PastDeadlineNonTerminal", func(t *testing.T) {
		receipt := models.Receipt{Status: models.ReceiptStatusWaitingPayment, ExpiresAt: now.Add(-time.Minute)}
		assert.True(t, receipt.IsOverdue(now))
	})

	t.Run("BeforeDeadline", func(t *testing.T) {
		receipt := models.Receipt{Status: models.ReceiptStatusWaitingPayment, ExpiresAt: now.Add(time.Minute)}
		assert.False(t, receipt.IsOverdue(now))
	})

	t.Run("TerminalNeverOverdue", func(t *testing.T) {
		receipt := models.Receipt{Status: models.ReceiptStatusPaid, ExpiresAt: now.Add(-time.Hour)}
		assert.False(t, receipt.IsOverdue(now))

		receipt.Status = models.ReceiptStatusExpired
		assert.False(t, receipt.IsOverdue(now))
	})
}

func TestBuyerContact(t *testing.T) {
	t.Run("HasAnyChannel", func(t *testing.T) {
		assert.False(t, models.BuyerContact{}.HasAnyChannel())
		assert.True(t, models.BuyerContact{XHandle: "@x"}.HasAnyChannel())
		assert.True(t, models.BuyerContact{InstagramHandle: "@ig"}.HasAnyChannel())
		assert.True(t, models.BuyerContact{Whatsapp: "+5511999999999"}.HasAnyChannel())
	})
}

func TestModelPersistence(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)

		t.Run("RaffleDefaults", func(t *testing.T) {
			raffle := &models.Raffle{
				Title:        "Persistence Raffle",
				Description:  "desc",
				EndDate:      utils.UTCNowAdd(24 * time.Hour),
				TotalNumbers: 100,
				Price:        5,
			}
			require.NoError(t, testDB.DB.Create(raffle).Error)

			var loaded models.Raffle
			require.NoError(t, testDB.DB.First(&loaded, raffle.ID).Error)
			assert.Equal(t, models.RaffleStatusOpen, loaded.Status)
			assert.Equal(t, utils.DefaultExpirationMinutes, loaded.ExpirationMinutes)
		})

		t.Run("ReceiptJSONBRoundTrip", func(t *testing.T) {
			raffle, err := fixtures.CreateTestRaffle(200)
			require.NoError(t, err)

			receipt, err := fixtures.CreateTestReceipt(raffle, []int{5, 105})
			require.NoError(t, err)

			var loaded models.Receipt
			require.NoError(t, testDB.DB.Where("receipt_id = ?", receipt.ReceiptID).First(&loaded).Error)

			require.Len(t, loaded.Numbers, 2)
			assert.Equal(t, 5, loaded.Numbers[0].Number)
			assert.Equal(t, 1, loaded.Numbers[0].PageNumber)
			assert.Equal(t, 105, loaded.Numbers[1].Number)
			assert.Equal(t, 2, loaded.Numbers[1].PageNumber)

			assert.Equal(t, "@testbuyer", loaded.Buyer.XHandle)

			// BeforeCreate seeds the first history entry
			require.NotEmpty(t, loaded.History)
			assert.Equal(t, models.ReceiptStatusWaitingPayment, loaded.History[0].Status)
		})

		t.Run("SelectionUniqueIndex", func(t *testing.T) {
			raffle, err := fixtures.CreateTestRaffle(100)
			require.NoError(t, err)

			first := &models.Selection{
				RaffleID:   raffle.ID,
				ReceiptID:  "RECEIPTAAAAAA",
				PageNumber: 1,
				Number:     7,
				Buyer:      testingutil.TestBuyer(),
			}
			require.NoError(t, testDB.DB.Create(first).Error)

			dup := &models.Selection{
				RaffleID:   raffle.ID,
				ReceiptID:  "RECEIPTBBBBBB",
				PageNumber: 1,
				Number:     7,
				Buyer:      testingutil.TestBuyer(),
			}
			err = testDB.DB.Create(dup).Error
			require.Error(t, err)
			assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
		})

		return nil
	})
	require.NoError(t, err)
}
