package tests

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/subaruffles/backend/app/dto"
	"github.com/subaruffles/backend/app/services"
	businessflow "github.com/subaruffles/backend/business_flow"
	"github.com/subaruffles/backend/models"
	"github.com/subaruffles/backend/repository"
	testingutil "github.com/subaruffles/backend/testing"
	"github.com/subaruffles/backend/utils"
)

// recordingRelay captures relay calls and can be told to fail
type recordingRelay struct {
	calls []string
	fail  bool
}

func (r *recordingRelay) RelayProof(ctx context.Context, receiptID, raffleTitle string, numbers []int, doc services.ProofDocument) error {
	if r.fail {
		return errors.New("upstream unreachable")
	}
	r.calls = append(r.calls, receiptID)
	return nil
}

func newReceiptFlow(testDB *testingutil.TestDB, relay services.ProofRelay) businessflow.ReceiptFlow {
	return businessflow.NewReceiptFlow(
		repository.NewReceiptRepository(testDB.DB),
		repository.NewSelectionRepository(testDB.DB),
		repository.NewRaffleRepository(testDB.DB),
		repository.NewAuditLogRepository(testDB.DB),
		relay,
		testDB.DB,
	)
}

func proofDoc() services.ProofDocument {
	return services.ProofDocument{
		FileName:    "proof.jpg",
		ContentType: "image/jpeg",
		Data:        []byte("fake image bytes"),
	}
}

func TestGetReceipt(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow := newReceiptFlow(testDB, services.NoopProofRelay{})
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		t.Run("Found", func(t *testing.T) {
			raffle, err := fixtures.CreateTestRaffle(100)
			require.NoError(t, err)
			receipt, err := fixtures.CreateTestReceipt(raffle, []int{3, 4})
			require.NoError(t, err)

			resp, err := flow.GetReceipt(ctx, receipt.ReceiptID)
			require.NoError(t, err)
			assert.Equal(t, receipt.ReceiptID, resp.ReceiptID)
			assert.Equal(t, raffle.Title, resp.RaffleTitle)
			assert.Len(t, resp.Numbers, 2)
			assert.NotEmpty(t, resp.History)

			// Payment instructions attached while awaiting payment
			require.NotNil(t, resp.Payment)
			assert.Equal(t, raffle.PixKey, resp.Payment.PixKey)
		})

		t.Run("NoPaymentInfoAfterUpload", func(t *testing.T) {
			raffle, err := fixtures.CreateTestRaffle(100)
			require.NoError(t, err)
			receipt, err := fixtures.CreateTestReceipt(raffle, []int{10})
			require.NoError(t, err)

			_, err = flow.UploadProof(ctx, receipt.ReceiptID, proofDoc(), nil)
			require.NoError(t, err)

			resp, err := flow.GetReceipt(ctx, receipt.ReceiptID)
			require.NoError(t, err)
			assert.Equal(t, string(models.ReceiptStatusReceiptUploaded), resp.Status)
			assert.Nil(t, resp.Payment)
		})

		t.Run("NotFound", func(t *testing.T) {
			_, err := flow.GetReceipt(ctx, "NOSUCHRECEIPT")
			require.Error(t, err)
			assert.True(t, businessflow.IsReceiptNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestUploadProof(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test-agent")

		t.Run("MovesReceiptToUploaded", func(t *testing.T) {
			relay := &recordingRelay{}
			flow := newReceiptFlow(testDB, relay)

			raffle, err := fixtures.CreateTestRaffle(100)
			require.NoError(t, err)
			receipt, err := fixtures.CreateTestReceipt(raffle, []int{20})
			require.NoError(t, err)

			resp, err := flow.UploadProof(ctx, receipt.ReceiptID, proofDoc(), metadata)
			require.NoError(t, err)
			assert.Equal(t, string(models.ReceiptStatusReceiptUploaded), resp.Status)
			assert.Equal(t, []string{receipt.ReceiptID}, relay.calls)

			var loaded models.Receipt
			require.NoError(t, testDB.DB.Where("receipt_id = ?", receipt.ReceiptID).First(&loaded).Error)
			assert.Equal(t, models.ReceiptStatusReceiptUploaded, loaded.Status)
			assert.Len(t, loaded.History, 2)
		})

		t.Run("RelayFailureLeavesReceiptUntouched", func(t *testing.T) {
			relay := &recordingRelay{fail: true}
			flow := newReceiptFlow(testDB, relay)

			raffle, err := fixtures.CreateTestRaffle(100)
			require.NoError(t, err)
			receipt, err := fixtures.CreateTestReceipt(raffle, []int{21})
			require.NoError(t, err)

			_, err = flow.UploadProof(ctx, receipt.ReceiptID, proofDoc(), metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsRelayUnavailable(err))

			var loaded models.Receipt
			require.NoError(t, testDB.DB.Where("receipt_id = ?", receipt.ReceiptID).First(&loaded).Error)
			assert.Equal(t, models.ReceiptStatusWaitingPayment, loaded.Status)
			assert.Len(t, loaded.History, 1)
		})

		t.Run("TerminalReceiptNeverHitsRelay", func(t *testing.T) {
			relay := &recordingRelay{}
			flow := newReceiptFlow(testDB, relay)

			raffle, err := fixtures.CreateTestRaffle(100)
			require.NoError(t, err)
			receipt, err := fixtures.CreateTestReceipt(raffle, []int{22})
			require.NoError(t, err)

			require.NoError(t, testDB.DB.Model(&models.Receipt{}).
				Where("receipt_id = ?", receipt.ReceiptID).
				Update("status", models.ReceiptStatusPaid).Error)

			_, err = flow.UploadProof(ctx, receipt.ReceiptID, proofDoc(), metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsInvalidStatusTransition(err))
			assert.Empty(t, relay.calls)
		})

		t.Run("ExpiredReceiptRejected", func(t *testing.T) {
			relay := &recordingRelay{}
			flow := newReceiptFlow(testDB, relay)

			raffle, err := fixtures.CreateTestRaffle(100)
			require.NoError(t, err)
			receipt, err := fixtures.CreateOverdueReceipt(raffle, []int{23})
			require.NoError(t, err)

			_, err = flow.UploadProof(ctx, receipt.ReceiptID, proofDoc(), metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsReceiptExpired(err))
			assert.Empty(t, relay.calls)
		})

		t.Run("EmptyFileRejected", func(t *testing.T) {
			flow := newReceiptFlow(testDB, services.NoopProofRelay{})

			_, err := flow.UploadProof(ctx, "ANYRECEIPT", services.ProofDocument{FileName: "x"}, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsProofFileRequired(err))
		})

		t.Run("OversizedFileRejected", func(t *testing.T) {
			flow := newReceiptFlow(testDB, services.NoopProofRelay{})

			doc := services.ProofDocument{
				FileName: "big.jpg",
				Data:     make([]byte, utils.MaxProofFileSize+1),
			}
			_, err := flow.UploadProof(ctx, "ANYRECEIPT", doc, metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsProofFileTooLarge(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestUpdateReceiptStatus(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow := newReceiptFlow(testDB, services.NoopProofRelay{})
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()
		metadata := businessflow.NewClientMetadata("127.0.0.1", "test-agent")

		t.Run("MarkPaid", func(t *testing.T) {
			raffle, err := fixtures.CreateTestRaffle(100)
			require.NoError(t, err)
			receipt, err := fixtures.CreateTestReceipt(raffle, []int{30})
			require.NoError(t, err)

			resp, err := flow.UpdateStatus(ctx, &dto.UpdateReceiptStatusRequest{
				ReceiptID: receipt.ReceiptID,
				Status:    "paid",
			}, "operator", metadata)
			require.NoError(t, err)
			assert.Equal(t, string(models.ReceiptStatusPaid), resp.Status)
			assert.Zero(t, resp.ReleasedNumbers)

			var loaded models.Receipt
			require.NoError(t, testDB.DB.Where("receipt_id = ?", receipt.ReceiptID).First(&loaded).Error)
			assert.Equal(t, models.ReceiptStatusPaid, loaded.Status)
			require.NotNil(t, loaded.PaidAt)

			last := loaded.History[len(loaded.History)-1]
			require.NotNil(t, last.ChangedBy)
			assert.Equal(t, "operator", *last.ChangedBy)

			// Paid receipts keep their ledger entries
			var count int64
			require.NoError(t, testDB.DB.Model(&models.Selection{}).
				Where("receipt_id = ?", receipt.ReceiptID).Count(&count).Error)
			assert.Equal(t, int64(1), count)
		})

		t.Run("ExpireReleasesNumbers", func(t *testing.T) {
			raffle, err := fixtures.CreateTestRaffle(100)
			require.NoError(t, err)
			receipt, err := fixtures.CreateTestReceipt(raffle, []int{40, 41, 42})
			require.NoError(t, err)

			note := "buyer never paid"
			resp, err := flow.UpdateStatus(ctx, &dto.UpdateReceiptStatusRequest{
				ReceiptID: receipt.ReceiptID,
				Status:    "expired",
				Note:      &note,
			}, "operator", metadata)
			require.NoError(t, err)
			assert.Equal(t, string(models.ReceiptStatusExpired), resp.Status)
			assert.Equal(t, int64(3), resp.ReleasedNumbers)

			var count int64
			require.NoError(t, testDB.DB.Model(&models.Selection{}).
				Where("receipt_id = ?", receipt.ReceiptID).Count(&count).Error)
			assert.Zero(t, count)
		})

		t.Run("AdminCanRevive", func(t *testing.T) {
			raffle, err := fixtures.CreateTestRaffle(100)
			require.NoError(t, err)
			receipt, err := fixtures.CreateTestReceipt(raffle, []int{50})
			require.NoError(t, err)

			_, err = flow.UpdateStatus(ctx, &dto.UpdateReceiptStatusRequest{
				ReceiptID: receipt.ReceiptID,
				Status:    "paid",
			}, "operator", metadata)
			require.NoError(t, err)

			// Admin moves a paid receipt back; the transition table does not
			// apply but the history keeps both entries
			resp, err := flow.UpdateStatus(ctx, &dto.UpdateReceiptStatusRequest{
				ReceiptID: receipt.ReceiptID,
				Status:    "waiting_payment",
			}, "operator", metadata)
			require.NoError(t, err)
			assert.Equal(t, string(models.ReceiptStatusWaitingPayment), resp.Status)

			var loaded models.Receipt
			require.NoError(t, testDB.DB.Where("receipt_id = ?", receipt.ReceiptID).First(&loaded).Error)
			assert.Len(t, loaded.History, 3)
			assert.NotNil(t, loaded.PaidAt)
		})

		t.Run("UnknownStatus", func(t *testing.T) {
			_, err := flow.UpdateStatus(ctx, &dto.UpdateReceiptStatusRequest{
				ReceiptID: "ANYRECEIPT",
				Status:    "bogus",
			}, "operator", metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsInvalidStatusTransition(err))
		})

		t.Run("NotFound", func(t *testing.T) {
			_, err := flow.UpdateStatus(ctx, &dto.UpdateReceiptStatusRequest{
				ReceiptID: "NOSUCHRECEIPT",
				Status:    "paid",
			}, "operator", metadata)
			require.Error(t, err)
			assert.True(t, businessflow.IsReceiptNotFound(err))
		})

		return nil
	})
	require.NoError(t, err)
}

func TestListReceiptsByRaffle(t *testing.T) {
	err := testingutil.TestWithDB(func(testDB *testingutil.TestDB) error {
		flow := newReceiptFlow(testDB, services.NoopProofRelay{})
		fixtures := testingutil.NewTestFixtures(testDB)
		ctx := testingutil.CreateTestContext()

		raffle, err := fixtures.CreateTestRaffle(100)
		require.NoError(t, err)
		_, err = fixtures.CreateTestReceipt(raffle, []int{1})
		require.NoError(t, err)
		time.Sleep(10 * time.Millisecond)
		_, err = fixtures.CreateTestReceipt(raffle, []int{2})
		require.NoError(t, err)

		resp, err := flow.ListByRaffle(ctx, raffle.ID)
		require.NoError(t, err)
		assert.Len(t, resp.Receipts, 2)

		_, err = flow.ListByRaffle(ctx, 999999)
		require.Error(t, err)
		assert.True(t, businessflow.IsRaffleNotFound(err))

		return nil
	})
	require.NoError(t, err)
}
