package services

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/example/tesfa/internal/apperr"
	"github.com/example/tesfa/internal/models"
	"github.com/example/tesfa/internal/utils"
)

// PaymentService drives a donation from initialization to settlement,
// keeping the local ledger consistent with the gateway's view of the
// transaction.
type PaymentService struct {
	db       *gorm.DB
	gateway  Gateway
	telegram *TelegramService
	rdb      *redis.Client
}

// NewPaymentService constructs a PaymentService.
func NewPaymentService(db *gorm.DB, gateway Gateway, telegram *TelegramService, rdb *redis.Client) *PaymentService {
	return &PaymentService{db: db, gateway: gateway, telegram: telegram, rdb: rdb}
}

// InitializeResult is returned to the donor's browser for redirection.
type InitializeResult struct {
	CheckoutURL string `json:"checkoutUrl"`
	TxRef       string `json:"txRef"`
}

// Initialize mints a transaction reference, registers the payment with the
// gateway and records a pending ledger row under the same reference. The
// row is committed before the result is returned, so a verify call racing
// ahead of the browser redirect always finds it. A gateway failure leaves
// no ledger row behind.
func (s *PaymentService) Initialize(userID uuid.UUID, amount decimal.Decimal, email, firstName, lastName string) (*InitializeResult, error) {
	if amount.LessThanOrEqual(decimal.Zero) || email == "" || firstName == "" || lastName == "" {
		return nil, apperr.Validation("amount, email, first_name and last_name are required")
	}

	txRef, err := utils.NewTxRef()
	if err != nil {
		return nil, apperr.Internal("failed to generate transaction reference")
	}

	checkoutURL, err := s.gateway.CreateTransaction(CreateTransactionRequest{
		Amount:    amount,
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
		TxRef:     txRef,
	})
	if err != nil {
		return nil, err
	}

	payment := models.Payment{
		UserID: userID,
		Amount: amount,
		TxRef:  txRef,
		Status: models.PaymentPending,
	}
	if err := s.db.Create(&payment).Error; err != nil {
		logrus.WithError(err).WithField("tx_ref", txRef).Error("failed to record pending payment")
		return nil, apperr.Internal("failed to record payment")
	}

	logrus.WithFields(logrus.Fields{
		"tx_ref":  txRef,
		"user_id": userID,
		"amount":  amount.StringFixed(2),
	}).Info("payment initialized")

	return &InitializeResult{CheckoutURL: checkoutURL, TxRef: txRef}, nil
}

// SettlementResult reports the ledger state after a verification round.
type SettlementResult struct {
	TxRef   string          `json:"tx_ref"`
	Status  string          `json:"status"`
	Gateway json.RawMessage `json:"gateway,omitempty"`
}

// Verify queries the gateway for txRef and settles the matching ledger
// row. Safe to call repeatedly: the donor's browser, the redirect callback
// and a polling client may all hit it, and every call converges on the
// same terminal status.
func (s *PaymentService) Verify(txRef string) (*SettlementResult, error) {
	var payment models.Payment
	if err := s.db.Where("tx_ref = ?", txRef).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("payment not found")
		}
		return nil, apperr.Internal("failed to load payment")
	}

	result, err := s.gateway.VerifyTransaction(txRef)
	if err != nil {
		return nil, err
	}

	target := models.PaymentFailed
	if result.Success {
		target = models.PaymentCompleted
	}

	status, first, err := s.transition(txRef, target, result.Reference)
	if err != nil {
		// The gateway already settled; all we can do is log enough to
		// reconcile the ledger by hand.
		logrus.WithError(err).WithFields(logrus.Fields{
			"tx_ref":          txRef,
			"gateway_payload": string(result.Raw),
		}).Error("gateway settled but ledger update failed")
		return nil, apperr.Internal("failed to record settlement")
	}

	if first && status == models.PaymentCompleted {
		s.onSettled(&payment)
	}

	return &SettlementResult{TxRef: txRef, Status: status, Gateway: result.Raw}, nil
}

// UpdateStatus is the manual reconciliation override. The target must be
// one of the three known statuses; re-applying the current status is a
// no-op and terminal rows never move again.
func (s *PaymentService) UpdateStatus(txRef, status string) error {
	if !models.ValidPaymentStatus(status) {
		return apperr.Validation("status must be one of pending, completed or failed")
	}

	var payment models.Payment
	if err := s.db.Where("tx_ref = ?", txRef).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("payment not found")
		}
		return apperr.Internal("failed to load payment")
	}

	if payment.Status == status {
		return nil
	}
	if payment.Status != models.PaymentPending {
		return apperr.Validation("cannot change the status of a settled payment")
	}

	newStatus, first, err := s.transition(txRef, status, "")
	if err != nil {
		return apperr.Internal("failed to update payment status")
	}

	logrus.WithFields(logrus.Fields{
		"tx_ref": txRef,
		"status": newStatus,
	}).Info("payment status overridden")

	if first && newStatus == models.PaymentCompleted {
		s.onSettled(&payment)
	}

	return nil
}

// transition applies a pending -> terminal move. The guarded UPDATE is the
// only concurrency-safety mechanism: the first caller flips the row, later
// callers see zero affected rows and read back whatever terminal status
// already won. No locking is needed.
func (s *PaymentService) transition(txRef, target, gatewayRef string) (string, bool, error) {
	updates := map[string]any{"status": target}
	if gatewayRef != "" {
		updates["transaction_id"] = gatewayRef
	}

	res := s.db.Model(&models.Payment{}).
		Where("tx_ref = ? AND status = ?", txRef, models.PaymentPending).
		Updates(updates)
	if res.Error != nil {
		return "", false, res.Error
	}
	if res.RowsAffected > 0 {
		return target, true, nil
	}

	var current models.Payment
	if err := s.db.Where("tx_ref = ?", txRef).First(&current).Error; err != nil {
		return "", false, err
	}
	return current.Status, false, nil
}

// onSettled runs the bookkeeping for a first completed settlement: the
// donor's pending-payment flag is cleared, cached dashboard aggregates are
// dropped and the admin chat is notified. None of it may fail the verify.
func (s *PaymentService) onSettled(payment *models.Payment) {
	if err := s.db.Model(&models.User{}).
		Where("id = ? AND is_pending_payment = ?", payment.UserID, true).
		Update("is_pending_payment", false).Error; err != nil {
		logrus.WithError(err).WithField("user_id", payment.UserID).Warn("failed to clear pending-payment flag")
	}

	if err := utils.DeleteCache(context.Background(), s.rdb, dashboardStatsCacheKey); err != nil {
		logrus.WithError(err).Warn("failed to invalidate dashboard cache")
	}

	if s.telegram == nil {
		return
	}
	var donor models.User
	if err := s.db.First(&donor, "id = ?", payment.UserID).Error; err != nil {
		logrus.WithError(err).WithField("user_id", payment.UserID).Warn("failed to load donor for notification")
		return
	}
	if err := s.telegram.NotifyDonationSettled(DonationNotification{
		TxRef:     payment.TxRef,
		DonorName: donor.FirstName + " " + donor.LastName,
		Email:     donor.Email,
		Amount:    payment.Amount.StringFixed(2),
		Currency:  donationCurrency,
	}); err != nil {
		logrus.WithError(err).WithField("tx_ref", payment.TxRef).Warn("telegram notification failed")
	}
}

// GetByTxRef returns a single ledger row.
func (s *PaymentService) GetByTxRef(txRef string) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.Where("tx_ref = ?", txRef).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("payment not found")
		}
		return nil, apperr.Internal("failed to load payment")
	}
	return &payment, nil
}

// History returns a user's payments, newest first, along with the sum of
// their completed donations.
func (s *PaymentService) History(userID uuid.UUID) ([]models.Payment, decimal.Decimal, error) {
	var payments []models.Payment
	if err := s.db.Where("user_id = ?", userID).
		Order("created_at desc").
		Find(&payments).Error; err != nil {
		return nil, decimal.Zero, apperr.Internal("failed to load payment history")
	}

	var total decimal.Decimal
	if err := s.db.Model(&models.Payment{}).
		Where("user_id = ? AND status = ?", userID, models.PaymentCompleted).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&total).Error; err != nil {
		return nil, decimal.Zero, apperr.Internal("failed to total donations")
	}

	return payments, total, nil
}

// PaymentWithDonor is a ledger row joined with donor identity for
// administrative reporting.
type PaymentWithDonor struct {
	ID            uuid.UUID       `json:"id"`
	UserID        uuid.UUID       `json:"user_id"`
	Amount        decimal.Decimal `json:"amount"`
	TxRef         string          `json:"tx_ref"`
	TransactionID string          `json:"transaction_id,omitempty"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
	FirstName     string          `json:"first_name"`
	LastName      string          `json:"last_name"`
	Email         string          `json:"email"`
}

// All returns every payment joined with donor name and email, newest
// first.
func (s *PaymentService) All() ([]PaymentWithDonor, error) {
	rows := make([]PaymentWithDonor, 0)
	if err := s.db.Model(&models.Payment{}).
		Select("payments.id, payments.user_id, payments.amount, payments.tx_ref, payments.transaction_id, payments.status, payments.created_at, users.first_name, users.last_name, users.email").
		Joins("JOIN users ON users.id = payments.user_id").
		Order("payments.created_at desc").
		Scan(&rows).Error; err != nil {
		return nil, apperr.Internal("failed to load payments")
	}
	return rows, nil
}
