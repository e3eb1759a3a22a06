package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"

	"github.com/example/tesfa/internal/apperr"
	"github.com/example/tesfa/internal/middleware"
	"github.com/example/tesfa/internal/models"
	"github.com/example/tesfa/internal/services"
)

// PaymentHandler bundles dependencies for donation endpoints.
type PaymentHandler struct {
	payments *services.PaymentService
}

// NewPaymentHandler constructs a PaymentHandler.
func NewPaymentHandler(payments *services.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

type initializeRequest struct {
	Amount    decimal.Decimal `json:"amount"`
	Email     string          `json:"email"`
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
}

// Initialize registers a donation with the gateway and returns the
// checkout URL for the donor's browser.
func (h *PaymentHandler) Initialize(c *fiber.Ctx) error {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return apperr.Auth("no token provided")
	}

	var req initializeRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if req.Email == "" {
		req.Email = id.Email
	}

	result, err := h.payments.Initialize(id.UserID, req.Amount, req.Email, req.FirstName, req.LastName)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"checkoutUrl": result.CheckoutURL,
		"txRef":       result.TxRef,
	})
}

// Verify settles a donation against the gateway's verdict. A failed
// donation is not an API error: the response reports the ledger status
// either way.
func (h *PaymentHandler) Verify(c *fiber.Ctx) error {
	txRef := c.Params("tx_ref")
	if txRef == "" {
		return apperr.Validation("tx_ref is required")
	}

	result, err := h.payments.Verify(txRef)
	if err != nil {
		return err
	}

	if result.Status != models.PaymentCompleted {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"success": false,
			"message": "payment was not completed",
			"txRef":   result.TxRef,
			"status":  result.Status,
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "payment verified",
		"txRef":   result.TxRef,
		"status":  result.Status,
	})
}

// History returns the caller's donations and their completed total.
func (h *PaymentHandler) History(c *fiber.Ctx) error {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return apperr.Auth("no token provided")
	}

	payments, total, err := h.payments.History(id.UserID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":      true,
		"payments":     payments,
		"totalDonated": total,
	})
}

// AdminAll returns every payment joined with donor details.
func (h *PaymentHandler) AdminAll(c *fiber.Ctx) error {
	rows, err := h.payments.All()
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"payments": rows,
	})
}

// GetByTxRef returns a single payment by its transaction reference.
func (h *PaymentHandler) GetByTxRef(c *fiber.Ctx) error {
	payment, err := h.payments.GetByTxRef(c.Params("tx_ref"))
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"payment": payment,
	})
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateStatus manually overrides a payment's status.
func (h *PaymentHandler) UpdateStatus(c *fiber.Ctx) error {
	var req updateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}

	if err := h.payments.UpdateStatus(c.Params("tx_ref"), req.Status); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "payment status updated",
	})
}
