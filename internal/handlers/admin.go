package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/example/tesfa/internal/apperr"
	"github.com/example/tesfa/internal/models"
	"github.com/example/tesfa/internal/services"
	"github.com/example/tesfa/internal/utils"
)

// AdminHandler bundles dependencies for the administrative endpoints.
type AdminHandler struct {
	users *services.UserService
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(users *services.UserService) *AdminHandler {
	return &AdminHandler{users: users}
}

// DashboardStats returns the aggregate counters for the admin dashboard.
func (h *AdminHandler) DashboardStats(c *fiber.Ctx) error {
	stats, err := h.users.DashboardStats(c.Context())
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"stats":   stats,
	})
}

// ListUsers returns a page of user accounts.
func (h *AdminHandler) ListUsers(c *fiber.Ctx) error {
	pg := utils.ParsePagination(c)

	users, total, err := h.users.List(pg)
	if err != nil {
		return err
	}

	items := make([]fiber.Map, 0, len(users))
	for i := range users {
		items = append(items, userResponse(&users[i]))
	}

	return c.JSON(fiber.Map{
		"success": true,
		"users":   items,
		"total":   total,
		"page":    pg.Page,
		"limit":   pg.Limit,
	})
}

// GetUser returns a single user account.
func (h *AdminHandler) GetUser(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.Validation("invalid user id")
	}

	user, err := h.users.Get(id)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    userResponse(user),
	})
}

// adminUpdateUserRequest extends the profile update with the fields only
// administrators may touch.
type adminUpdateUserRequest struct {
	updateProfileRequest
	RoleID         *uint            `json:"roleId"`
	DonationAmount *decimal.Decimal `json:"donationAmount"`
}

// UpdateUser applies changes to any user account, including role and
// recorded donation total.
func (h *AdminHandler) UpdateUser(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.Validation("invalid user id")
	}

	var req adminUpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if req.Email != nil && !emailPattern.MatchString(strings.TrimSpace(*req.Email)) {
		return apperr.Validation("invalid email address")
	}
	if req.Password != nil && len(*req.Password) < 6 {
		return apperr.Validation("password must be at least 6 characters")
	}
	if req.RoleID != nil && *req.RoleID != models.RoleAdmin && *req.RoleID != models.RoleDonor {
		return apperr.Validation("unknown role")
	}

	changes := req.changes()
	if req.RoleID != nil {
		changes["role_id"] = *req.RoleID
	}
	if req.DonationAmount != nil {
		changes["donation_amount"] = *req.DonationAmount
	}

	password := ""
	if req.Password != nil {
		password = *req.Password
	}

	user, err := h.users.Update(id, changes, password)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    userResponse(user),
	})
}

// DeleteUser removes a user account along with their payments.
func (h *AdminHandler) DeleteUser(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return apperr.Validation("invalid user id")
	}

	if err := h.users.Delete(id); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "user deleted",
	})
}
