package handlers

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/tesfa/internal/apperr"
	"github.com/example/tesfa/internal/config"
	"github.com/example/tesfa/internal/models"
	"github.com/example/tesfa/internal/services"
	"github.com/example/tesfa/internal/utils"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// AuthHandler bundles dependencies for authentication endpoints.
type AuthHandler struct {
	cfg  *config.Config
	auth *services.AuthService
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(cfg *config.Config, auth *services.AuthService) *AuthHandler {
	return &AuthHandler{cfg: cfg, auth: auth}
}

type registerRequest struct {
	FirstName         string `json:"firstName" form:"firstName"`
	MiddleName        string `json:"middleName" form:"middleName"`
	LastName          string `json:"lastName" form:"lastName"`
	Email             string `json:"email" form:"email"`
	Password          string `json:"password" form:"password"`
	Phone             string `json:"phone" form:"phone"`
	Age               string `json:"age" form:"age"`
	Sex               string `json:"sex" form:"sex"`
	EducationalStatus string `json:"educationalStatus" form:"educationalStatus"`
	Profession        string `json:"profession" form:"profession"`
	Country           string `json:"country" form:"country"`
	Region            string `json:"region" form:"region"`
	Zone              string `json:"zone" form:"zone"`
	City              string `json:"city" form:"city"`
}

// Register creates a new donor account. The body may be JSON or multipart
// form data; multipart requests can carry an optional profilePhoto file.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.FirstName == "" || req.LastName == "" || req.Email == "" || req.Password == "" {
		return apperr.Validation("firstName, lastName, email and password are required")
	}
	if !emailPattern.MatchString(req.Email) {
		return apperr.Validation("invalid email address")
	}
	if len(req.Password) < 6 {
		return apperr.Validation("password must be at least 6 characters")
	}

	var age *int
	if req.Age != "" {
		n, err := strconv.Atoi(req.Age)
		if err != nil || n < 0 {
			return apperr.Validation("age must be a non-negative number")
		}
		age = &n
	}

	photoPath := ""
	if file, err := c.FormFile("profilePhoto"); err == nil && file != nil {
		photoPath, err = utils.SaveProfilePhoto(c, file, h.cfg.UploadDir)
		if err != nil {
			return err
		}
	}

	user, err := h.auth.CreateUser(services.RegisterInput{
		FirstName:         req.FirstName,
		MiddleName:        req.MiddleName,
		LastName:          req.LastName,
		Email:             req.Email,
		Password:          req.Password,
		Phone:             req.Phone,
		Age:               age,
		Sex:               req.Sex,
		EducationalStatus: req.EducationalStatus,
		Profession:        req.Profession,
		Country:           req.Country,
		Region:            req.Region,
		Zone:              req.Zone,
		City:              req.City,
		ProfilePhotoPath:  photoPath,
	})
	if err != nil {
		if photoPath != "" {
			utils.RemoveUpload(photoPath)
		}
		return err
	}

	token, err := utils.GenerateToken(h.cfg.JWTSecret, user, h.cfg.TokenExpires)
	if err != nil {
		return apperr.Internal("failed to generate token")
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"success": true,
		"user":    userResponse(user),
		"token":   token,
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login authenticates an existing user and issues a session token.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return apperr.Validation("email and password are required")
	}

	user, err := h.auth.Authenticate(strings.ToLower(strings.TrimSpace(req.Email)), req.Password)
	if err != nil {
		return err
	}

	token, err := utils.GenerateToken(h.cfg.JWTSecret, user, h.cfg.TokenExpires)
	if err != nil {
		return apperr.Internal("failed to generate token")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    userResponse(user),
		"token":   token,
	})
}

// userResponse shapes a user for API responses. The password hash never
// leaves the model anyway, but the explicit map keeps the wire format
// stable.
func userResponse(user *models.User) fiber.Map {
	roleName := ""
	if user.Role.ID != 0 {
		roleName = user.Role.Name
	}
	return fiber.Map{
		"id":                 user.ID,
		"first_name":         user.FirstName,
		"middle_name":        user.MiddleName,
		"last_name":          user.LastName,
		"email":              user.Email,
		"phone":              user.Phone,
		"age":                user.Age,
		"sex":                user.Sex,
		"educational_status": user.EducationalStatus,
		"profession":         user.Profession,
		"country":            user.Country,
		"region":             user.Region,
		"zone":               user.Zone,
		"city":               user.City,
		"profile_photo":      user.ProfilePhotoPath,
		"donation_amount":    user.DonationAmount,
		"is_pending_payment": user.IsPendingPayment,
		"role_id":            user.RoleID,
		"role":               roleName,
		"created_at":         user.CreatedAt,
	}
}
