package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/tesfa/internal/apperr"
	"github.com/example/tesfa/internal/config"
	"github.com/example/tesfa/internal/middleware"
	"github.com/example/tesfa/internal/services"
	"github.com/example/tesfa/internal/utils"
)

// UserHandler bundles dependencies for the self-service profile endpoints.
type UserHandler struct {
	cfg   *config.Config
	users *services.UserService
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(cfg *config.Config, users *services.UserService) *UserHandler {
	return &UserHandler{cfg: cfg, users: users}
}

// Me returns the caller's profile.
func (h *UserHandler) Me(c *fiber.Ctx) error {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return apperr.Auth("no token provided")
	}

	user, err := h.users.Get(id.UserID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    userResponse(user),
	})
}

// updateProfileRequest uses pointer fields so absent keys can be told
// apart from explicit empty values.
type updateProfileRequest struct {
	FirstName         *string `json:"firstName" form:"firstName"`
	MiddleName        *string `json:"middleName" form:"middleName"`
	LastName          *string `json:"lastName" form:"lastName"`
	Email             *string `json:"email" form:"email"`
	Password          *string `json:"password" form:"password"`
	Phone             *string `json:"phone" form:"phone"`
	Age               *int    `json:"age" form:"age"`
	Sex               *string `json:"sex" form:"sex"`
	EducationalStatus *string `json:"educationalStatus" form:"educationalStatus"`
	Profession        *string `json:"profession" form:"profession"`
	Country           *string `json:"country" form:"country"`
	Region            *string `json:"region" form:"region"`
	Zone              *string `json:"zone" form:"zone"`
	City              *string `json:"city" form:"city"`
}

func (r *updateProfileRequest) changes() map[string]any {
	out := map[string]any{}
	put := func(col string, v *string) {
		if v != nil {
			out[col] = *v
		}
	}
	put("first_name", r.FirstName)
	put("middle_name", r.MiddleName)
	put("last_name", r.LastName)
	put("phone", r.Phone)
	put("sex", r.Sex)
	put("educational_status", r.EducationalStatus)
	put("profession", r.Profession)
	put("country", r.Country)
	put("region", r.Region)
	put("zone", r.Zone)
	put("city", r.City)
	if r.Email != nil {
		out["email"] = strings.ToLower(strings.TrimSpace(*r.Email))
	}
	if r.Age != nil {
		out["age"] = *r.Age
	}
	return out
}

// UpdateMe applies profile changes for the caller. Multipart requests may
// replace the profile photo; the old file is removed once the update
// lands.
func (h *UserHandler) UpdateMe(c *fiber.Ctx) error {
	id, ok := middleware.CurrentIdentity(c)
	if !ok {
		return apperr.Auth("no token provided")
	}

	var req updateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return apperr.Validation("invalid request body")
	}
	if req.Email != nil && !emailPattern.MatchString(strings.TrimSpace(*req.Email)) {
		return apperr.Validation("invalid email address")
	}
	if req.Password != nil && len(*req.Password) < 6 {
		return apperr.Validation("password must be at least 6 characters")
	}
	if req.Age != nil && *req.Age < 0 {
		return apperr.Validation("age must be a non-negative number")
	}

	changes := req.changes()

	newPhoto := ""
	if file, err := c.FormFile("profilePhoto"); err == nil && file != nil {
		newPhoto, err = utils.SaveProfilePhoto(c, file, h.cfg.UploadDir)
		if err != nil {
			return err
		}
		changes["profile_photo_path"] = newPhoto
	}

	var oldPhoto string
	if newPhoto != "" {
		if current, err := h.users.Get(id.UserID); err == nil {
			oldPhoto = current.ProfilePhotoPath
		}
	}

	password := ""
	if req.Password != nil {
		password = *req.Password
	}

	user, err := h.users.Update(id.UserID, changes, password)
	if err != nil {
		if newPhoto != "" {
			utils.RemoveUpload(newPhoto)
		}
		return err
	}

	if oldPhoto != "" && oldPhoto != newPhoto {
		utils.RemoveUpload(oldPhoto)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    userResponse(user),
	})
}
