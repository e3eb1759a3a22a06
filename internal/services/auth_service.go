package services

import (
	"errors"
	"strings"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/example/tesfa/internal/apperr"
	"github.com/example/tesfa/internal/models"
	"github.com/example/tesfa/internal/utils"
)

// AuthService owns user credentials: registration, login and the initial
// admin bootstrap.
type AuthService struct {
	db *gorm.DB
}

// NewAuthService constructs an AuthService.
func NewAuthService(db *gorm.DB) *AuthService {
	return &AuthService{db: db}
}

// RegisterInput carries a new donor's profile. Password is plaintext and
// is hashed before anything touches the database.
type RegisterInput struct {
	FirstName         string
	MiddleName        string
	LastName          string
	Email             string
	Password          string
	Phone             string
	Age               *int
	Sex               string
	EducationalStatus string
	Profession        string
	Country           string
	Region            string
	Zone              string
	City              string
	ProfilePhotoPath  string
}

// CreateUser registers a donor account. The email must be unused; a
// duplicate yields a conflict error whether it is caught by the pre-check
// or by the unique index racing with another registration.
func (s *AuthService) CreateUser(in RegisterInput) (*models.User, error) {
	var count int64
	if err := s.db.Model(&models.User{}).Where("email = ?", in.Email).Count(&count).Error; err != nil {
		return nil, apperr.Internal("failed to check email")
	}
	if count > 0 {
		return nil, apperr.Conflict("email is already registered")
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, apperr.Internal("failed to hash password")
	}

	user := models.User{
		FirstName:         in.FirstName,
		MiddleName:        in.MiddleName,
		LastName:          in.LastName,
		Email:             in.Email,
		PasswordHash:      hash,
		Phone:             in.Phone,
		Age:               in.Age,
		Sex:               in.Sex,
		EducationalStatus: in.EducationalStatus,
		Profession:        in.Profession,
		Country:           in.Country,
		Region:            in.Region,
		Zone:              in.Zone,
		City:              in.City,
		ProfilePhotoPath:  in.ProfilePhotoPath,
		RoleID:            models.RoleDonor,
		IsPendingPayment:  true,
	}
	if err := s.db.Create(&user).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, apperr.Conflict("email is already registered")
		}
		logrus.WithError(err).Error("failed to create user")
		return nil, apperr.Internal("failed to create user")
	}

	if err := s.db.Preload("Role").First(&user, "id = ?", user.ID).Error; err != nil {
		logrus.WithError(err).Warn("failed to reload user after create")
	}
	return &user, nil
}

// Authenticate checks an email/password pair. Both failure modes return
// the same error so a caller cannot probe which emails exist.
func (s *AuthService) Authenticate(email, password string) (*models.User, error) {
	var user models.User
	if err := s.db.Preload("Role").Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logrus.WithField("email", email).Debug("login attempt for unknown email")
			return nil, apperr.Auth("invalid email or password")
		}
		return nil, apperr.Internal("failed to load user")
	}

	if !utils.CheckPassword(user.PasswordHash, password) {
		logrus.WithField("email", email).Debug("login attempt with wrong password")
		return nil, apperr.Auth("invalid email or password")
	}

	return &user, nil
}

// CreateInitialAdmin seeds the first administrator account on startup. It
// is idempotent: if any admin already exists, or the configured email is
// taken, nothing happens.
func (s *AuthService) CreateInitialAdmin(email, password string) error {
	if email == "" || password == "" {
		logrus.Warn("admin bootstrap skipped: ADMIN_EMAIL or ADMIN_PASSWORD not set")
		return nil
	}

	var count int64
	if err := s.db.Model(&models.User{}).Where("role_id = ?", models.RoleAdmin).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	if err := s.db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := utils.HashPassword(password)
	if err != nil {
		return err
	}

	admin := models.User{
		FirstName:    "Admin",
		LastName:     "User",
		Email:        email,
		PasswordHash: hash,
		RoleID:       models.RoleAdmin,
	}
	if err := s.db.Create(&admin).Error; err != nil {
		if isDuplicateKey(err) {
			return nil
		}
		return err
	}

	// The column carries default:true and GORM drops zero values from the
	// INSERT, so false has to be written explicitly.
	if err := s.db.Model(&admin).Update("is_pending_payment", false).Error; err != nil {
		return err
	}

	logrus.WithField("email", email).Info("initial admin account created")
	return nil
}

// isDuplicateKey recognizes unique-constraint violations across postgres
// and sqlite drivers.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "UNIQUE constraint")
}
