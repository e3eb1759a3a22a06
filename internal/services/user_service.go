package services

import (
	"context"
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

const dashboardStatsCacheKey = "admin:dashboard:stats"

// userUpdatableColumns is the allow-list for profile updates. Anything
// not named here, password handling aside, silently never reaches the
// database.
var userUpdatableColumns = map[string]struct{}{
	"first_name":         {},
	"middle_name":        {},
	"last_name":          {},
	"email":              {},
	"phone":              {},
	"age":                {},
	"sex":                {},
	"educational_status": {},
	"profession":         {},
	"country":            {},
	"region":             {},
	"zone":               {},
	"city":               {},
	"profile_photo_path": {},
	"donation_amount":    {},
	"role_id":            {},
}

// UserService handles profile reads and writes plus the admin dashboard
// aggregates.
type UserService struct {
	db  *gorm.DB
	rdb *redis.Client
}

// NewUserService constructs a UserService.
func NewUserService(db *gorm.DB, rdb *redis.Client) *UserService {
	return &UserService{db: db, rdb: rdb}
}

// Get loads a user with their role.
func (s *UserService) Get(id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.Preload("Role").First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperr.NotFound("user not found")
		}
		return nil, apperr.Internal("failed to load user")
	}
	return &user, nil
}

// Update applies the allow-listed subset of changes to a user. A non-empty
// newPassword is hashed and stored alongside. Returns the refreshed user.
func (s *UserService) Update(id uuid.UUID, changes map[string]any, newPassword string) (*models.User, error) {
	filtered := make(map[string]any, len(changes))
	for col, val := range changes {
		if _, ok := userUpdatableColumns[col]; ok {
			filtered[col] = val
		}
	}

	if newPassword != "" {
		hash, err := utils.HashPassword(newPassword)
		if err != nil {
			return nil, apperr.Internal("failed to hash password")
		}
		filtered["password_hash"] = hash
	}

	if len(filtered) > 0 {
		res := s.db.Model(&models.User{}).Where("id = ?", id).Updates(filtered)
		if res.Error != nil {
			if isDuplicateKey(res.Error) {
				return nil, apperr.Conflict("email is already registered")
			}
			return nil, apperr.Internal("failed to update user")
		}
		if res.RowsAffected == 0 {
			return nil, apperr.NotFound("user not found")
		}
	}

	return s.Get(id)
}

// List returns a page of users with their roles, newest first.
func (s *UserService) List(pg utils.Pagination) ([]models.User, int64, error) {
	var total int64
	if err := s.db.Model(&models.User{}).Count(&total).Error; err != nil {
		return nil, 0, apperr.Internal("failed to count users")
	}

	users := make([]models.User, 0)
	if err := s.db.Preload("Role").
		Order("created_at desc").
		Offset(pg.Offset).
		Limit(pg.Limit).
		Find(&users).Error; err != nil {
		return nil, 0, apperr.Internal("failed to load users")
	}
	return users, total, nil
}

// Delete removes a user together with their payments and their uploaded
// profile photo.
func (s *UserService) Delete(id uuid.UUID) error {
	var user models.User
	if err := s.db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.NotFound("user not found")
		}
		return apperr.Internal("failed to load user")
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", id).Delete(&models.Payment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.User{}, "id = ?", id).Error
	})
	if err != nil {
		logrus.WithError(err).WithField("user_id", id).Error("failed to delete user")
		return apperr.Internal("failed to delete user")
	}

	if user.ProfilePhotoPath != "" {
		utils.RemoveUpload(user.ProfilePhotoPath)
	}
	if err := utils.DeleteCache(context.Background(), s.rdb, dashboardStatsCacheKey); err != nil {
		logrus.WithError(err).Warn("failed to invalidate dashboard cache")
	}
	return nil
}

// DashboardStats is the admin landing-page summary.
type DashboardStats struct {
	TotalUsers     int64              `json:"totalUsers"`
	TotalDonations decimal.Decimal    `json:"totalDonations"`
	TotalDonors    int64              `json:"totalDonors"`
	RecentPayments []PaymentWithDonor `json:"recentPayments"`
}

// DashboardStats computes the aggregate counters behind the admin
// dashboard, served from cache when a recent copy exists.
func (s *UserService) DashboardStats(ctx context.Context) (*DashboardStats, error) {
	var cached DashboardStats
	if hit, err := utils.GetCache(ctx, s.rdb, dashboardStatsCacheKey, &cached); err != nil {
		logrus.WithError(err).Warn("dashboard cache read failed")
	} else if hit {
		return &cached, nil
	}

	stats := DashboardStats{RecentPayments: make([]PaymentWithDonor, 0)}

	if err := s.db.Model(&models.User{}).Count(&stats.TotalUsers).Error; err != nil {
		return nil, apperr.Internal("failed to count users")
	}
	if err := s.db.Model(&models.Payment{}).
		Where("status = ?", models.PaymentCompleted).
		Select("COALESCE(SUM(amount), 0)").
		Scan(&stats.TotalDonations).Error; err != nil {
		return nil, apperr.Internal("failed to total donations")
	}
	if err := s.db.Model(&models.Payment{}).
		Where("status = ?", models.PaymentCompleted).
		Distinct("user_id").
		Count(&stats.TotalDonors).Error; err != nil {
		return nil, apperr.Internal("failed to count donors")
	}
	if err := s.db.Model(&models.Payment{}).
		Select("payments.id, payments.user_id, payments.amount, payments.tx_ref, payments.transaction_id, payments.status, payments.created_at, users.first_name, users.last_name, users.email").
		Joins("JOIN users ON users.id = payments.user_id").
		Where("payments.status = ?", models.PaymentCompleted).
		Order("payments.created_at desc").
		Limit(10).
		Scan(&stats.RecentPayments).Error; err != nil {
		return nil, apperr.Internal("failed to load recent payments")
	}

	if err := utils.SetCache(ctx, s.rdb, dashboardStatsCacheKey, &stats, 60*time.Second); err != nil {
		logrus.WithError(err).Warn("dashboard cache write failed")
	}
	return &stats, nil
}
