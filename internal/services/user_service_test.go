package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/tesfa/internal/apperr"
	"github.com/example/tesfa/internal/models"
	"github.com/example/tesfa/internal/utils"
)

func TestUpdateFiltersUnknownColumns(t *testing.T) {
	db := newTestDB(t)
	user := newTestUser(t, db, "abebe@example.com")
	svc := NewUserService(db, nil)

	updated, err := svc.Update(user.ID, map[string]any{
		"first_name":    "Kenenisa",
		"password_hash": "injected",
		"created_at":    "injected",
		"id":            "injected",
	}, "")
	require.NoError(t, err)
	assert.Equal(t, "Kenenisa", updated.FirstName)
	assert.Equal(t, "x", updated.PasswordHash)
	assert.Equal(t, user.ID, updated.ID)
}

func TestUpdatePassword(t *testing.T) {
	db := newTestDB(t)
	user := newTestUser(t, db, "abebe@example.com")
	svc := NewUserService(db, nil)

	updated, err := svc.Update(user.ID, nil, "newsecret")
	require.NoError(t, err)
	assert.True(t, utils.CheckPassword(updated.PasswordHash, "newsecret"))
}

func TestUpdateUnknownUser(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db, nil)

	_, err := svc.Update(newTestUser(t, db, "a@example.com").ID, map[string]any{}, "")
	require.NoError(t, err)

	_, err = svc.Update(uuid.New(), map[string]any{"first_name": "X"}, "")
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 404, appErr.Status)
}

func TestDeleteRemovesPayments(t *testing.T) {
	db := newTestDB(t)
	user := newTestUser(t, db, "abebe@example.com")
	svc := NewUserService(db, nil)

	payment := models.Payment{
		UserID: user.ID,
		Amount: decimal.NewFromInt(40),
		TxRef:  "DON-1-11111111",
		Status: models.PaymentCompleted,
	}
	require.NoError(t, db.Create(&payment).Error)

	require.NoError(t, svc.Delete(user.ID))

	var users, payments int64
	require.NoError(t, db.Model(&models.User{}).Count(&users).Error)
	require.NoError(t, db.Model(&models.Payment{}).Count(&payments).Error)
	assert.Zero(t, users)
	assert.Zero(t, payments)

	err := svc.Delete(user.ID)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, 404, appErr.Status)
}

func TestListPaginates(t *testing.T) {
	db := newTestDB(t)
	svc := NewUserService(db, nil)

	newTestUser(t, db, "a@example.com")
	newTestUser(t, db, "b@example.com")
	newTestUser(t, db, "c@example.com")

	users, total, err := svc.List(utils.Pagination{Page: 1, Limit: 2, Offset: 0})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Len(t, users, 2)

	users, _, err = svc.List(utils.Pagination{Page: 2, Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, users, 1)
}

func TestDashboardStats(t *testing.T) {
	db := newTestDB(t)
	donorA := newTestUser(t, db, "a@example.com")
	donorB := newTestUser(t, db, "b@example.com")
	newTestUser(t, db, "quiet@example.com")
	svc := NewUserService(db, nil)

	rows := []models.Payment{
		{UserID: donorA.ID, Amount: decimal.NewFromInt(100), TxRef: "DON-1-aaaaaaaa", Status: models.PaymentCompleted},
		{UserID: donorA.ID, Amount: decimal.NewFromInt(50), TxRef: "DON-2-bbbbbbbb", Status: models.PaymentCompleted},
		{UserID: donorB.ID, Amount: decimal.NewFromInt(25), TxRef: "DON-3-cccccccc", Status: models.PaymentCompleted},
		{UserID: donorB.ID, Amount: decimal.NewFromInt(999), TxRef: "DON-4-dddddddd", Status: models.PaymentFailed},
		{UserID: donorB.ID, Amount: decimal.NewFromInt(999), TxRef: "DON-5-eeeeeeee", Status: models.PaymentPending},
	}
	for i := range rows {
		require.NoError(t, db.Create(&rows[i]).Error)
	}

	stats, err := svc.DashboardStats(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 3, stats.TotalUsers)
	assert.EqualValues(t, 2, stats.TotalDonors)
	assert.True(t, stats.TotalDonations.Equal(decimal.NewFromInt(175)), "total %s", stats.TotalDonations)
	assert.Len(t, stats.RecentPayments, 3)
	for _, p := range stats.RecentPayments {
		assert.Equal(t, models.PaymentCompleted, p.Status)
		assert.NotEmpty(t, p.Email)
	}
}
