package models

import (
	"github.com/shopspring/decimal"
)

// Role IDs are fixed and seeded at startup.
const (
	RoleAdmin uint = 1
	RoleDonor uint = 2
)

// Role is a small lookup table referenced by User.RoleID.
type Role struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:50;uniqueIndex;not null" json:"name"`
	Description string `gorm:"size:255" json:"description"`
}

// User represents a registered donor or administrator. IsPendingPayment
// stays true until the user's first completed payment.
type User struct {
	BaseModel
	FirstName         string          `gorm:"size:100;not null" json:"first_name"`
	MiddleName        string          `gorm:"size:100" json:"middle_name,omitempty"`
	LastName          string          `gorm:"size:100;not null" json:"last_name"`
	Email             string          `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash      string          `json:"-"`
	Phone             string          `gorm:"size:20" json:"phone,omitempty"`
	Age               *int            `json:"age,omitempty"`
	Sex               string          `gorm:"size:10" json:"sex,omitempty"`
	EducationalStatus string          `gorm:"size:100" json:"educational_status,omitempty"`
	Profession        string          `gorm:"size:100" json:"profession,omitempty"`
	Country           string          `gorm:"size:100" json:"country,omitempty"`
	Region            string          `gorm:"size:100" json:"region,omitempty"`
	Zone              string          `gorm:"size:100" json:"zone,omitempty"`
	City              string          `gorm:"size:100" json:"city,omitempty"`
	ProfilePhotoPath  string          `gorm:"size:255" json:"profile_photo_path,omitempty"`
	DonationAmount    decimal.Decimal `gorm:"type:numeric(10,2);default:0" json:"donation_amount"`
	IsPendingPayment  bool            `gorm:"default:true" json:"is_pending_payment"`
	RoleID            uint            `gorm:"default:2" json:"role_id"`
	Role              Role            `json:"role,omitempty"`
	Payments          []Payment       `gorm:"constraint:OnDelete:CASCADE" json:"payments,omitempty"`
}
