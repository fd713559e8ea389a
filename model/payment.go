package model

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Payment statuses
const (
	PaymentSucceeded = "succeeded"
	PaymentFailed    = "failed"
	PaymentRefunded  = "refunded"
)

// Payment sources
const (
	PaymentSourceSingle  = "single"  // direct course purchase
	PaymentSourceCart    = "cart"    // cart checkout
	PaymentSourceUpgrade = "upgrade" // audit -> paid upgrade
)

// Payment is a local ledger row recording a course purchase. There is no
// external gateway; the reference code is a locally generated transaction id.
type Payment struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	CreatedAt     time.Time `json:"created_at"`
	UserID        uint      `gorm:"not null;index" json:"user_id"`
	CourseID      *uint     `gorm:"index" json:"course_id"`
	EnrollmentID  *uint     `gorm:"index" json:"enrollment_id"`
	Amount        float64   `gorm:"not null" json:"amount"`
	Currency      string    `gorm:"type:varchar(10);default:'USD'" json:"currency"`
	Status        string    `gorm:"type:varchar(20);default:'succeeded'" json:"status"` // succeeded, failed, refunded
	Source        string    `gorm:"type:varchar(20);default:'single'" json:"source"`    // single, cart, upgrade
	ReferenceCode string    `gorm:"type:varchar(64);uniqueIndex;not null" json:"reference_code"`

	// Relationships
	User       User        `gorm:"foreignKey:UserID" json:"-"`
	Course     *Course     `gorm:"foreignKey:CourseID;constraint:OnDelete:SET NULL" json:"course,omitempty"`
	Enrollment *Enrollment `gorm:"foreignKey:EnrollmentID;constraint:OnDelete:SET NULL" json:"-"`
}

// TableName specifies the table name for Payment
func (Payment) TableName() string {
	return "payments"
}

// BeforeCreate generates the reference code when none is set.
func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ReferenceCode == "" {
		p.ReferenceCode = NewPaymentReference()
	}
	return nil
}

// NewPaymentReference returns a fresh PAY-<16 hex> transaction id.
func NewPaymentReference() string {
	raw := strings.ReplaceAll(uuid.New().String(), "-", "")
	return fmt.Sprintf("PAY-%s", strings.ToUpper(raw[:16]))
}
