package database

import (
	"errors"
	"fmt"
	"log"

	"github.com/pthanh137/pbl3-lms/model"
	"github.com/pthanh137/pbl3-lms/utils/auth"
	"gorm.io/gorm"
)

// Seeder handles deploy-time database bootstrap. It is run explicitly by
// cmd/bootstrap, never as a side effect of migrations, and every step is
// idempotent so re-running it is safe.
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB) *Seeder {
	return &Seeder{db: db}
}

// BootstrapAdmin creates the default admin account if no admin exists.
func (s *Seeder) BootstrapAdmin(email, password string) error {
	if email == "" || password == "" {
		return errors.New("admin email and password are required")
	}

	var count int64
	if err := s.db.Model(&model.User{}).Where("role = ?", model.RoleAdmin).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to check for existing admin: %w", err)
	}
	if count > 0 {
		log.Println("Admin user already exists, skipping bootstrap")
		return nil
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := model.User{
		Email:        email,
		PasswordHash: hash,
		FullName:     "Administrator",
		Role:         model.RoleAdmin,
	}
	if err := s.db.Create(&admin).Error; err != nil {
		return fmt.Errorf("failed to create admin user: %w", err)
	}

	log.Printf("Created admin user %s (id=%d)", admin.Email, admin.ID)
	return nil
}
