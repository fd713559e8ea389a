package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/pthanh137/pbl3-lms/model"
	"github.com/pthanh137/pbl3-lms/services"
)

// ReconcileProgress recomputes the cached progress percentage for every
// enrollment whose cached value drifted from its completion rows. Drift
// happens when lessons are added or removed after students completed the
// old set.
func (m *CronManager) ReconcileProgress() {
	jobName := "reconcile_progress"

	var enrollments []model.Enrollment
	if err := m.db.Find(&enrollments).Error; err != nil {
		m.logJobError(jobName, fmt.Errorf("failed to load enrollments: %w", err))
		return
	}

	healed := 0
	for i := range enrollments {
		enrollment := &enrollments[i]

		total, err := services.CountLessons(m.db, enrollment.CourseID)
		if err != nil {
			m.logJobError(jobName, fmt.Errorf("failed to count lessons for course %d: %w", enrollment.CourseID, err))
			return
		}
		completed, err := services.CountCompleted(m.db, enrollment.ID)
		if err != nil {
			m.logJobError(jobName, fmt.Errorf("failed to count completions for enrollment %d: %w", enrollment.ID, err))
			return
		}

		percent := services.ComputePercent(completed, total)
		if percent == enrollment.ProgressPercent {
			continue
		}

		err = m.db.Model(enrollment).UpdateColumn("progress_percent", percent).Error
		if err != nil {
			m.logJobError(jobName, fmt.Errorf("failed to update enrollment %d: %w", enrollment.ID, err))
			return
		}
		healed++
	}

	m.logJobComplete(jobName, fmt.Sprintf("Checked %d enrollments, healed %d", len(enrollments), healed))
}

// CleanupExpiredTokens purges blacklist rows whose tokens expired anyway.
func (m *CronManager) CleanupExpiredTokens() {
	jobName := "cleanup_expired_tokens"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	removed, err := m.blacklist.CleanupExpiredTokens(ctx)
	if err != nil {
		m.logJobError(jobName, err)
		return
	}

	m.logJobComplete(jobName, fmt.Sprintf("Removed %d expired blacklist entries", removed))
}

// CleanupStaleCarts drops cart items untouched for 30 days.
func (m *CronManager) CleanupStaleCarts() {
	jobName := "cleanup_stale_carts"
	cutoff := time.Now().AddDate(0, 0, -30)

	result := m.db.Where("created_at < ?", cutoff).Delete(&model.CartItem{})
	if result.Error != nil {
		m.logJobError(jobName, fmt.Errorf("failed to delete stale cart items: %w", result.Error))
		return
	}

	m.logJobComplete(jobName, fmt.Sprintf("Removed %d stale cart items", result.RowsAffected))
}

// CleanupOldNotifications removes read notifications older than 90 days.
func (m *CronManager) CleanupOldNotifications() {
	jobName := "cleanup_old_notifications"

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	removed, err := m.notifications.CleanupOldNotifications(ctx, 90*24*time.Hour)
	if err != nil {
		m.logJobError(jobName, err)
		return
	}

	m.logJobComplete(jobName, fmt.Sprintf("Removed %d old notifications", removed))
}
