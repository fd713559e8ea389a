package model

import (
	"time"
)

// CronJobLog records each scheduled job run and its outcome.
type CronJobLog struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	JobName    string     `gorm:"type:varchar(100);index;not null" json:"job_name"`
	Status     string     `gorm:"type:varchar(20);not null" json:"status"` // running, completed, failed
	Message    string     `gorm:"type:text" json:"message"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
}
