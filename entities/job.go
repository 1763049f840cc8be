package entities

import (
	"time"
	"worker-shorts/constant"

	"github.com/google/uuid"
)

type Job struct {
	ID                uuid.UUID          `json:"id"`
	JobType           constant.JobType   `json:"job_type"`
	Status            constant.JobStatus `json:"status"`
	Topic             string             `json:"topic"`
	Script            string             `json:"script"`
	Provider          string             `json:"provider"`
	Model             string             `json:"model"`
	NarrationURL      *string            `json:"narration_url"`
	NarrationDuration *float64           `json:"narration_duration"`
	OutputURL         *string            `json:"output_url"`
	CompletedClips    int                `json:"completed_clips"`
	TotalClips        int                `json:"total_clips"`
	ErrorMessage      *string            `json:"error_message"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

func (Job) TableName() string {
	return "jobs"
}
