package entities

import (
	"time"
	"worker-shorts/constant"

	"github.com/google/uuid"
)

// PipelineStep is a named phase of a job, recorded for UI progress
// polling only. Control flow never reads these rows back.
type PipelineStep struct {
	ID         uuid.UUID           `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	JobId      uuid.UUID           `json:"job_id" gorm:"type:uuid;not null;index:idx_pipeline_steps_job_id"`
	Name       constant.StepName   `json:"name" gorm:"type:varchar(20);not null"`
	Status     constant.StepStatus `json:"status" gorm:"type:varchar(20);not null"`
	StartedAt  *time.Time          `json:"started_at" gorm:"type:timestamptz"`
	FinishedAt *time.Time          `json:"finished_at" gorm:"type:timestamptz"`
}

func (PipelineStep) TableName() string {
	return "pipeline_steps"
}
