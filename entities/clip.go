package entities

import (
	"time"
	"worker-shorts/constant"

	"github.com/google/uuid"
)

// Clip is one independently generated video asset for one script section.
// Index order is the single source of truth for final video ordering.
type Clip struct {
	ID              uuid.UUID           `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	JobId           uuid.UUID           `json:"job_id" gorm:"type:uuid;not null;index:idx_clips_job_id"`
	ClipIndex       int                 `json:"clip_index" gorm:"not null"`
	ScriptSection   string              `json:"script_section" gorm:"type:text"`
	Prompt          string              `json:"prompt" gorm:"type:text"`
	DurationSeconds float64             `json:"duration_seconds"`
	Status          constant.ClipStatus `json:"status" gorm:"type:varchar(20);not null"`
	ProviderJobId   *string             `json:"provider_job_id" gorm:"type:varchar(255)"`
	VideoURL        *string             `json:"video_url" gorm:"type:varchar(500)"`
	AudioURL        *string             `json:"audio_url" gorm:"type:varchar(500)"`
	ErrorMessage    *string             `json:"error_message" gorm:"type:text"`
	CreatedAt       time.Time           `json:"created_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt       time.Time           `json:"updated_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
}

func (Clip) TableName() string {
	return "clips"
}
