package entities

import (
	"time"
	"worker-shorts/constant"

	"github.com/google/uuid"
)

// Scene is the single-clip variant used by the scene pipeline: one
// generated clip adjusted to match its own narration segment.
// AdjustmentType is set if and only if Status is ADJUSTED.
type Scene struct {
	ID                uuid.UUID                `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	JobId             uuid.UUID                `json:"job_id" gorm:"type:uuid;not null;index:idx_scenes_job_id"`
	SceneIndex        int                      `json:"scene_index" gorm:"not null"`
	ScriptSection     string                   `json:"script_section" gorm:"type:text"`
	Prompt            string                   `json:"prompt" gorm:"type:text"`
	Status            constant.ClipStatus      `json:"status" gorm:"type:varchar(20);not null"`
	ProviderJobId     *string                  `json:"provider_job_id" gorm:"type:varchar(255)"`
	VideoURL          *string                  `json:"video_url" gorm:"type:varchar(500)"`
	AudioURL          *string                  `json:"audio_url" gorm:"type:varchar(500)"`
	AudioDurationMs   int64                    `json:"audio_duration_ms"`
	VideoDurationMs   int64                    `json:"video_duration_ms"`
	AdjustmentType    *constant.AdjustmentType `json:"adjustment_type" gorm:"type:varchar(20)"`
	AdjustedVideoPath *string                  `json:"adjusted_video_path" gorm:"type:varchar(500)"`
	AudioIncluded     bool                     `json:"audio_included" gorm:"default:false"`
	ErrorMessage      *string                  `json:"error_message" gorm:"type:text"`
	CreatedAt         time.Time                `json:"created_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt         time.Time                `json:"updated_at" gorm:"type:timestamptz;not null;default:CURRENT_TIMESTAMP"`
}

func (Scene) TableName() string {
	return "scenes"
}
