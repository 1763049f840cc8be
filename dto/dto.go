package dto

import "github.com/google/uuid"

type ShortsJobMessage struct {
	JobId uuid.UUID `json:"jobId"`
	Topic string    `json:"topic"`
}

type SceneJobMessage struct {
	JobId uuid.UUID `json:"jobId"`
}
