package videogen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"worker-shorts/config"
)

const xaiName = "xai"

// XAI generates clips with narration audio baked into the video, so the
// scene pipeline skips separate dubbing for its clips.
type XAI struct {
	cfg    config.Provider
	client *http.Client
}

func NewXAI(cfg config.Provider) *XAI {
	return &XAI{
		cfg: cfg,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

func (x *XAI) Name() string { return xaiName }

func (x *XAI) Limits() (float64, float64) {
	return x.cfg.MinSeconds, x.cfg.MaxSeconds
}

func (x *XAI) RequestDelay() time.Duration { return x.cfg.RequestDelay }

type xaiSubmitRequest struct {
	Model           string  `json:"model"`
	Prompt          string  `json:"prompt"`
	DurationSeconds float64 `json:"duration_seconds"`
	AspectRatio     string  `json:"aspect_ratio"`
}

type xaiSubmitResponse struct {
	ID string `json:"id"`
}

type xaiPollResponse struct {
	Status string `json:"status"`
	Output struct {
		VideoURL string `json:"video_url"`
	} `json:"output"`
	FailureReason string `json:"failure_reason"`
}

func (x *XAI) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	body, err := json.Marshal(xaiSubmitRequest{
		Model:           req.Model,
		Prompt:          req.Prompt,
		DurationSeconds: req.DurationSeconds,
		AspectRatio:     req.AspectRatio,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, x.cfg.Endpoint+"/v1/video/generations", bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+x.cfg.APIKey)

	resp, err := x.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to call xai API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("xai submit error: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var submitResp xaiSubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&submitResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if submitResp.ID == "" {
		return "", fmt.Errorf("xai submit returned empty job id")
	}

	return submitResp.ID, nil
}

func (x *XAI) Poll(ctx context.Context, jobID string) (PollResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, x.cfg.Endpoint+"/v1/video/generations/"+jobID, nil)
	if err != nil {
		return PollResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+x.cfg.APIKey)

	resp, err := x.client.Do(httpReq)
	if err != nil {
		return PollResult{}, fmt.Errorf("failed to poll xai job: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return PollResult{}, fmt.Errorf("xai poll error: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var pollResp xaiPollResponse
	if err := json.NewDecoder(resp.Body).Decode(&pollResp); err != nil {
		return PollResult{}, fmt.Errorf("failed to decode response: %w", err)
	}

	return PollResult{
		Status:   mapXAIStatus(pollResp.Status),
		VideoURL: pollResp.Output.VideoURL,
		Error:    pollResp.FailureReason,
	}, nil
}

func mapXAIStatus(s string) Status {
	switch s {
	case "queued", "in_queue":
		return StatusPending
	case "in_progress", "running":
		return StatusProcessing
	case "done", "completed":
		return StatusCompleted
	case "failed", "error", "expired":
		return StatusFailed
	default:
		// unknown vendor statuses keep the clip polling; the tick limit
		// bounds how long an unrecognized state can linger
		return StatusProcessing
	}
}

func (x *XAI) Download(ctx context.Context, videoURL string) ([]byte, error) {
	return downloadURL(ctx, x.client, videoURL)
}
