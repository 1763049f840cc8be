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

const veo3Name = "veo3"

type Veo3 struct {
	cfg    config.Provider
	client *http.Client
}

func NewVeo3(cfg config.Provider) *Veo3 {
	return &Veo3{
		cfg: cfg,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

func (v *Veo3) Name() string { return veo3Name }

func (v *Veo3) Limits() (float64, float64) {
	return v.cfg.MinSeconds, v.cfg.MaxSeconds
}

func (v *Veo3) RequestDelay() time.Duration { return v.cfg.RequestDelay }

type veo3SubmitRequest struct {
	Prompt      string  `json:"prompt"`
	Model       string  `json:"model,omitempty"`
	Duration    float64 `json:"duration"`
	AspectRatio string  `json:"aspect_ratio"`
}

type veo3SubmitResponse struct {
	JobID string `json:"job_id"`
}

type veo3PollResponse struct {
	Status   string `json:"status"`
	VideoURL string `json:"video_url"`
	Error    string `json:"error"`
}

func (v *Veo3) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	body, err := json.Marshal(veo3SubmitRequest{
		Prompt:      req.Prompt,
		Model:       req.Model,
		Duration:    req.DurationSeconds,
		AspectRatio: req.AspectRatio,
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, v.cfg.Endpoint+"/v1/videos", bytes.NewBuffer(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+v.cfg.APIKey)

	resp, err := v.client.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("failed to call veo3 API: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("veo3 submit error: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var submitResp veo3SubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&submitResp); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}
	if submitResp.JobID == "" {
		return "", fmt.Errorf("veo3 submit returned empty job id")
	}

	return submitResp.JobID, nil
}

func (v *Veo3) Poll(ctx context.Context, jobID string) (PollResult, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, v.cfg.Endpoint+"/v1/videos/"+jobID, nil)
	if err != nil {
		return PollResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+v.cfg.APIKey)

	resp, err := v.client.Do(httpReq)
	if err != nil {
		return PollResult{}, fmt.Errorf("failed to poll veo3 job: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return PollResult{}, fmt.Errorf("veo3 poll error: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	var pollResp veo3PollResponse
	if err := json.NewDecoder(resp.Body).Decode(&pollResp); err != nil {
		return PollResult{}, fmt.Errorf("failed to decode response: %w", err)
	}

	return PollResult{
		Status:   mapVeo3Status(pollResp.Status),
		VideoURL: pollResp.VideoURL,
		Error:    pollResp.Error,
	}, nil
}

func mapVeo3Status(s string) Status {
	switch s {
	case "queued", "pending":
		return StatusPending
	case "processing", "running":
		return StatusProcessing
	case "completed", "succeeded":
		return StatusCompleted
	case "failed", "error", "cancelled":
		return StatusFailed
	default:
		// unknown vendor statuses keep the clip polling; the tick limit
		// bounds how long an unrecognized state can linger
		return StatusProcessing
	}
}

func (v *Veo3) Download(ctx context.Context, videoURL string) ([]byte, error) {
	return downloadURL(ctx, v.client, videoURL)
}

func downloadURL(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download video: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("failed to download video: status %d, body: %s", resp.StatusCode, string(respBody))
	}

	return io.ReadAll(resp.Body)
}
