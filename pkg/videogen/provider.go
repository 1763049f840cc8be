// Package videogen wraps the external text-to-video vendors behind one
// capability interface. Every vendor exposes submit and poll; job ids are
// tagged with the vendor name so a restarted worker can resolve the owning
// vendor from the persisted id alone.
package videogen

import (
	"context"
	"fmt"
	"strings"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// IsTerminal returns true if the status represents a final vendor state.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

type SubmitRequest struct {
	Prompt          string
	Model           string
	DurationSeconds float64
	AspectRatio     string
}

type PollResult struct {
	Status   Status
	VideoURL string
	Error    string
}

type Provider interface {
	Name() string
	// Limits returns the vendor's legal clip duration range in seconds.
	Limits() (min, max float64)
	// RequestDelay is the throttle between consecutive submits.
	RequestDelay() time.Duration
	Submit(ctx context.Context, req SubmitRequest) (jobID string, err error)
	Poll(ctx context.Context, jobID string) (PollResult, error)
	// Download fetches a completed video payload from the vendor URL.
	Download(ctx context.Context, videoURL string) ([]byte, error)
}

const jobIDSeparator = ":"

// TagJobID prepends the provider name to an opaque vendor job id.
func TagJobID(provider, remoteID string) string {
	return provider + jobIDSeparator + remoteID
}

// SplitJobID splits a tagged job id back into provider name and vendor id.
func SplitJobID(tagged string) (provider, remoteID string, err error) {
	idx := strings.Index(tagged, jobIDSeparator)
	if idx <= 0 || idx == len(tagged)-1 {
		return "", "", fmt.Errorf("malformed job id %q", tagged)
	}
	return tagged[:idx], tagged[idx+1:], nil
}

// Registry is the single dispatch point for all vendors. All job ids that
// cross the registry boundary are tagged; vendors only ever see their own
// untagged ids.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	m := make(map[string]Provider, len(providers))
	for _, p := range providers {
		m[p.Name()] = p
	}
	return &Registry{providers: m}
}

func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown video provider %q", name)
	}
	return p, nil
}

// Resolve finds the provider owning a tagged job id.
func (r *Registry) Resolve(taggedID string) (Provider, string, error) {
	name, remoteID, err := SplitJobID(taggedID)
	if err != nil {
		return nil, "", err
	}
	p, err := r.Get(name)
	if err != nil {
		return nil, "", err
	}
	return p, remoteID, nil
}

// Submit dispatches a generation request and returns a tagged job id.
func (r *Registry) Submit(ctx context.Context, provider string, req SubmitRequest) (string, error) {
	p, err := r.Get(provider)
	if err != nil {
		return "", err
	}
	remoteID, err := p.Submit(ctx, req)
	if err != nil {
		return "", err
	}
	return TagJobID(p.Name(), remoteID), nil
}

// Poll queries vendor status for a tagged job id.
func (r *Registry) Poll(ctx context.Context, taggedID string) (PollResult, error) {
	p, remoteID, err := r.Resolve(taggedID)
	if err != nil {
		return PollResult{}, err
	}
	return p.Poll(ctx, remoteID)
}

// Download fetches the payload of a completed job through its owning vendor.
func (r *Registry) Download(ctx context.Context, taggedID, videoURL string) ([]byte, error) {
	p, _, err := r.Resolve(taggedID)
	if err != nil {
		return nil, err
	}
	return p.Download(ctx, videoURL)
}

// ClampDuration forces a requested duration into the vendor's legal range.
func ClampDuration(p Provider, seconds float64) float64 {
	min, max := p.Limits()
	if seconds < min {
		return min
	}
	if seconds > max {
		return max
	}
	return seconds
}
