package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"worker-shorts/constant"
	"worker-shorts/entities"
	"worker-shorts/pkg/blob"
	"worker-shorts/pkg/videogen"
)

// Orchestrator drives clip generation jobs against the vendor registry.
// It has no internal timer: callers decide when PollOnce runs and when to
// give up on clips that never settle.
type Orchestrator struct {
	registry *videogen.Registry
	store    blob.Store
	sleep    func(time.Duration)
}

func NewOrchestrator(registry *videogen.Registry, store blob.Store) *Orchestrator {
	return &Orchestrator{
		registry: registry,
		store:    store,
		sleep:    time.Sleep,
	}
}

type ClipRequest struct {
	Section ScriptSection
	Prompt  string
}

// RequestAll submits one generation job per section, in order. Submits are
// sequential with the vendor's configured inter-request delay; bulk
// parallel submits get rejected by the stricter vendors. A failed submit
// marks only that clip FAILED; partial failure is an expected outcome,
// never a batch error.
func (o *Orchestrator) RequestAll(ctx context.Context, jobID uuid.UUID, reqs []ClipRequest, provider, model, aspectRatio string) []*entities.Clip {
	clips := make([]*entities.Clip, 0, len(reqs))

	p, perr := o.registry.Get(provider)

	for i, req := range reqs {
		clip := &entities.Clip{
			JobId:           jobID,
			ClipIndex:       i,
			ScriptSection:   req.Section.Text,
			Prompt:          req.Prompt,
			DurationSeconds: req.Section.DurationSeconds,
			Status:          constant.ClipStatusPending,
		}
		clips = append(clips, clip)

		if perr != nil {
			markClipFailed(clip, perr)
			continue
		}

		if i > 0 {
			o.sleep(p.RequestDelay())
		}

		duration := videogen.ClampDuration(p, req.Section.DurationSeconds)
		taggedID, err := o.registry.Submit(ctx, provider, videogen.SubmitRequest{
			Prompt:          req.Prompt,
			Model:           model,
			DurationSeconds: duration,
			AspectRatio:     aspectRatio,
		})
		if err != nil {
			zerolog.Ctx(ctx).Error().Err(err).Int("clip_index", i).Msg("clip submit failed")
			markClipFailed(clip, err)
			continue
		}

		clip.ProviderJobId = &taggedID
		zerolog.Ctx(ctx).Info().Int("clip_index", i).Str("provider_job_id", taggedID).Msg("clip submitted")
	}

	return clips
}

// PollOnce advances every non-terminal clip by one status query. It is
// idempotent and safe to call on every tick, including after a process
// restart: provider identity is recovered from the persisted job id tag.
// Completed payloads are downloaded and persisted to durable storage
// before the clip turns COMPLETED. Returns true when no clip is still
// PENDING or PROCESSING.
func (o *Orchestrator) PollOnce(ctx context.Context, clips []*entities.Clip) bool {
	for _, clip := range clips {
		if clip.Status.IsTerminal() {
			continue
		}
		if clip.ProviderJobId == nil {
			markClipFailed(clip, fmt.Errorf("clip has no provider job id"))
			continue
		}

		result, err := o.registry.Poll(ctx, *clip.ProviderJobId)
		if err != nil {
			// Transient poll errors leave the clip for the next tick;
			// only a vendor-reported failure is terminal.
			zerolog.Ctx(ctx).Warn().Err(err).Int("clip_index", clip.ClipIndex).Msg("clip poll failed")
			continue
		}

		switch result.Status {
		case videogen.StatusPending:
			// still queued
		case videogen.StatusProcessing:
			clip.Status = constant.ClipStatusProcessing
		case videogen.StatusCompleted:
			if err := o.persistClip(ctx, clip, result.VideoURL); err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Int("clip_index", clip.ClipIndex).Msg("clip download failed, will retry next tick")
				continue
			}
			clip.Status = constant.ClipStatusCompleted
			zerolog.Ctx(ctx).Info().Int("clip_index", clip.ClipIndex).Msg("clip completed")
		case videogen.StatusFailed:
			markClipFailed(clip, fmt.Errorf("provider failure: %s", result.Error))
			zerolog.Ctx(ctx).Error().Str("provider_error", result.Error).Int("clip_index", clip.ClipIndex).Msg("clip failed")
		}
	}

	for _, clip := range clips {
		if !clip.Status.IsTerminal() {
			return false
		}
	}
	return true
}

func (o *Orchestrator) persistClip(ctx context.Context, clip *entities.Clip, videoURL string) error {
	if videoURL == "" {
		return fmt.Errorf("completed clip has no video url")
	}
	data, err := o.registry.Download(ctx, *clip.ProviderJobId, videoURL)
	if err != nil {
		return err
	}
	url, err := o.store.Save(ctx, data, "clips/"+clip.JobId.String(), ".mp4", "video/mp4")
	if err != nil {
		return err
	}
	clip.VideoURL = &url
	return nil
}

func markClipFailed(clip *entities.Clip, err error) {
	clip.Status = constant.ClipStatusFailed
	msg := err.Error()
	clip.ErrorMessage = &msg
}

// CountCompleted returns the completed/total pair reported for progress.
func CountCompleted(clips []*entities.Clip) (completed, total int) {
	for _, c := range clips {
		if c.Status == constant.ClipStatusCompleted || c.Status == constant.ClipStatusAdjusted {
			completed++
		}
	}
	return completed, len(clips)
}
