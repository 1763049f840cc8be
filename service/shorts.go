package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"worker-shorts/config"
	"worker-shorts/constant"
	"worker-shorts/dto"
	"worker-shorts/entities"
	"worker-shorts/pkg/blob"
	"worker-shorts/pkg/progress"
	"worker-shorts/pkg/videogen"
	"worker-shorts/repository"
)

// Narrator is the boundary to the narration audio service.
type Narrator interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

type ShortsService interface {
	Process(ctx context.Context, message dto.ShortsJobMessage) error
}

type shortsService struct {
	repo     repository.JobRepository
	cfg      *config.Config
	registry *videogen.Registry
	orch     *Orchestrator
	merger   *Merger
	media    MediaProcessor
	narrator Narrator
	store    blob.Store
	progress *progress.Publisher
}

func NewShortsService(
	repo repository.JobRepository,
	cfg *config.Config,
	registry *videogen.Registry,
	orch *Orchestrator,
	merger *Merger,
	media MediaProcessor,
	narrator Narrator,
	store blob.Store,
	pub *progress.Publisher,
) ShortsService {
	return &shortsService{
		repo:     repo,
		cfg:      cfg,
		registry: registry,
		orch:     orch,
		merger:   merger,
		media:    media,
		narrator: narrator,
		store:    store,
		progress: pub,
	}
}

// Process runs the multi-clip pipeline: narration, split, prompts, render,
// merge. A process restart resumes polling from the persisted clip state;
// nothing is resubmitted.
func (s *shortsService) Process(ctx context.Context, message dto.ShortsJobMessage) (err error) {
	zerolog.Ctx(ctx).Info().Str("job_id", message.JobId.String()).Msg("processing shorts job")

	job, err := s.repo.FindJobById(ctx, message.JobId)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to find job by id")
		return err
	}

	resuming := job.Status == constant.JobStatusProcessing
	if job.Status != constant.JobStatusPending && !resuming {
		zerolog.Ctx(ctx).Info().Str("job_id", message.JobId.String()).Msg("job is not pending")
		return nil
	}

	if err := s.repo.UpdateStatusJob(ctx, constant.JobStatusProcessing, message.JobId); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to update job status")
		return err
	}

	defer func() {
		if err != nil {
			if updateErr := s.repo.UpdateJobError(ctx, message.JobId, err.Error()); updateErr != nil {
				zerolog.Ctx(ctx).Error().Err(updateErr).Msg("failed to record job error")
			}
			if errors.Is(err, ErrNonRetryable) {
				if updateErr := s.repo.UpdateStatusJob(ctx, constant.JobStatusFailed, message.JobId); updateErr != nil {
					zerolog.Ctx(ctx).Error().Err(updateErr).Msg("failed to update job status")
				}
				err = nil
			} else {
				if updateErr := s.repo.UpdateStatusJob(ctx, constant.JobStatusPending, message.JobId); updateErr != nil {
					zerolog.Ctx(ctx).Error().Err(updateErr).Msg("failed to update job status")
				}
			}
		}
	}()

	tempDir := filepath.Join("temp", message.JobId.String())
	defer os.RemoveAll(tempDir)
	if err = os.MkdirAll(tempDir, os.ModePerm); err != nil {
		return errors.Join(ErrNonRetryable, err)
	}

	// script generation happens upstream; an empty script is a fatal
	// input error, never retried
	if job.Script == "" {
		s.step(ctx, job, constant.StepScript, constant.StepStatusFailed)
		return errors.Join(ErrNonRetryable, fmt.Errorf("job has no script"))
	}
	s.step(ctx, job, constant.StepScript, constant.StepStatusCompleted)

	narrationPath, narrationDuration, err := s.ensureNarration(ctx, job, tempDir)
	if err != nil {
		s.step(ctx, job, constant.StepTTS, constant.StepStatusFailed)
		return err
	}
	s.step(ctx, job, constant.StepTTS, constant.StepStatusCompleted)

	provider, err := s.registry.Get(job.Provider)
	if err != nil {
		return errors.Join(ErrNonRetryable, err)
	}
	minSec, maxSec := provider.Limits()

	sections, err := Split(job.Script, narrationDuration.Seconds(), s.cfg.Render.TargetClipSeconds, minSec, maxSec)
	if err != nil {
		s.step(ctx, job, constant.StepSplit, constant.StepStatusFailed)
		return errors.Join(ErrNonRetryable, err)
	}
	s.step(ctx, job, constant.StepSplit, constant.StepStatusCompleted)
	zerolog.Ctx(ctx).Info().Int("sections", len(sections)).Msg("script split into sections")

	reqs := make([]ClipRequest, 0, len(sections))
	for _, section := range sections {
		reqs = append(reqs, ClipRequest{
			Section: section,
			Prompt:  BuildPrompt(job.Topic, section.Text),
		})
	}
	s.step(ctx, job, constant.StepPrompts, constant.StepStatusCompleted)

	clips, err := s.renderClips(ctx, job, reqs)
	if err != nil {
		s.step(ctx, job, constant.StepRender, constant.StepStatusFailed)
		return err
	}
	s.step(ctx, job, constant.StepRender, constant.StepStatusCompleted)

	s.step(ctx, job, constant.StepMerge, constant.StepStatusProcessing)
	outputURL, err := s.merge(ctx, job, clips, narrationPath, narrationDuration, tempDir)
	if err != nil {
		s.step(ctx, job, constant.StepMerge, constant.StepStatusFailed)
		return err
	}
	s.step(ctx, job, constant.StepMerge, constant.StepStatusCompleted)

	if err = s.repo.UpdateJobOutput(ctx, job.ID, outputURL); err != nil {
		return err
	}
	if err = s.repo.UpdateStatusJob(ctx, constant.JobStatusCompleted, job.ID); err != nil {
		return err
	}

	completed, total := CountCompleted(clips)
	zerolog.Ctx(ctx).Info().
		Str("job_id", job.ID.String()).
		Str("output_url", outputURL).
		Int("completed_clips", completed).
		Int("total_clips", total).
		Msg("shorts job completed")

	return nil
}

// ensureNarration synthesizes narration audio once and reuses the stored
// payload on resume. Duration is always measured locally from the audio,
// never estimated.
func (s *shortsService) ensureNarration(ctx context.Context, job *entities.Job, tempDir string) (string, time.Duration, error) {
	narrationPath := filepath.Join(tempDir, "narration.mp3")

	if job.NarrationURL != nil && *job.NarrationURL != "" {
		if err := s.store.FetchToFile(ctx, *job.NarrationURL, narrationPath); err != nil {
			return "", 0, err
		}
		if job.NarrationDuration != nil && *job.NarrationDuration > 0 {
			return narrationPath, time.Duration(*job.NarrationDuration * float64(time.Second)), nil
		}
	} else {
		audio, err := s.narrator.Synthesize(ctx, job.Script)
		if err != nil {
			return "", 0, fmt.Errorf("synthesize narration: %w", err)
		}
		if err := os.WriteFile(narrationPath, audio, 0644); err != nil {
			return "", 0, errors.Join(ErrNonRetryable, err)
		}
	}

	duration, err := s.media.ProbeDuration(ctx, narrationPath)
	if err != nil {
		return "", 0, errors.Join(ErrNonRetryable, fmt.Errorf("probe narration duration: %w", err))
	}

	if job.NarrationURL == nil || *job.NarrationURL == "" {
		audio, err := os.ReadFile(narrationPath)
		if err != nil {
			return "", 0, errors.Join(ErrNonRetryable, err)
		}
		url, err := s.store.Save(ctx, audio, "narration/"+job.ID.String(), ".mp3", "audio/mpeg")
		if err != nil {
			return "", 0, err
		}
		if err := s.repo.UpdateJobNarration(ctx, job.ID, url, duration.Seconds()); err != nil {
			return "", 0, err
		}
	} else {
		// resumed narration whose duration was never stored; this branch is
		// only reached when the early duration return above did not fire
		if err := s.repo.UpdateJobNarration(ctx, job.ID, *job.NarrationURL, duration.Seconds()); err != nil {
			return "", 0, err
		}
	}

	return narrationPath, duration, nil
}

// renderClips submits clip generation (or resumes persisted clips) and
// ticks the orchestrator until everything settles or the tick limit runs
// out. Clips still in flight after the last tick are failed locally; the
// merge step covers them with filler.
func (s *shortsService) renderClips(ctx context.Context, job *entities.Job, reqs []ClipRequest) ([]*entities.Clip, error) {
	clips, err := s.repo.GetClipsByJobId(ctx, job.ID)
	if err != nil {
		return nil, err
	}

	if len(clips) == 0 {
		clips = s.orch.RequestAll(ctx, job.ID, reqs, job.Provider, job.Model, s.cfg.Render.AspectRatio)
		if err := s.repo.SaveClips(ctx, clips); err != nil {
			return nil, err
		}
	} else {
		zerolog.Ctx(ctx).Info().Int("clips", len(clips)).Msg("resuming polling from persisted clips")
	}

	s.publishProgress(ctx, job, clips)

	settled := s.orch.PollOnce(ctx, clips)
	for tick := 1; !settled && tick < s.cfg.Render.MaxPollTicks; tick++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(s.cfg.Render.PollInterval):
		}
		settled = s.orch.PollOnce(ctx, clips)
		s.syncClips(ctx, clips)
		s.publishProgress(ctx, job, clips)
	}

	if !settled {
		for _, clip := range clips {
			if clip.Status.IsTerminal() {
				continue
			}
			markClipFailed(clip, fmt.Errorf("clip did not settle within %d poll ticks", s.cfg.Render.MaxPollTicks))
			zerolog.Ctx(ctx).Warn().Int("clip_index", clip.ClipIndex).Msg("clip timed out, proceeding without it")
		}
	}
	s.syncClips(ctx, clips)
	s.publishProgress(ctx, job, clips)

	return clips, nil
}

func (s *shortsService) merge(ctx context.Context, job *entities.Job, clips []*entities.Clip, narrationPath string, narrationDuration time.Duration, tempDir string) (string, error) {
	mergeClips := make([]MergeClip, 0, len(clips))
	for _, clip := range clips {
		mc := MergeClip{Index: clip.ClipIndex}
		if clip.Status == constant.ClipStatusCompleted && clip.VideoURL != nil {
			localPath := filepath.Join(tempDir, fmt.Sprintf("clip_%03d.mp4", clip.ClipIndex))
			if err := s.store.FetchToFile(ctx, *clip.VideoURL, localPath); err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Int("clip_index", clip.ClipIndex).Msg("failed to fetch clip, skipping")
			} else if d, err := s.media.ProbeDuration(ctx, localPath); err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Int("clip_index", clip.ClipIndex).Msg("failed to probe clip, skipping")
			} else {
				mc.Path = localPath
				mc.Duration = d
				mc.Completed = true
			}
		}
		mergeClips = append(mergeClips, mc)
	}

	outPath := filepath.Join(tempDir, "final.mp4")
	if err := s.merger.MergeWithNarration(ctx, mergeClips, narrationPath, narrationDuration, tempDir, outPath); err != nil {
		return "", err
	}

	objectName := fmt.Sprintf("outputs/%s/final-%d.mp4", job.ID.String(), time.Now().UnixMilli())
	url, err := s.store.SaveFile(ctx, outPath, objectName, "video/mp4")
	if err != nil {
		return "", err
	}
	return url, nil
}

func (s *shortsService) syncClips(ctx context.Context, clips []*entities.Clip) {
	for _, clip := range clips {
		if err := s.repo.UpdateClip(ctx, clip); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Int("clip_index", clip.ClipIndex).Msg("failed to persist clip state")
		}
	}
}

func (s *shortsService) publishProgress(ctx context.Context, job *entities.Job, clips []*entities.Clip) {
	completed, total := CountCompleted(clips)
	if err := s.repo.UpdateJobProgress(ctx, job.ID, completed, total); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to persist job progress")
	}
	s.progress.Clips(ctx, job.ID.String(), completed, total)
}

func (s *shortsService) step(ctx context.Context, job *entities.Job, name constant.StepName, status constant.StepStatus) {
	if err := s.repo.UpsertStep(ctx, job.ID, name, status); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("step", string(name)).Msg("failed to persist pipeline step")
	}
	s.progress.Step(ctx, job.ID.String(), name, status)
}

// BuildPrompt turns a script section into a generation prompt. Prompt
// engineering for the vendors lives here, not in the sections themselves.
func BuildPrompt(topic, sectionText string) string {
	if topic == "" {
		return fmt.Sprintf("Cinematic vertical video, photorealistic: %s", sectionText)
	}
	return fmt.Sprintf("Cinematic vertical video about %s, photorealistic: %s", topic, sectionText)
}
