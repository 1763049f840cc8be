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

type SceneService interface {
	Process(ctx context.Context, message dto.SceneJobMessage) error
}

type sceneService struct {
	repo     repository.JobRepository
	cfg      *config.Config
	registry *videogen.Registry
	orch     *Orchestrator
	adjuster *Adjuster
	merger   *Merger
	store    blob.Store
	progress *progress.Publisher
}

func NewSceneService(
	repo repository.JobRepository,
	cfg *config.Config,
	registry *videogen.Registry,
	orch *Orchestrator,
	adjuster *Adjuster,
	merger *Merger,
	store blob.Store,
	pub *progress.Publisher,
) SceneService {
	return &sceneService{
		repo:     repo,
		cfg:      cfg,
		registry: registry,
		orch:     orch,
		adjuster: adjuster,
		merger:   merger,
		store:    store,
		progress: pub,
	}
}

// Process runs the scene pipeline. Scenes arrive pre-segmented with their
// narration audio already attached; each rendered scene is adjusted to its
// audio duration, dubbed where the vendor did not bake audio in, then the
// adjusted scenes are concatenated in index order.
func (s *sceneService) Process(ctx context.Context, message dto.SceneJobMessage) (err error) {
	zerolog.Ctx(ctx).Info().Str("job_id", message.JobId.String()).Msg("processing scene job")

	job, err := s.repo.FindJobById(ctx, message.JobId)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to find job by id")
		return err
	}

	if job.Status != constant.JobStatusPending && job.Status != constant.JobStatusProcessing {
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

	scenes, err := s.repo.GetScenesByJobId(ctx, message.JobId)
	if err != nil {
		return err
	}
	if len(scenes) == 0 {
		return errors.Join(ErrNonRetryable, fmt.Errorf("job has no scenes"))
	}

	tempDir := filepath.Join("temp", message.JobId.String())
	defer os.RemoveAll(tempDir)
	if err = os.MkdirAll(tempDir, os.ModePerm); err != nil {
		return errors.Join(ErrNonRetryable, err)
	}

	s.step(ctx, job, constant.StepRender, constant.StepStatusProcessing)
	if err = s.renderScenes(ctx, job, scenes); err != nil {
		s.step(ctx, job, constant.StepRender, constant.StepStatusFailed)
		return err
	}
	s.step(ctx, job, constant.StepRender, constant.StepStatusCompleted)

	adjusted, err := s.adjustScenes(ctx, job, scenes, tempDir)
	if err != nil {
		return err
	}
	if len(adjusted) == 0 {
		return errors.Join(ErrNonRetryable, fmt.Errorf("no scene finished rendering"))
	}

	s.step(ctx, job, constant.StepMerge, constant.StepStatusProcessing)
	outPath := filepath.Join(tempDir, "final.mp4")
	if err = s.merger.MergeAdjusted(ctx, adjusted, outPath); err != nil {
		s.step(ctx, job, constant.StepMerge, constant.StepStatusFailed)
		return err
	}

	objectName := fmt.Sprintf("outputs/%s/final-%d.mp4", job.ID.String(), time.Now().UnixMilli())
	outputURL, err := s.store.SaveFile(ctx, outPath, objectName, "video/mp4")
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

	zerolog.Ctx(ctx).Info().
		Str("job_id", job.ID.String()).
		Str("output_url", outputURL).
		Int("scenes", len(adjusted)).
		Msg("scene job completed")

	return nil
}

// renderScenes drives generation through the orchestrator. Scenes are
// mirrored into clips for submission and polling, then the terminal state
// is written back to the scene rows. Scenes that already carry a provider
// job id are resumed, not resubmitted.
func (s *sceneService) renderScenes(ctx context.Context, job *entities.Job, scenes []*entities.Scene) error {
	pending := make([]*entities.Scene, 0, len(scenes))
	for _, scene := range scenes {
		if scene.ProviderJobId == nil && !scene.Status.IsTerminal() {
			pending = append(pending, scene)
		}
	}

	if len(pending) > 0 {
		reqs := make([]ClipRequest, 0, len(pending))
		for _, scene := range pending {
			reqs = append(reqs, ClipRequest{
				Section: ScriptSection{
					Text:            scene.ScriptSection,
					DurationSeconds: float64(scene.AudioDurationMs) / 1000,
				},
				Prompt: scene.Prompt,
			})
		}
		clips := s.orch.RequestAll(ctx, job.ID, reqs, job.Provider, job.Model, s.cfg.Render.AspectRatio)
		for i, clip := range clips {
			syncSceneFromClip(pending[i], clip)
		}
	}

	clips := clipsFromScenes(scenes)
	s.syncScenes(ctx, scenes, clips)

	settled := s.orch.PollOnce(ctx, clips)
	for tick := 1; !settled && tick < s.cfg.Render.MaxPollTicks; tick++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.Render.PollInterval):
		}
		settled = s.orch.PollOnce(ctx, clips)
		s.syncScenes(ctx, scenes, clips)
	}

	if !settled {
		for _, clip := range clips {
			if clip.Status.IsTerminal() {
				continue
			}
			markClipFailed(clip, fmt.Errorf("scene did not settle within %d poll ticks", s.cfg.Render.MaxPollTicks))
			zerolog.Ctx(ctx).Warn().Int("scene_index", clip.ClipIndex).Msg("scene render timed out, proceeding without it")
		}
	}
	s.syncScenes(ctx, scenes, clips)

	return nil
}

// adjustScenes fits each rendered scene to its narration audio and dubs
// the audio in unless the vendor already baked it into the video. A scene
// whose media work fails keeps its unmodified render rather than failing
// the job.
func (s *sceneService) adjustScenes(ctx context.Context, job *entities.Job, scenes []*entities.Scene, tempDir string) ([]MergeClip, error) {
	adjusted := make([]MergeClip, 0, len(scenes))
	for _, scene := range scenes {
		if scene.Status != constant.ClipStatusCompleted && scene.Status != constant.ClipStatusAdjusted {
			continue
		}
		if scene.VideoURL == nil {
			continue
		}

		videoPath := filepath.Join(tempDir, fmt.Sprintf("scene_%03d.mp4", scene.SceneIndex))
		if err := s.store.FetchToFile(ctx, *scene.VideoURL, videoPath); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Int("scene_index", scene.SceneIndex).Msg("failed to fetch scene video, skipping")
			continue
		}

		audioPath := ""
		if scene.AudioURL != nil && *scene.AudioURL != "" {
			audioPath = filepath.Join(tempDir, fmt.Sprintf("scene_%03d.mp3", scene.SceneIndex))
			if err := s.store.FetchToFile(ctx, *scene.AudioURL, audioPath); err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Int("scene_index", scene.SceneIndex).Msg("failed to fetch scene audio, keeping native audio")
				audioPath = ""
			}
		}

		target := time.Duration(scene.AudioDurationMs) * time.Millisecond
		result, err := s.adjuster.Adjust(ctx, videoPath, target, audioPath, scene.AudioIncluded, tempDir)
		if err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Int("scene_index", scene.SceneIndex).Msg("scene adjustment failed, using unmodified render")
			result = AdjustResult{AdjustedPath: videoPath, AdjustmentType: constant.AdjustmentNone, FinalDuration: target}
		}

		scene.Status = constant.ClipStatusAdjusted
		adjType := result.AdjustmentType
		scene.AdjustmentType = &adjType
		scene.AdjustedVideoPath = &result.AdjustedPath
		scene.VideoDurationMs = result.FinalDuration.Milliseconds()
		if err := s.repo.UpdateScene(ctx, scene); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Int("scene_index", scene.SceneIndex).Msg("failed to persist scene adjustment")
		}

		adjusted = append(adjusted, MergeClip{
			Index:     scene.SceneIndex,
			Path:      result.AdjustedPath,
			Duration:  result.FinalDuration,
			Completed: true,
		})
	}
	return adjusted, nil
}

func (s *sceneService) syncScenes(ctx context.Context, scenes []*entities.Scene, clips []*entities.Clip) {
	byIndex := make(map[int]*entities.Scene, len(scenes))
	for _, scene := range scenes {
		byIndex[scene.SceneIndex] = scene
	}
	for _, clip := range clips {
		scene, ok := byIndex[clip.ClipIndex]
		if !ok {
			continue
		}
		syncSceneFromClip(scene, clip)
		if err := s.repo.UpdateScene(ctx, scene); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Int("scene_index", scene.SceneIndex).Msg("failed to persist scene state")
		}
	}
}

func (s *sceneService) step(ctx context.Context, job *entities.Job, name constant.StepName, status constant.StepStatus) {
	if err := s.repo.UpsertStep(ctx, job.ID, name, status); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("step", string(name)).Msg("failed to persist pipeline step")
	}
	s.progress.Step(ctx, job.ID.String(), name, status)
}

func syncSceneFromClip(scene *entities.Scene, clip *entities.Clip) {
	// adjusted scenes are already past rendering; never regress them
	if scene.Status == constant.ClipStatusAdjusted {
		return
	}
	scene.Status = clip.Status
	scene.ProviderJobId = clip.ProviderJobId
	scene.VideoURL = clip.VideoURL
	scene.ErrorMessage = clip.ErrorMessage
}

func clipsFromScenes(scenes []*entities.Scene) []*entities.Clip {
	clips := make([]*entities.Clip, 0, len(scenes))
	for _, scene := range scenes {
		status := scene.Status
		if status == constant.ClipStatusAdjusted {
			status = constant.ClipStatusCompleted
		}
		clips = append(clips, &entities.Clip{
			ID:            scene.ID,
			JobId:         scene.JobId,
			ClipIndex:     scene.SceneIndex,
			ScriptSection: scene.ScriptSection,
			Prompt:        scene.Prompt,
			Status:        status,
			ProviderJobId: scene.ProviderJobId,
			VideoURL:      scene.VideoURL,
			ErrorMessage:  scene.ErrorMessage,
		})
	}
	return clips
}
