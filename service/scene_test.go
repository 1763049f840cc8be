package service

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"worker-shorts/constant"
	"worker-shorts/dto"
	"worker-shorts/entities"
	"worker-shorts/pkg/videogen"
)

func setupScenes(job *entities.Job, scenes []*entities.Scene, p *fakeProvider) (SceneService, *fakeRepo, *fakeMedia, *fakeStore) {
	repo := newFakeRepo(job)
	repo.scenes = scenes
	media := newFakeMedia()
	store := newFakeStore()
	cfg := testRenderConfig()
	registry := videogen.NewRegistry(p)
	orch := NewOrchestrator(registry, store)
	orch.sleep = func(time.Duration) {}
	adjuster := NewAdjuster(media)
	merger := NewMerger(media)
	svc := NewSceneService(repo, cfg, registry, orch, adjuster, merger, store, nil)
	return svc, repo, media, store
}

func strptr(s string) *string { return &s }

func TestSceneProcessAdjustsAndMerges(t *testing.T) {
	jobID := uuid.New()
	job := &entities.Job{
		ID:       jobID,
		JobType:  constant.JobTypeScene,
		Status:   constant.JobStatusPending,
		Provider: "veo3",
	}

	p := newFakeProvider("veo3")
	p.pollResults["remote-0"] = []videogen.PollResult{
		{Status: videogen.StatusCompleted, VideoURL: "https://vendor/0.mp4"},
	}
	p.pollResults["remote-1"] = []videogen.PollResult{
		{Status: videogen.StatusCompleted, VideoURL: "https://vendor/1.mp4"},
	}

	scenes := []*entities.Scene{
		{
			ID:              uuid.New(),
			JobId:           jobID,
			SceneIndex:      0,
			ScriptSection:   "A lighthouse stands against the waves.",
			Prompt:          "lighthouse in a storm",
			Status:          constant.ClipStatusPending,
			AudioDurationMs: 8000,
			AudioURL:        strptr("audio/seg0.mp3"),
		},
		{
			ID:              uuid.New(),
			JobId:           jobID,
			SceneIndex:      1,
			ScriptSection:   "The keeper climbs the spiral stairs.",
			Prompt:          "keeper climbing stairs",
			Status:          constant.ClipStatusPending,
			AudioDurationMs: 6000,
			AudioIncluded:   true,
		},
	}

	svc, _, media, store := setupScenes(job, scenes, p)

	store.objects["audio/seg0.mp3"] = []byte("mp3")

	tempDir := filepath.Join("temp", jobID.String())
	// scene 0 comes back 1.2s short, scene 1 two and a half seconds long
	media.durations[filepath.Join(tempDir, "scene_000.mp4")] = 6800 * time.Millisecond
	media.durations[filepath.Join(tempDir, "scene_001.mp4")] = 8500 * time.Millisecond

	if err := svc.Process(context.Background(), dto.SceneJobMessage{JobId: jobID}); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if job.Status != constant.JobStatusCompleted {
		t.Fatalf("job status = %v, want COMPLETED", job.Status)
	}
	if job.OutputURL == nil {
		t.Fatal("job completed without an output url")
	}

	for i, scene := range scenes {
		if scene.Status != constant.ClipStatusAdjusted {
			t.Errorf("scene %d status = %v, want ADJUSTED", i, scene.Status)
		}
		if scene.AdjustmentType == nil {
			t.Fatalf("scene %d has no adjustment type", i)
		}
	}
	if got := *scenes[0].AdjustmentType; got != constant.AdjustmentFreeze {
		t.Errorf("scene 0 adjustment = %v, want freeze for a 1.2s shortfall", got)
	}
	if got := *scenes[1].AdjustmentType; got != constant.AdjustmentTrim {
		t.Errorf("scene 1 adjustment = %v, want trim for an overlong render", got)
	}
	if scenes[0].VideoDurationMs != 8000 {
		t.Errorf("scene 0 adjusted duration = %dms, want 8000", scenes[0].VideoDurationMs)
	}

	// scene 0 gets its narration segment dubbed in; scene 1 keeps the
	// vendor's baked-in audio
	if !media.called("replaceaudio") {
		t.Error("expected narration dub for the scene without vendor audio")
	}
	if media.called("overlay") {
		t.Error("scene merge must not overlay a global narration track")
	}
}

func TestSceneProcessNoScenesIsFatal(t *testing.T) {
	jobID := uuid.New()
	job := &entities.Job{ID: jobID, Status: constant.JobStatusPending, Provider: "veo3"}

	svc, repo, _, _ := setupScenes(job, nil, newFakeProvider("veo3"))
	if err := svc.Process(context.Background(), dto.SceneJobMessage{JobId: jobID}); err != nil {
		t.Fatalf("Process() error = %v, want nil for a fatal job", err)
	}
	if job.Status != constant.JobStatusFailed {
		t.Errorf("job status = %v, want FAILED", job.Status)
	}
	if repo.lastError == "" {
		t.Error("fatal job recorded no error message")
	}
}

func TestSceneProcessResumesSubmittedScenes(t *testing.T) {
	jobID := uuid.New()
	job := &entities.Job{ID: jobID, Status: constant.JobStatusProcessing, Provider: "veo3"}

	p := newFakeProvider("veo3")
	p.pollResults["prior-id"] = []videogen.PollResult{
		{Status: videogen.StatusCompleted, VideoURL: "https://vendor/prior.mp4"},
	}

	scenes := []*entities.Scene{
		{
			ID:              uuid.New(),
			JobId:           jobID,
			SceneIndex:      0,
			Status:          constant.ClipStatusProcessing,
			ProviderJobId:   strptr("veo3:prior-id"),
			AudioDurationMs: 8000,
			AudioIncluded:   true,
		},
	}

	svc, _, media, _ := setupScenes(job, scenes, p)
	media.durations[filepath.Join("temp", jobID.String(), "scene_000.mp4")] = 8 * time.Second

	if err := svc.Process(context.Background(), dto.SceneJobMessage{JobId: jobID}); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if p.submits != 0 {
		t.Errorf("resumed job resubmitted %d scenes, want 0", p.submits)
	}
	if job.Status != constant.JobStatusCompleted {
		t.Errorf("job status = %v, want COMPLETED", job.Status)
	}
}

func TestSceneProcessRecordsSceneFailure(t *testing.T) {
	jobID := uuid.New()
	job := &entities.Job{
		ID:       jobID,
		JobType:  constant.JobTypeScene,
		Status:   constant.JobStatusPending,
		Provider: "veo3",
	}

	p := newFakeProvider("veo3")
	p.submitErr[0] = fmt.Errorf("vendor rejected the prompt")
	p.pollResults["remote-1"] = []videogen.PollResult{
		{Status: videogen.StatusCompleted, VideoURL: "https://vendor/1.mp4"},
	}

	scenes := []*entities.Scene{
		{
			ID:              uuid.New(),
			JobId:           jobID,
			SceneIndex:      0,
			ScriptSection:   "A lighthouse stands against the waves.",
			Prompt:          "lighthouse in a storm",
			Status:          constant.ClipStatusPending,
			AudioDurationMs: 8000,
		},
		{
			ID:              uuid.New(),
			JobId:           jobID,
			SceneIndex:      1,
			ScriptSection:   "The keeper climbs the spiral stairs.",
			Prompt:          "keeper climbing stairs",
			Status:          constant.ClipStatusPending,
			AudioDurationMs: 8000,
			AudioIncluded:   true,
		},
	}

	svc, _, media, _ := setupScenes(job, scenes, p)
	media.durations[filepath.Join("temp", jobID.String(), "scene_001.mp4")] = 8 * time.Second

	if err := svc.Process(context.Background(), dto.SceneJobMessage{JobId: jobID}); err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if job.Status != constant.JobStatusCompleted {
		t.Fatalf("job status = %v, want COMPLETED despite one failed scene", job.Status)
	}
	if scenes[0].Status != constant.ClipStatusFailed {
		t.Errorf("scene 0 status = %v, want FAILED", scenes[0].Status)
	}
	if scenes[0].ErrorMessage == nil || *scenes[0].ErrorMessage == "" {
		t.Error("failed scene persisted no error message")
	}
	if scenes[1].Status != constant.ClipStatusAdjusted {
		t.Errorf("scene 1 status = %v, want ADJUSTED", scenes[1].Status)
	}
}
