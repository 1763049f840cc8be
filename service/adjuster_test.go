package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"worker-shorts/constant"
)

func TestChooseAdjustment(t *testing.T) {
	tests := []struct {
		name  string
		delta time.Duration
		want  constant.AdjustmentType
	}{
		{name: "within tolerance", delta: 300 * time.Millisecond, want: constant.AdjustmentNone},
		{name: "within tolerance negative", delta: -400 * time.Millisecond, want: constant.AdjustmentNone},
		{name: "video too long", delta: -3 * time.Second, want: constant.AdjustmentTrim},
		{name: "short gap freezes", delta: 1200 * time.Millisecond, want: constant.AdjustmentFreeze},
		{name: "freeze boundary", delta: 2 * time.Second, want: constant.AdjustmentFreeze},
		{name: "medium gap zooms", delta: 3 * time.Second, want: constant.AdjustmentKenBurns},
		{name: "ken burns boundary", delta: 4 * time.Second, want: constant.AdjustmentKenBurns},
		{name: "large gap loops", delta: 4500 * time.Millisecond, want: constant.AdjustmentLoop},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ChooseAdjustment(tt.delta); got != tt.want {
				t.Errorf("ChooseAdjustment(%v) = %v, want %v", tt.delta, got, tt.want)
			}
		})
	}
}

func TestAdjustFreeze(t *testing.T) {
	media := newFakeMedia()
	media.durations["in.mp4"] = 7 * time.Second

	a := NewAdjuster(media)
	result, err := a.Adjust(context.Background(), "in.mp4", 8*time.Second, "", true, t.TempDir())
	if err != nil {
		t.Fatalf("Adjust() error = %v", err)
	}
	if result.AdjustmentType != constant.AdjustmentFreeze {
		t.Errorf("adjustment = %v, want freeze", result.AdjustmentType)
	}
	if result.FinalDuration != 8*time.Second {
		t.Errorf("final duration = %v, want 8s", result.FinalDuration)
	}
	if media.called("replaceaudio") {
		t.Error("audio replaced despite vendor-included audio")
	}
}

func TestAdjustTrimAndDub(t *testing.T) {
	media := newFakeMedia()
	media.durations["in.mp4"] = 10 * time.Second

	a := NewAdjuster(media)
	result, err := a.Adjust(context.Background(), "in.mp4", 6*time.Second, "seg.mp3", false, t.TempDir())
	if err != nil {
		t.Fatalf("Adjust() error = %v", err)
	}
	if result.AdjustmentType != constant.AdjustmentTrim {
		t.Errorf("adjustment = %v, want trim", result.AdjustmentType)
	}
	if !media.called("replaceaudio") {
		t.Error("expected narration to be dubbed onto the clip")
	}
	if result.FinalDuration != 6*time.Second {
		t.Errorf("final duration = %v, want 6s", result.FinalDuration)
	}
}

func TestAdjustKenBurnsComposite(t *testing.T) {
	media := newFakeMedia()
	media.durations["in.mp4"] = 5 * time.Second

	a := NewAdjuster(media)
	result, err := a.Adjust(context.Background(), "in.mp4", 8*time.Second, "", true, t.TempDir())
	if err != nil {
		t.Fatalf("Adjust() error = %v", err)
	}
	if result.AdjustmentType != constant.AdjustmentKenBurns {
		t.Errorf("adjustment = %v, want ken_burns", result.AdjustmentType)
	}
	for _, op := range []string{"lastframe", "kenburns", "concat", "trim"} {
		if !media.called(op) {
			t.Errorf("expected %s to run for ken burns extension", op)
		}
	}
	if result.FinalDuration != 8*time.Second {
		t.Errorf("final duration = %v, want 8s", result.FinalDuration)
	}
}

func TestAdjustFallsBackToSourceOnFailure(t *testing.T) {
	media := newFakeMedia()
	media.durations["in.mp4"] = 6 * time.Second
	media.fail["freeze"] = errors.New("encoder crashed")

	a := NewAdjuster(media)
	result, err := a.Adjust(context.Background(), "in.mp4", 7500*time.Millisecond, "", true, t.TempDir())
	if err != nil {
		t.Fatalf("Adjust() error = %v", err)
	}
	if result.AdjustedPath != "in.mp4" {
		t.Errorf("adjusted path = %q, want fallback to source", result.AdjustedPath)
	}
	if result.AdjustmentType != constant.AdjustmentNone {
		t.Errorf("adjustment = %v, want none after fallback", result.AdjustmentType)
	}
	if result.FinalDuration != 6*time.Second {
		t.Errorf("final duration = %v, want actual source duration", result.FinalDuration)
	}
}

func TestAdjustDubFailureKeepsNativeAudio(t *testing.T) {
	media := newFakeMedia()
	media.durations["in.mp4"] = 8 * time.Second
	media.fail["replaceaudio"] = errors.New("bad audio stream")

	a := NewAdjuster(media)
	result, err := a.Adjust(context.Background(), "in.mp4", 8*time.Second, "seg.mp3", false, t.TempDir())
	if err != nil {
		t.Fatalf("Adjust() error = %v", err)
	}
	if result.AdjustedPath != "in.mp4" {
		t.Errorf("adjusted path = %q, want original clip", result.AdjustedPath)
	}
}

func TestAdjustProbeFailure(t *testing.T) {
	media := newFakeMedia()
	media.fail["probe"] = errors.New("no such file")

	a := NewAdjuster(media)
	if _, err := a.Adjust(context.Background(), "missing.mp4", 8*time.Second, "", true, t.TempDir()); err == nil {
		t.Error("Adjust() expected error when the clip cannot be probed")
	}
}

func TestAdjustConcurrentJobsGetDistinctPaths(t *testing.T) {
	media := newFakeMedia()
	media.durations[filepath.Join("temp", "job-a", "scene_000.mp4")] = 10 * time.Second
	media.durations[filepath.Join("temp", "job-b", "scene_000.mp4")] = 10 * time.Second

	a := NewAdjuster(media)

	// same clip basename, different jobs: each job's work dir keeps the
	// adjusted outputs apart
	resA, err := a.Adjust(context.Background(), filepath.Join("temp", "job-a", "scene_000.mp4"), 6*time.Second, "", true, filepath.Join("temp", "job-a"))
	if err != nil {
		t.Fatalf("Adjust() error = %v", err)
	}
	resB, err := a.Adjust(context.Background(), filepath.Join("temp", "job-b", "scene_000.mp4"), 6*time.Second, "", true, filepath.Join("temp", "job-b"))
	if err != nil {
		t.Fatalf("Adjust() error = %v", err)
	}

	if resA.AdjustedPath == resB.AdjustedPath {
		t.Fatalf("both jobs adjusted to %q, outputs would overwrite each other", resA.AdjustedPath)
	}
	for _, res := range []AdjustResult{resA, resB} {
		if filepath.Dir(res.AdjustedPath) == "temp" {
			t.Errorf("adjusted path %q escaped the per-job directory", res.AdjustedPath)
		}
	}
}
