package service

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"time"

	"github.com/rs/zerolog"
)

// mergeTolerance is how far total clip duration may fall short of the
// narration before filler footage is synthesized.
const mergeTolerance = 500 * time.Millisecond

// fillerMargin is added on top of the measured gap. Duration probing
// rounds; a filler that runs slightly long is trimmed by the final cap,
// one that runs short leaves frozen last frames.
const fillerMargin = time.Second

// MergeClip is one orchestrator result handed to the merger.
type MergeClip struct {
	Index     int
	Path      string
	Duration  time.Duration
	Completed bool
}

// Merger assembles adjusted or raw clips into one output whose duration
// equals the narration's.
type Merger struct {
	media MediaProcessor
}

func NewMerger(media MediaProcessor) *Merger {
	return &Merger{media: media}
}

// MergeAdjusted concatenates pre-adjusted clips in index order. Every clip
// already carries correct audio and duration, so this is a straight
// sequential join with no re-timing.
func (m *Merger) MergeAdjusted(ctx context.Context, clips []MergeClip, out string) error {
	ordered := completedByIndex(clips)
	if len(ordered) == 0 {
		return fmt.Errorf("%w: no clips to merge", ErrNonRetryable)
	}
	paths := make([]string, 0, len(ordered))
	for _, c := range ordered {
		paths = append(paths, c.Path)
	}
	return m.media.Concat(ctx, paths, out)
}

// MergeWithNarration assembles clips generated against a shared narration
// track. Failed clips are skipped entirely, with no gaps or black frames. If
// the completed clips run short of the narration, filler is synthesized
// from the last completed clip's final frame and appended, then the
// narration is overlaid and the output capped at exactly the narration
// length. With zero completed clips merging is impossible and the job
// must fail rather than emit a near-empty video.
func (m *Merger) MergeWithNarration(ctx context.Context, clips []MergeClip, narrationPath string, narrationDuration time.Duration, workDir, out string) error {
	ordered := completedByIndex(clips)
	if len(ordered) == 0 {
		return fmt.Errorf("%w: no clips completed, nothing to merge", ErrNonRetryable)
	}

	var total time.Duration
	paths := make([]string, 0, len(ordered)+1)
	for _, c := range ordered {
		total += c.Duration
		paths = append(paths, c.Path)
	}

	if total < narrationDuration-mergeTolerance {
		gap := narrationDuration - total
		fillerPath, err := m.synthesizeFiller(ctx, ordered[len(ordered)-1].Path, gap+fillerMargin, workDir)
		if err != nil {
			return fmt.Errorf("synthesize filler: %w", err)
		}
		paths = append(paths, fillerPath)
		zerolog.Ctx(ctx).Info().
			Dur("gap", gap).
			Int("completed_clips", len(ordered)).
			Msg("appended filler footage to cover narration gap")
	}

	concatPath := filepath.Join(workDir, "merged_silent.mp4")
	if err := m.media.Concat(ctx, paths, concatPath); err != nil {
		return fmt.Errorf("concatenate clips: %w", err)
	}

	if err := m.media.OverlayNarration(ctx, concatPath, narrationPath, out, narrationDuration); err != nil {
		return fmt.Errorf("overlay narration: %w", err)
	}
	return nil
}

// synthesizeFiller renders held-frame footage from a clip's final frame.
func (m *Merger) synthesizeFiller(ctx context.Context, lastClipPath string, d time.Duration, workDir string) (string, error) {
	framePath := filepath.Join(workDir, "filler_frame.jpg")
	if err := m.media.ExtractLastFrame(ctx, lastClipPath, framePath); err != nil {
		return "", err
	}
	fillerPath := filepath.Join(workDir, "filler.mp4")
	if err := m.media.StillClip(ctx, framePath, fillerPath, d); err != nil {
		return "", err
	}
	return fillerPath, nil
}

// completedByIndex filters to completed clips and restores script order.
// Polling settles clips out of order; index order is the single source of
// truth for playback order.
func completedByIndex(clips []MergeClip) []MergeClip {
	var ordered []MergeClip
	for _, c := range clips {
		if c.Completed && c.Path != "" {
			ordered = append(ordered, c)
		}
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Index < ordered[j].Index
	})
	return ordered
}
