package service

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"

	"worker-shorts/constant"
)

// Thresholds for picking a time-correction strategy, in clip-relative
// delta (target minus actual).
const (
	adjustTolerance = 500 * time.Millisecond
	freezeCeiling   = 2 * time.Second
	kenBurnsCeiling = 4 * time.Second
)

// ChooseAdjustment maps the duration delta to a correction strategy.
// A static held frame reads fine for a short shortfall but is visually
// dead past two seconds, where a slow zoom takes over; past four seconds
// the source is long enough relative to the gap to loop instead.
func ChooseAdjustment(delta time.Duration) constant.AdjustmentType {
	switch {
	case delta > -adjustTolerance && delta < adjustTolerance:
		return constant.AdjustmentNone
	case delta < 0:
		return constant.AdjustmentTrim
	case delta <= freezeCeiling:
		return constant.AdjustmentFreeze
	case delta <= kenBurnsCeiling:
		return constant.AdjustmentKenBurns
	default:
		return constant.AdjustmentLoop
	}
}

type AdjustResult struct {
	AdjustedPath   string
	AdjustmentType constant.AdjustmentType
	FinalDuration  time.Duration
}

// Adjuster corrects a finished clip's length to its narration slot and
// optionally dubs the narration segment onto it.
type Adjuster struct {
	media MediaProcessor
}

func NewAdjuster(media MediaProcessor) *Adjuster {
	return &Adjuster{media: media}
}

// Adjust re-times videoPath to the target slot duration. audioPath is the
// slot's narration segment; it replaces the clip's native audio unless the
// provider already baked narration into the video (audioIncluded), in
// which case re-dubbing would desynchronize vendor lip movement from the
// voice. Media failures fall back to the unmodified source clip and the
// achieved duration is always reported so downstream can account for
// drift. workDir must be the caller's per-job directory: concurrent jobs
// adjust clips with identical basenames, so intermediate files cannot
// share a directory.
func (a *Adjuster) Adjust(ctx context.Context, videoPath string, target time.Duration, audioPath string, audioIncluded bool, workDir string) (AdjustResult, error) {
	actual, err := a.media.ProbeDuration(ctx, videoPath)
	if err != nil {
		return AdjustResult{}, fmt.Errorf("probe clip duration: %w", err)
	}

	adjustment := ChooseAdjustment(target - actual)

	adjustedPath, err := a.apply(ctx, adjustment, videoPath, target, workDir)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("adjustment", string(adjustment)).Msg("adjustment failed, falling back to source clip")
		adjustedPath = videoPath
		adjustment = constant.AdjustmentNone
	}

	if !audioIncluded && audioPath != "" {
		dubbed := workPath(workDir, adjustedPath, "dubbed")
		if err := a.media.ReplaceAudio(ctx, adjustedPath, audioPath, dubbed); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("dubbing failed, keeping native audio")
		} else {
			adjustedPath = dubbed
		}
	}

	final, err := a.media.ProbeDuration(ctx, adjustedPath)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("could not probe adjusted clip, reporting source duration")
		final = actual
	}

	return AdjustResult{
		AdjustedPath:   adjustedPath,
		AdjustmentType: adjustment,
		FinalDuration:  final,
	}, nil
}

func (a *Adjuster) apply(ctx context.Context, adjustment constant.AdjustmentType, videoPath string, target time.Duration, workDir string) (string, error) {
	switch adjustment {
	case constant.AdjustmentNone:
		return videoPath, nil

	case constant.AdjustmentTrim:
		out := workPath(workDir, videoPath, "trim")
		return out, a.media.Trim(ctx, videoPath, out, target)

	case constant.AdjustmentFreeze:
		out := workPath(workDir, videoPath, "freeze")
		return out, a.media.FreezeExtend(ctx, videoPath, out, target)

	case constant.AdjustmentKenBurns:
		frame := workPathExt(workDir, videoPath, "lastframe", ".jpg")
		if err := a.media.ExtractLastFrame(ctx, videoPath, frame); err != nil {
			return "", err
		}
		actual, err := a.media.ProbeDuration(ctx, videoPath)
		if err != nil {
			return "", err
		}
		zoom := workPath(workDir, videoPath, "zoom")
		if err := a.media.KenBurnsClip(ctx, frame, zoom, target-actual); err != nil {
			return "", err
		}
		joined := workPath(workDir, videoPath, "extended")
		if err := a.media.Concat(ctx, []string{videoPath, zoom}, joined); err != nil {
			return "", err
		}
		out := workPath(workDir, videoPath, "kenburns")
		return out, a.media.Trim(ctx, joined, out, target)

	case constant.AdjustmentLoop:
		out := workPath(workDir, videoPath, "loop")
		return out, a.media.LoopExtend(ctx, videoPath, out, target)

	default:
		return "", fmt.Errorf("unknown adjustment type %q", adjustment)
	}
}

func workPath(workDir, src, suffix string) string {
	return workPathExt(workDir, src, suffix, filepath.Ext(src))
}

func workPathExt(workDir, src, suffix, ext string) string {
	base := filepath.Base(src)
	base = base[:len(base)-len(filepath.Ext(base))]
	return filepath.Join(workDir, base+"_"+suffix+ext)
}
