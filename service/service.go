package service

import (
	"context"
	"errors"
	"time"
)

var ErrNonRetryable = errors.New("non-retryable error")

// MediaProcessor is the re-encode surface the adjuster and merger drive.
// Implemented by pkg/ffmpeg; faked in tests.
type MediaProcessor interface {
	ProbeDuration(ctx context.Context, path string) (time.Duration, error)
	Trim(ctx context.Context, in, out string, target time.Duration) error
	FreezeExtend(ctx context.Context, in, out string, target time.Duration) error
	LoopExtend(ctx context.Context, in, out string, target time.Duration) error
	ExtractLastFrame(ctx context.Context, in, outImage string) error
	StillClip(ctx context.Context, image, out string, d time.Duration) error
	KenBurnsClip(ctx context.Context, image, out string, d time.Duration) error
	ReplaceAudio(ctx context.Context, video, audio, out string) error
	Concat(ctx context.Context, inputs []string, out string) error
	OverlayNarration(ctx context.Context, video, narration, out string, limit time.Duration) error
}
