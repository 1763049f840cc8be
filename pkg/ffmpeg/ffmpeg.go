// Package ffmpeg shells out to ffmpeg/ffprobe for every media operation
// the pipeline needs: probing, re-timing, dubbing and concatenation.
package ffmpeg

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Adapter struct {
	ffmpeg  string
	ffprobe string
}

func New(ffmpegPath, ffprobePath string) *Adapter {
	if ffmpegPath == "" {
		ffmpegPath = "ffmpeg"
	}
	if ffprobePath == "" {
		ffprobePath = "ffprobe"
	}
	return &Adapter{ffmpeg: ffmpegPath, ffprobe: ffprobePath}
}

func (a *Adapter) run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, a.ffmpeg, args...)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("ffmpeg %s: %w\n%s", args[len(args)-1], err, string(b))
	}
	return nil
}

// ProbeDuration returns the container duration of a media file.
func (a *Adapter) ProbeDuration(ctx context.Context, path string) (time.Duration, error) {
	cmd := exec.CommandContext(ctx, a.ffprobe,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	b, err := cmd.CombinedOutput()
	if err != nil {
		return 0, fmt.Errorf("ffprobe duration: %w\n%s", err, string(b))
	}
	s := strings.TrimSpace(string(b))
	sec, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return time.Duration(sec * float64(time.Second)), nil
}

// Trim cuts a clip down to the target duration.
func (a *Adapter) Trim(ctx context.Context, in, out string, target time.Duration) error {
	return a.run(ctx,
		"-y",
		"-i", in,
		"-t", fmtSeconds(target),
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "22",
		"-c:a", "aac",
		"-pix_fmt", "yuv420p",
		out,
	)
}

// FreezeExtend holds the final frame until the clip reaches the target
// duration.
func (a *Adapter) FreezeExtend(ctx context.Context, in, out string, target time.Duration) error {
	return a.run(ctx,
		"-y",
		"-i", in,
		"-vf", fmt.Sprintf("tpad=stop_mode=clone:stop_duration=%s", fmtSeconds(target)),
		"-t", fmtSeconds(target),
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "22",
		"-c:a", "aac",
		"-pix_fmt", "yuv420p",
		out,
	)
}

// LoopExtend plays the clip on repeat and truncates at the target duration.
func (a *Adapter) LoopExtend(ctx context.Context, in, out string, target time.Duration) error {
	return a.run(ctx,
		"-y",
		"-stream_loop", "-1",
		"-i", in,
		"-t", fmtSeconds(target),
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "22",
		"-c:a", "aac",
		"-pix_fmt", "yuv420p",
		out,
	)
}

// ExtractLastFrame writes the final frame of a clip as a still image.
func (a *Adapter) ExtractLastFrame(ctx context.Context, in, outImage string) error {
	return a.run(ctx,
		"-y",
		"-sseof", "-0.1",
		"-i", in,
		"-frames:v", "1",
		"-q:v", "2",
		outImage,
	)
}

// StillClip renders a held still image as a silent video of the given
// duration, matching the pipeline's output geometry.
func (a *Adapter) StillClip(ctx context.Context, image, out string, d time.Duration) error {
	return a.run(ctx,
		"-y",
		"-loop", "1",
		"-i", image,
		"-t", fmtSeconds(d),
		"-vf", "scale=1080:1920:force_original_aspect_ratio=decrease,pad=1080:1920:(ow-iw)/2:(oh-ih)/2,setsar=1",
		"-r", "30",
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "22",
		"-pix_fmt", "yuv420p",
		"-an",
		out,
	)
}

// KenBurnsClip renders a slow continuous zoom on a still image. Used to
// bridge 2-4s gaps where a static held frame reads as dead air.
func (a *Adapter) KenBurnsClip(ctx context.Context, image, out string, d time.Duration) error {
	frames := int(d.Seconds() * 30)
	if frames < 1 {
		frames = 1
	}
	zoom := fmt.Sprintf(
		"zoompan=z='min(zoom+0.0008,1.2)':d=%d:x='iw/2-(iw/zoom/2)':y='ih/2-(ih/zoom/2)':s=1080x1920:fps=30",
		frames,
	)
	return a.run(ctx,
		"-y",
		"-loop", "1",
		"-i", image,
		"-t", fmtSeconds(d),
		"-vf", zoom,
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "22",
		"-pix_fmt", "yuv420p",
		"-an",
		out,
	)
}

// ReplaceAudio swaps the clip's native audio track for the narration
// segment. The output stops at whichever input is shorter.
func (a *Adapter) ReplaceAudio(ctx context.Context, video, audio, out string) error {
	return a.run(ctx,
		"-y",
		"-i", video,
		"-i", audio,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		out,
	)
}

// Concat joins clips in the given order via a concat list file. All inputs
// are re-encoded to a uniform codec so mixed vendor outputs splice cleanly.
func (a *Adapter) Concat(ctx context.Context, inputs []string, out string) error {
	if len(inputs) == 0 {
		return fmt.Errorf("no inputs to concatenate")
	}

	listFile := filepath.Join(filepath.Dir(out), "concat_list.txt")
	defer os.Remove(listFile)

	var lines []string
	for _, in := range inputs {
		abs, err := filepath.Abs(in)
		if err != nil {
			return fmt.Errorf("failed to get absolute path: %w", err)
		}
		escaped := strings.ReplaceAll(abs, "'", "'\\''")
		lines = append(lines, fmt.Sprintf("file '%s'", escaped))
	}
	if err := os.WriteFile(listFile, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		return fmt.Errorf("failed to create concat file: %w", err)
	}

	return a.run(ctx,
		"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-vf", "scale=1080:1920:force_original_aspect_ratio=decrease,pad=1080:1920:(ow-iw)/2:(oh-ih)/2,setsar=1",
		"-r", "30",
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "22",
		"-c:a", "aac",
		"-b:a", "192k",
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		out,
	)
}

// OverlayNarration replaces the concatenated video's audio with the
// narration track and caps the output at exactly the narration length.
func (a *Adapter) OverlayNarration(ctx context.Context, video, narration, out string, limit time.Duration) error {
	return a.run(ctx,
		"-y",
		"-i", video,
		"-i", narration,
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-t", fmtSeconds(limit),
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "22",
		"-c:a", "aac",
		"-b:a", "192k",
		"-pix_fmt", "yuv420p",
		"-movflags", "+faststart",
		out,
	)
}

func fmtSeconds(d time.Duration) string {
	sec := float64(d) / float64(time.Second)
	return strconv.FormatFloat(sec, 'f', 3, 64)
}
