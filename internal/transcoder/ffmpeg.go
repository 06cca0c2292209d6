package transcoder

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/hszk-dev/clipforge/internal/domain/model"
)

// FFmpegConfig holds configuration for the FFmpeg transcoder.
type FFmpegConfig struct {
	// FFmpegPath is the path to the ffmpeg binary.
	// If empty, "ffmpeg" will be used (assumes it's in PATH).
	FFmpegPath string

	// FFprobePath is the path to the ffprobe binary.
	// If empty, "ffprobe" will be used.
	FFprobePath string

	// VideoCodec is the video codec to use.
	// Default: libx265
	VideoCodec string

	// VideoTag marks the codec for broad player compatibility.
	// Default: hvc1 (required for HEVC playback on Apple devices)
	VideoTag string

	// VideoPreset controls the encoding speed/quality tradeoff.
	// Default: medium
	VideoPreset string

	// CRF is the constant rate factor (quality). Default: 23
	CRF int
}

// DefaultFFmpegConfig returns an FFmpegConfig with production-ready defaults.
func DefaultFFmpegConfig() FFmpegConfig {
	return FFmpegConfig{
		FFmpegPath:  "ffmpeg",
		FFprobePath: "ffprobe",
		VideoCodec:  "libx265",
		VideoTag:    "hvc1",
		VideoPreset: "medium",
		CRF:         23,
	}
}

// FFmpegTranscoder implements Transcoder using the FFmpeg CLI.
type FFmpegTranscoder struct {
	config FFmpegConfig
}

// Compile-time verification that FFmpegTranscoder implements Transcoder.
var _ Transcoder = (*FFmpegTranscoder)(nil)

// NewFFmpegTranscoder creates a new FFmpeg-based transcoder.
func NewFFmpegTranscoder(cfg FFmpegConfig) *FFmpegTranscoder {
	if cfg.FFmpegPath == "" {
		cfg.FFmpegPath = "ffmpeg"
	}
	if cfg.FFprobePath == "" {
		cfg.FFprobePath = "ffprobe"
	}
	return &FFmpegTranscoder{config: cfg}
}

// Process runs FFmpeg as a subprocess and waits for completion. Cancelling
// ctx (timeout or shutdown) kills the subprocess.
func (t *FFmpegTranscoder) Process(ctx context.Context, inputPath, outputPath string, opts model.EditOptions) error {
	if err := t.validateInput(inputPath); err != nil {
		return err
	}

	args := t.buildArgs(inputPath, outputPath, opts)

	cmd := exec.CommandContext(ctx, t.config.FFmpegPath, args...)
	cmd.Stdout = nil // Discard stdout
	cmd.Stderr = nil // Discard stderr (FFmpeg outputs progress to stderr)

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("transcoding cancelled: %w", ctx.Err())
		}
		return fmt.Errorf("ffmpeg execution failed: %w", err)
	}

	return nil
}

// Probe asks ffprobe for the container duration in seconds.
func (t *FFmpegTranscoder) Probe(ctx context.Context, path string) (float64, error) {
	if err := t.validateInput(path); err != nil {
		return 0, err
	}

	cmd := exec.CommandContext(ctx, t.config.FFprobePath,
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := cmd.Output()
	if err != nil {
		if ctx.Err() != nil {
			return 0, fmt.Errorf("probe cancelled: %w", ctx.Err())
		}
		return 0, fmt.Errorf("ffprobe execution failed: %w", err)
	}

	return parseProbeDuration(out)
}

// parseProbeDuration reads ffprobe's single-value output. Streams without a
// container duration print "N/A".
func parseProbeDuration(out []byte) (float64, error) {
	raw := strings.TrimSpace(string(out))
	seconds, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("unexpected ffprobe output %q: %w", raw, err)
	}
	if seconds < 0 {
		return 0, fmt.Errorf("negative duration %f from ffprobe", seconds)
	}
	return seconds, nil
}

// validateInput checks if the input file exists and is readable.
func (t *FFmpegTranscoder) validateInput(inputPath string) error {
	info, err := os.Stat(inputPath)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("input file does not exist: %s", inputPath)
		}
		return fmt.Errorf("failed to access input file: %w", err)
	}

	if info.IsDir() {
		return fmt.Errorf("input path is a directory, expected a file: %s", inputPath)
	}

	return nil
}

// buildArgs constructs the FFmpeg command arguments for an edit job.
//
// Cut handling: the start offset goes on the input side for fast seeking;
// the output duration is end-start. An end at or before the start is dropped
// with a warning rather than rejected.
func (t *FFmpegTranscoder) buildArgs(inputPath, outputPath string, opts model.EditOptions) []string {
	args := make([]string, 0, 24)

	start := 0.0
	if opts.CutStartTime != nil && *opts.CutStartTime > 0 {
		start = *opts.CutStartTime
	}
	if opts.CutStartTime != nil && *opts.CutStartTime >= 0 {
		args = append(args, "-ss", formatSeconds(*opts.CutStartTime))
	}

	args = append(args, "-i", inputPath)

	if opts.CutEndTime != nil {
		duration := *opts.CutEndTime - start
		if duration > 0 {
			args = append(args, "-t", formatSeconds(duration))
		} else {
			slog.Warn("ignoring cut end time at or before start",
				slog.Float64("cut_end_time", *opts.CutEndTime),
				slog.Float64("cut_start_time", start),
			)
		}
	}

	if opts.TargetResolutionHeight != nil && *opts.TargetResolutionHeight > 0 {
		// -2 keeps the width divisible by 2 (required by many codecs).
		args = append(args, "-vf", fmt.Sprintf("scale=-2:%d", *opts.TargetResolutionHeight))
	}

	if opts.Mute {
		args = append(args, "-an")
	} else {
		args = append(args, "-c:a", "copy")
	}

	args = append(args,
		"-c:v", t.config.VideoCodec,
		"-tag:v", t.config.VideoTag,
		"-preset", t.config.VideoPreset,
		"-crf", strconv.Itoa(t.config.CRF),
		"-y", // Overwrite output files without asking
		outputPath,
	)

	return args
}

func formatSeconds(v float64) string {
	if v < 0 {
		v = 0
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
