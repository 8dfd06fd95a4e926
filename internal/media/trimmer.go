package media

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"yt2mp3/internal/config"
	"yt2mp3/internal/exec"
)

// Trimmer cuts a time range out of an MP3 with ffmpeg.
type Trimmer struct {
	config config.Config
	runner exec.Runner
}

func NewTrimmer(config config.Config, runner exec.Runner) *Trimmer {
	return &Trimmer{
		config: config,
		runner: runner,
	}
}

// TrimAudio re-encodes inputPath into outputPath between start and end
// (seconds). A nil bound means "from the beginning" / "to the end"; at least
// one bound is required. totalDuration <= 0 means unknown.
func (trimmer *Trimmer) TrimAudio(ctx context.Context, inputPath, outputPath string, start, end *int, totalDuration int) (string, error) {
	args, err := TrimArgs(inputPath, outputPath, start, end, totalDuration)
	if err != nil {
		return "", err
	}

	ctx, cancel := withTimeout(ctx, trimmer.config.TrimTimeout)
	defer cancel()

	log.Printf("[FFMPEG] Trimming: %s", strings.Join(args, " "))
	if _, err := trimmer.runner.Run(ctx, trimmer.config.FFmpegPath, args...); err != nil {
		removeQuiet(outputPath)
		return "", fmt.Errorf("ffmpeg trim: %w", err)
	}
	if _, err := os.Stat(outputPath); err != nil {
		return "", fmt.Errorf("ffmpeg trim: %w: %s", ErrNoOutput, outputPath)
	}
	return outputPath, nil
}

// TrimArgs builds the ffmpeg command line for a trim.
func TrimArgs(inputPath, outputPath string, start, end *int, totalDuration int) ([]string, error) {
	if start == nil && end == nil {
		return nil, ErrNoTrimBounds
	}

	from := 0
	if start != nil {
		from = *start
		if from < 0 || (totalDuration > 0 && from >= totalDuration) {
			return nil, fmt.Errorf("%w: start %ds outside 0-%ds", ErrInvalidTrim, from, totalDuration)
		}
	}

	args := []string{"-y", "-i", inputPath}
	if from > 0 {
		args = append(args, "-ss", strconv.Itoa(from))
	}
	if end != nil && *end > 0 && (totalDuration <= 0 || *end < totalDuration) {
		cut := *end - from
		if cut <= 0 {
			return nil, fmt.Errorf("%w: end %ds is not after start %ds", ErrInvalidTrim, *end, from)
		}
		args = append(args, "-t", strconv.Itoa(cut))
	}

	args = append(args,
		"-c:a", "libmp3lame",
		"-q:a", "0",
		"-map_metadata", "0",
		"-id3v2_version", "3",
		outputPath,
	)
	return args, nil
}
