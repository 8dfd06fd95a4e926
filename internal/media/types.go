package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

const (
	UnknownTitle   = "Unknown Title"
	UnknownChannel = "Unknown Channel"

	maxTags = 5
)

var (
	// ErrNoOutput indicates the tool exited cleanly but left no output file.
	ErrNoOutput = errors.New("output file not found")
	// ErrNoTrimBounds indicates a trim was requested without start or end.
	ErrNoTrimBounds = errors.New("trim requires a start or an end")
	// ErrInvalidTrim indicates the bounds describe an empty or inverted range.
	ErrInvalidTrim = errors.New("invalid trim range")
)

// VideoMetadata is the normalized result of an info lookup.
type VideoMetadata struct {
	Title             string            `json:"title"`
	Channel           string            `json:"channel"`
	Duration          int               `json:"duration"`
	Thumbnail         string            `json:"thumbnail"`
	VideoID           string            `json:"videoId,omitempty"`
	AudioBitrate      *float64          `json:"audioBitrate"`
	EstimatedFileSize *string           `json:"estimatedFileSize"`
	Artist            *string           `json:"artist"`
	Album             *string           `json:"album"`
	Track             *string           `json:"track"`
	Genre             *string           `json:"genre"`
	Year              *string           `json:"year"`
	Tags              []string          `json:"tags"`
	Chapters          []json.RawMessage `json:"chapters"`
}

// Fetcher resolves a video URL to its metadata.
type Fetcher interface {
	GetInfo(ctx context.Context, url string) (*VideoMetadata, error)
}

// Converter extracts a video's audio track into an MP3 at outputPath.
type Converter interface {
	ConvertToMP3(ctx context.Context, url, outputPath string) (string, error)
}

// AudioTrimmer cuts a sub-range of an existing MP3.
type AudioTrimmer interface {
	TrimAudio(ctx context.Context, inputPath, outputPath string, start, end *int, totalDuration int) (string, error)
}

// ParseError is malformed structured output from a collaborator.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s output: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// estimateFileSize applies the 1.8 MB per minute heuristic.
func estimateFileSize(durationSeconds int) *string {
	mb := float64(durationSeconds) / 60 * 1.8
	if mb <= 0 {
		return nil
	}
	var s string
	if mb < 1 {
		s = fmt.Sprintf("%d KB", int(mb*1024+0.5))
	} else {
		s = fmt.Sprintf("~%.1f MB", mb)
	}
	return &s
}

// firstNonEmpty returns the first non-blank value, or nil.
func firstNonEmpty(values ...string) *string {
	for _, v := range values {
		if v != "" {
			return &v
		}
	}
	return nil
}

func limitTags(tags []string) []string {
	out := make([]string, 0, maxTags)
	for _, t := range tags {
		if len(out) == maxTags {
			break
		}
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
