package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"yt2mp3/internal/exec"
)

func intPtr(n int) *int { return &n }

func TestTrimArgs(t *testing.T) {
	tail := []string{"-c:a", "libmp3lame", "-q:a", "0", "-map_metadata", "0", "-id3v2_version", "3", "out.mp3"}
	head := []string{"-y", "-i", "in.mp3"}
	join := func(parts ...[]string) []string {
		var out []string
		for _, p := range parts {
			out = append(out, p...)
		}
		return out
	}

	tests := []struct {
		name  string
		start *int
		end   *int
		total int
		want  []string
	}{
		{name: "both bounds", start: intPtr(10), end: intPtr(40), total: 300, want: join(head, []string{"-ss", "10", "-t", "30"}, tail)},
		{name: "end only", end: intPtr(40), total: 300, want: join(head, []string{"-t", "40"}, tail)},
		{name: "start only", start: intPtr(10), total: 300, want: join(head, []string{"-ss", "10"}, tail)},
		{name: "zero start is ignored", start: intPtr(0), end: intPtr(40), total: 300, want: join(head, []string{"-t", "40"}, tail)},
		{name: "end at total is natural end", start: intPtr(10), end: intPtr(300), total: 300, want: join(head, []string{"-ss", "10"}, tail)},
		{name: "end past total", end: intPtr(500), total: 300, want: join(head, tail)},
		{name: "unknown total keeps end", end: intPtr(40), total: 0, want: join(head, []string{"-t", "40"}, tail)},
	}
	for _, tt := range tests {
		got, err := TrimArgs("in.mp3", "out.mp3", tt.start, tt.end, tt.total)
		if err != nil {
			t.Fatalf("%s: error=%v", tt.name, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Fatalf("%s:\n got %v\nwant %v", tt.name, got, tt.want)
		}
	}
}

func TestTrimArgs_Invalid(t *testing.T) {
	if _, err := TrimArgs("in", "out", nil, nil, 100); !errors.Is(err, ErrNoTrimBounds) {
		t.Fatalf("expected ErrNoTrimBounds, got %v", err)
	}
	if _, err := TrimArgs("in", "out", intPtr(50), intPtr(40), 100); !errors.Is(err, ErrInvalidTrim) {
		t.Fatalf("expected ErrInvalidTrim for inverted range, got %v", err)
	}
	if _, err := TrimArgs("in", "out", intPtr(400), nil, 300); !errors.Is(err, ErrInvalidTrim) {
		t.Fatalf("expected ErrInvalidTrim for start past end, got %v", err)
	}
}

func TestTrimAudio_RunsFFmpeg(t *testing.T) {
	cfg := testConfig(t)
	out := filepath.Join(cfg.ConvertedDir, "x_trimmed.mp3")
	runner := &fakeRunner{run: func(_ string, args []string) ([]byte, error) {
		return nil, os.WriteFile(args[len(args)-1], []byte("trimmed"), 0o644)
	}}

	got, err := NewTrimmer(cfg, runner).TrimAudio(context.Background(), "in.mp3", out, intPtr(10), intPtr(40), 300)
	if err != nil {
		t.Fatalf("TrimAudio error=%v", err)
	}
	if got != out {
		t.Fatalf("output=%q", got)
	}
	if runner.lastCall()[0] != "ffmpeg" {
		t.Fatalf("expected ffmpeg invocation, got %v", runner.lastCall())
	}
}

func TestTrimAudio_FailureRemovesOutput(t *testing.T) {
	cfg := testConfig(t)
	out := filepath.Join(cfg.ConvertedDir, "x_trimmed.mp3")
	runner := &fakeRunner{run: func(_ string, args []string) ([]byte, error) {
		_ = os.WriteFile(args[len(args)-1], []byte("half"), 0o644)
		return nil, &exec.ToolError{Tool: "ffmpeg", ExitCode: 1}
	}}

	_, err := NewTrimmer(cfg, runner).TrimAudio(context.Background(), "in.mp3", out, nil, intPtr(40), 300)
	var toolErr *exec.ToolError
	if !errors.As(err, &toolErr) {
		t.Fatalf("expected ToolError, got %v", err)
	}
	if _, err := os.Stat(out); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("partial trim output left behind")
	}
}

func TestTrimAudio_RejectsMissingBoundsWithoutRunning(t *testing.T) {
	runner := &fakeRunner{}
	_, err := NewTrimmer(testConfig(t), runner).TrimAudio(context.Background(), "in", "out", nil, nil, 10)
	if !errors.Is(err, ErrNoTrimBounds) {
		t.Fatalf("expected ErrNoTrimBounds, got %v", err)
	}
	if len(runner.calls) != 0 {
		t.Fatalf("ffmpeg must not run without bounds")
	}
}
