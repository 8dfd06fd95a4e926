package media

import (
	"errors"
	"testing"
)

func TestExtractVideoID_SupportedShapes(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "https://www.youtube.com/watch?v=jNQXAC9IVRw", want: "jNQXAC9IVRw"},
		{in: "https://m.youtube.com/watch?v=jNQXAC9IVRw&pp=ygU=", want: "jNQXAC9IVRw"},
		{in: "https://music.youtube.com/watch?v=jNQXAC9IVRw&list=RDAMVM", want: "jNQXAC9IVRw"},
		{in: "https://youtu.be/jNQXAC9IVRw?t=1", want: "jNQXAC9IVRw"},
		{in: "youtube.com/watch?v=jNQXAC9IVRw", want: "jNQXAC9IVRw"},
		{in: "https://www.youtube.com/embed/jNQXAC9IVRw", want: "jNQXAC9IVRw"},
		{in: "https://www.youtube.com/v/jNQXAC9IVRw", want: "jNQXAC9IVRw"},
		{in: "https://www.youtube.com/shorts/jNQXAC9IVRw", want: "jNQXAC9IVRw"},
		{in: "https://www.youtube.com/live/jNQXAC9IVRw", want: "jNQXAC9IVRw"},
		{in: "https://www.youtube-nocookie.com/embed/jNQXAC9IVRw", want: "jNQXAC9IVRw"},
		{in: "  https://WWW.YOUTUBE.COM/watch?v=jNQXAC9IVRw  ", want: "jNQXAC9IVRw"},
	}
	for _, tt := range tests {
		got, err := ExtractVideoID(tt.in)
		if err != nil {
			t.Fatalf("ExtractVideoID(%q) error=%v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ExtractVideoID(%q)=%q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExtractVideoID_Rejects(t *testing.T) {
	tests := []struct {
		in     string
		reason string
	}{
		{in: "", reason: "empty"},
		{in: "https://example.com/watch?v=jNQXAC9IVRw", reason: "unsupported_host"},
		{in: "ftp://youtube.com/watch?v=jNQXAC9IVRw", reason: "unsupported_scheme"},
		{in: "https://www.youtube.com/watch?v=short", reason: "missing_video_id"},
		{in: "https://www.youtube.com/channel/UC123", reason: "missing_video_id"},
		{in: "https://youtu.be/", reason: "missing_video_id"},
	}
	for _, tt := range tests {
		_, err := ExtractVideoID(tt.in)
		if !errors.Is(err, ErrInvalidURL) {
			t.Fatalf("ExtractVideoID(%q) expected ErrInvalidURL, got %v", tt.in, err)
		}
		var detail *InvalidURLError
		if !errors.As(err, &detail) {
			t.Fatalf("expected InvalidURLError, got %T", err)
		}
		if detail.Reason != tt.reason {
			t.Fatalf("ExtractVideoID(%q) reason=%q, want %q", tt.in, detail.Reason, tt.reason)
		}
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{in: "My: Song?.mp3", want: "My Song.mp3"},
		{in: `a<b>c:"d"/e\f|g?h*`, want: "abcdefgh"},
		{in: "  spaced  ", want: "spaced"},
		{in: "Café – Live", want: "Café – Live"},
		{in: "???", want: "audio"},
	}
	for _, tt := range tests {
		if got := SanitizeFilename(tt.in); got != tt.want {
			t.Fatalf("SanitizeFilename(%q)=%q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestAudioFilename(t *testing.T) {
	tests := []struct {
		title   string
		trimmed bool
		want    string
	}{
		{title: "My: Song?.mp3", want: "My Song.mp3"},
		{title: "My: Song?", want: "My Song.mp3"},
		{title: "My: Song?", trimmed: true, want: "My Song (Trimmed).mp3"},
		{title: "Track.MP3", want: "Track.mp3"},
		{title: ".mp3", want: "audio.mp3"},
		{title: "", want: "audio.mp3"},
	}
	for _, tt := range tests {
		if got := AudioFilename(tt.title, tt.trimmed); got != tt.want {
			t.Fatalf("AudioFilename(%q, %v)=%q, want %q", tt.title, tt.trimmed, got, tt.want)
		}
	}
}
