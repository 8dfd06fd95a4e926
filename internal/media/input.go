package media

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// ErrInvalidURL indicates input that is not a YouTube video URL.
var ErrInvalidURL = errors.New("invalid YouTube URL")

var videoIDPattern = regexp.MustCompile(`^[0-9A-Za-z_-]{11}$`)

var youtubeHosts = map[string]bool{
	"youtube.com":              true,
	"www.youtube.com":          true,
	"m.youtube.com":            true,
	"music.youtube.com":        true,
	"gaming.youtube.com":       true,
	"youtu.be":                 true,
	"youtube-nocookie.com":     true,
	"www.youtube-nocookie.com": true,
}

// path prefixes that carry the id as the next segment
var idPathPrefixes = []string{"shorts", "embed", "v", "live", "e"}

// InvalidURLError explains why an input was rejected.
type InvalidURLError struct {
	Input  string
	Reason string
}

func (e *InvalidURLError) Error() string {
	return fmt.Sprintf("%v: %s", ErrInvalidURL, e.Reason)
}

func (e *InvalidURLError) Is(target error) bool { return target == ErrInvalidURL }

// ExtractVideoID accepts the common YouTube URL shapes (watch, shorts,
// youtu.be, embed, live) and returns the 11-character video id.
func ExtractVideoID(input string) (string, error) {
	s := strings.TrimSpace(input)
	if s == "" {
		return "", &InvalidURLError{Input: input, Reason: "empty"}
	}
	if !strings.Contains(s, "://") {
		s = "https://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return "", &InvalidURLError{Input: input, Reason: "malformed_url"}
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", &InvalidURLError{Input: input, Reason: "unsupported_scheme"}
	}
	host := strings.ToLower(u.Hostname())
	if !youtubeHosts[host] {
		return "", &InvalidURLError{Input: input, Reason: "unsupported_host"}
	}

	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	var id string
	switch {
	case host == "youtu.be":
		id = segments[0]
	case u.Query().Get("v") != "":
		id = u.Query().Get("v")
	case len(segments) >= 2:
		for _, p := range idPathPrefixes {
			if segments[0] == p {
				id = segments[1]
				break
			}
		}
	}
	if !videoIDPattern.MatchString(id) {
		return "", &InvalidURLError{Input: input, Reason: "missing_video_id"}
	}
	return id, nil
}

// ValidateURL reports whether input is a usable YouTube video URL.
func ValidateURL(input string) error {
	_, err := ExtractVideoID(input)
	return err
}

// SanitizeFilename strips characters that are not allowed in filenames on
// common platforms and trims surrounding whitespace.
func SanitizeFilename(title string) string {
	cleaned := strings.Map(func(r rune) rune {
		if strings.ContainsRune(`<>:"/\|?*`, r) {
			return -1
		}
		return r
	}, title)
	cleaned = strings.TrimSpace(cleaned)
	if cleaned == "" {
		return "audio"
	}
	return cleaned
}

// AudioFilename is the download name for a title: sanitized, with a
// " (Trimmed)" suffix for the trimmed version and a single ".mp3" extension.
func AudioFilename(title string, trimmed bool) string {
	base := SanitizeFilename(title)
	if strings.HasSuffix(strings.ToLower(base), ".mp3") {
		base = strings.TrimSpace(base[:len(base)-len(".mp3")])
	}
	if base == "" {
		base = "audio"
	}
	if trimmed {
		base += " (Trimmed)"
	}
	return base + ".mp3"
}
