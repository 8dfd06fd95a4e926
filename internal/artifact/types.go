// Package artifact owns converted audio files and their lifetime: the
// in-memory registry, its optional Redis mirror and the expiry sweeper.
package artifact

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"yt2mp3/internal/media"
)

const (
	VersionFull    = "full"
	VersionTrimmed = "trimmed"
)

var (
	// ErrNotFound reports an unknown, expired or reclaiming fileId.
	ErrNotFound = errors.New("artifact not found")
	// ErrExists reports a Put for a fileId that is already registered.
	ErrExists = errors.New("artifact already exists")
)

// State is the lifecycle tag of a stored artifact.
type State string

const (
	StateActive     State = "active"
	StateReclaiming State = "reclaiming"
)

// Artifact is one conversion's output. It is not modified after Put.
type Artifact struct {
	FileID          string               `json:"fileId"`
	Timestamp       time.Time            `json:"timestamp"`
	Info            *media.VideoMetadata `json:"info"`
	FullPath        string               `json:"fullPath"`
	FullSize        int64                `json:"fullSize"`
	FullDuration    int                  `json:"fullDuration"`
	TrimmedPath     string               `json:"trimmedPath,omitempty"`
	TrimmedSize     *int64               `json:"trimmedSize"`
	TrimmedDuration *int                 `json:"trimmedDuration"`
	TrimStart       *int                 `json:"trimStart"`
	TrimEnd         *int                 `json:"trimEnd"`
}

// NewID returns a fresh fileId: a random UUID without dashes.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func (a *Artifact) HasTrimmed() bool {
	return a.TrimmedPath != ""
}

// Resolve picks the file for a requested version. The trimmed file is used
// only when it was asked for and exists; everything else gets the full file.
func (a *Artifact) Resolve(version string) (path string, trimmed bool) {
	if version == VersionTrimmed && a.HasTrimmed() {
		return a.TrimmedPath, true
	}
	return a.FullPath, false
}

// Expired reports whether the artifact is older than retention at now.
func (a *Artifact) Expired(now time.Time, retention time.Duration) bool {
	return now.Sub(a.Timestamp) > retention
}

// Title is the display title, never empty.
func (a *Artifact) Title() string {
	if a.Info == nil || a.Info.Title == "" {
		return media.UnknownTitle
	}
	return a.Info.Title
}
