package media

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"yt2mp3/internal/config"
	"yt2mp3/internal/exec"
)

type ytdlpFormat struct {
	FormatID string   `json:"format_id"`
	ACodec   string   `json:"acodec"`
	VCodec   string   `json:"vcodec"`
	Ext      string   `json:"ext"`
	ABR      *float64 `json:"abr"`
}

type ytdlpThumbnail struct {
	URL string `json:"url"`
}

type ytdlpInfo struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Uploader    string            `json:"uploader"`
	Channel     string            `json:"channel"`
	Duration    float64           `json:"duration"`
	Thumbnail   string            `json:"thumbnail"`
	Thumbnails  []ytdlpThumbnail  `json:"thumbnails"`
	Formats     []ytdlpFormat     `json:"formats"`
	Artist      string            `json:"artist"`
	Creator     string            `json:"creator"`
	Album       string            `json:"album"`
	Track       string            `json:"track"`
	Genre       string            `json:"genre"`
	ReleaseYear json.Number       `json:"release_year"`
	UploadDate  string            `json:"upload_date"`
	Tags        []string          `json:"tags"`
	Chapters    []json.RawMessage `json:"chapters"`
}

// Extractor drives yt-dlp for metadata lookups and MP3 extraction.
type Extractor struct {
	config config.Config
	runner exec.Runner

	// swapped in tests to simulate a locked output file
	copyFile func(src, dst string) error
}

func NewExtractor(config config.Config, runner exec.Runner) *Extractor {
	return &Extractor{
		config:   config,
		runner:   runner,
		copyFile: copyFile,
	}
}

// GetInfo runs `yt-dlp -J` and normalizes its JSON document.
func (extractor *Extractor) GetInfo(ctx context.Context, url string) (*VideoMetadata, error) {
	ctx, cancel := withTimeout(ctx, extractor.config.InfoTimeout)
	defer cancel()

	args := []string{"-J", "--no-warnings", "--no-playlist", url}
	output, err := extractor.runner.Run(ctx, extractor.config.YtdlpPath, args...)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp metadata: %w", err)
	}

	var info ytdlpInfo
	if err := json.Unmarshal(output, &info); err != nil {
		return nil, &ParseError{Source: "yt-dlp", Err: err}
	}

	meta := normalizeInfo(info)
	artist := UnknownChannel
	if meta.Artist != nil {
		artist = *meta.Artist
	}
	log.Printf("[INFO] Video: %q by %s", meta.Title, artist)
	return meta, nil
}

func normalizeInfo(info ytdlpInfo) *VideoMetadata {
	duration := 0
	if info.Duration > 0 {
		duration = int(math.Round(info.Duration))
	}

	thumbnail := info.Thumbnail
	if thumbnail == "" && len(info.Thumbnails) > 0 {
		// yt-dlp orders thumbnails by preference; last is best
		thumbnail = info.Thumbnails[len(info.Thumbnails)-1].URL
	}

	title := info.Title
	if title == "" {
		title = UnknownTitle
	}
	channel := UnknownChannel
	if c := firstNonEmpty(info.Uploader, info.Channel); c != nil {
		channel = *c
	}

	chapters := info.Chapters
	if chapters == nil {
		chapters = []json.RawMessage{}
	}

	return &VideoMetadata{
		Title:             title,
		Channel:           channel,
		Duration:          duration,
		Thumbnail:         thumbnail,
		VideoID:           info.ID,
		AudioBitrate:      bestAudioBitrate(info.Formats),
		EstimatedFileSize: estimateFileSize(duration),
		Artist:            firstNonEmpty(info.Artist, info.Creator, info.Uploader),
		Album:             firstNonEmpty(info.Album),
		Track:             firstNonEmpty(info.Track, info.Title),
		Genre:             firstNonEmpty(info.Genre),
		Year:              releaseYear(info.ReleaseYear, info.UploadDate),
		Tags:              limitTags(info.Tags),
		Chapters:          chapters,
	}
}

// bestAudioBitrate picks the highest abr among audio-only formats.
func bestAudioBitrate(formats []ytdlpFormat) *float64 {
	var best float64
	for _, f := range formats {
		audioOnly := (f.ACodec != "" && f.ACodec != "none" && f.VCodec == "") || f.VCodec == "none"
		if !audioOnly || f.ABR == nil {
			continue
		}
		if *f.ABR > best {
			best = *f.ABR
		}
	}
	if best <= 0 {
		return nil
	}
	return &best
}

func releaseYear(release json.Number, uploadDate string) *string {
	if s := release.String(); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			y := strconv.Itoa(n)
			return &y
		}
	}
	if len(uploadDate) >= 4 {
		y := uploadDate[:4]
		return &y
	}
	return nil
}

// ConvertToMP3 extracts the best audio track of url into an MP3 at
// outputPath. yt-dlp writes into the temp dir first; the result is then copied
// into place so a partially written file is never visible at outputPath.
func (extractor *Extractor) ConvertToMP3(ctx context.Context, url, outputPath string) (string, error) {
	ctx, cancel := withTimeout(ctx, extractor.config.ConvertTimeout)
	defer cancel()

	base := fmt.Sprintf("temp_%d_%s", time.Now().UnixMilli(), randomHex(4))
	tempPath := filepath.Join(extractor.config.TempDir, base+".mp3")
	template := filepath.Join(extractor.config.TempDir, base+".%(ext)s")

	start := time.Now()
	if _, err := extractor.runner.Run(ctx, extractor.config.YtdlpPath, extractor.convertArgs(url, template)...); err != nil {
		removeQuiet(tempPath)
		return "", fmt.Errorf("yt-dlp conversion: %w", err)
	}
	if _, err := os.Stat(tempPath); err != nil {
		return "", fmt.Errorf("yt-dlp conversion: %w: %s", ErrNoOutput, tempPath)
	}

	if err := extractor.copyWithRetry(ctx, tempPath, outputPath); err != nil {
		removeQuiet(tempPath)
		return "", err
	}
	if err := os.Remove(tempPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[CONVERT] Could not delete temp file %s: %v", filepath.Base(tempPath), err)
	}

	log.Printf("⏱️ [CONVERT] %s -> %s in %.2fs", url, filepath.Base(outputPath), time.Since(start).Seconds())
	return outputPath, nil
}

func (extractor *Extractor) convertArgs(url, outputTemplate string) []string {
	args := []string{
		"-x",
		"--audio-format", "mp3",
		"--audio-quality", "0",
		"--embed-thumbnail",
		"--embed-metadata",
		"--parse-metadata", "%(artist,creator,uploader,channel)s:%(meta_artist)s",
		"--parse-metadata", "%(album,playlist_title,title)s:%(meta_album)s",
		"--parse-metadata", "%(track,title)s:%(meta_title)s",
		"--parse-metadata", "%(release_year,upload_date>%Y)s:%(meta_date)s",
		"--convert-thumbnails", "jpg",
	}
	if ffmpeg := extractor.config.FFmpegPath; strings.ContainsAny(ffmpeg, `/\`) {
		args = append(args, "--ffmpeg-location", filepath.Dir(ffmpeg))
	}
	args = append(args,
		"-o", outputTemplate,
		"--no-playlist",
		"--no-warnings",
		url,
	)
	return args
}

// copyWithRetry tolerates the OS holding the freshly written file for a
// moment after yt-dlp exits.
func (extractor *Extractor) copyWithRetry(ctx context.Context, src, dst string) error {
	attempts := extractor.config.CopyAttempts
	if attempts < 1 {
		attempts = 1
	}
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = extractor.copyFile(src, dst); err == nil {
			return nil
		}
		log.Printf("[CONVERT] Copy retry %d/%d: %v", attempt, attempts, err)
		if attempt == attempts {
			break
		}
		select {
		case <-time.After(extractor.config.CopyRetryDelay):
		case <-ctx.Done():
			return fmt.Errorf("copy %s: %w", filepath.Base(dst), ctx.Err())
		}
	}
	return fmt.Errorf("copy %s after %d attempts: %w", filepath.Base(dst), attempts, err)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

func randomHex(n int) string {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return strconv.FormatInt(time.Now().UnixNano(), 16)
	}
	return hex.EncodeToString(b)
}

func removeQuiet(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[CLEANUP] Could not delete %s: %v", filepath.Base(path), err)
	}
}
