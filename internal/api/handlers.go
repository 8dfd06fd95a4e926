package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"yt2mp3/internal/artifact"
	"yt2mp3/internal/config"
	"yt2mp3/internal/media"
	"yt2mp3/internal/pipeline"
	"yt2mp3/internal/timefmt"
)

const audioContentType = "audio/mpeg"

// timeField accepts a clock string ("1:30") or a bare number of seconds.
type timeField string

func (t *timeField) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*t = timeField(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("time must be a string or a number: %w", err)
	}
	*t = timeField(n.String())
	return nil
}

type convertRequest struct {
	URL       string    `json:"url"`
	TrimStart timeField `json:"trimStart"`
	TrimEnd   timeField `json:"trimEnd"`
}

type trimInfoResponse struct {
	Start          int    `json:"start"`
	End            int    `json:"end"`
	StartFormatted string `json:"startFormatted"`
	EndFormatted   string `json:"endFormatted"`
	OpenEnd        bool   `json:"openEnd,omitempty"`
}

type convertResponse struct {
	Success           bool              `json:"success"`
	FileID            string            `json:"fileId"`
	Title             string            `json:"title"`
	Filename          string            `json:"filename"`
	Duration          int               `json:"duration"`
	FullSize          int64             `json:"fullSize"`
	TrimmedSize       *int64            `json:"trimmedSize"`
	TrimmedDuration   *int              `json:"trimmedDuration"`
	HasTrimmedVersion bool              `json:"hasTrimmedVersion"`
	TrimInfo          *trimInfoResponse `json:"trimInfo"`
	TrimWarning       string            `json:"trimWarning,omitempty"`
	PreviewURL        string            `json:"previewUrl"`
}

func validateURLParam(raw string) (string, error) {
	url := strings.TrimSpace(raw)
	if url == "" {
		return "", &ValidationError{Field: "url", Message: "URL is required"}
	}
	if err := media.ValidateURL(url); err != nil {
		return "", &ValidationError{Field: "url", Message: "Invalid YouTube URL"}
	}
	return url, nil
}

// GET /api/info?url=
func (s *Server) handleInfo(c echo.Context) error {
	url, err := validateURLParam(c.QueryParam("url"))
	if err != nil {
		return err
	}

	log.Printf("[INFO] Fetching video info for: %s", url)
	info, err := s.fetcher.GetInfo(c.Request().Context(), url)
	if err != nil {
		log.Printf("❌ [INFO] Failed to fetch video info: %v", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{
			Error: "Failed to fetch video info. Please check the URL and try again.",
		})
	}
	return c.JSON(http.StatusOK, info)
}

// POST /api/convert
func (s *Server) handleConvert(c echo.Context) error {
	var req convertRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return &ValidationError{Field: "body", Message: "Invalid JSON"}
	}
	url, err := validateURLParam(req.URL)
	if err != nil {
		return err
	}

	result, err := s.queue.Submit(c.Request().Context(), pipeline.Request{
		URL:       url,
		TrimStart: timefmt.ParseOptional(string(req.TrimStart)),
		TrimEnd:   timefmt.ParseOptional(string(req.TrimEnd)),
	})
	switch {
	case errors.Is(err, pipeline.ErrBusy), errors.Is(err, pipeline.ErrClosed):
		return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "Server is busy. Please try again shortly."})
	case errors.Is(err, context.Canceled):
		log.Printf("[CONVERT] Client went away, conversion of %s cancelled", url)
		return c.NoContent(http.StatusRequestTimeout)
	case err != nil:
		log.Printf("❌ [ERROR] Conversion failed: %v", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "Conversion failed. Please try again."})
	}

	a := result.Artifact
	resp := convertResponse{
		Success:           true,
		FileID:            a.FileID,
		Title:             a.Title(),
		Filename:          media.AudioFilename(a.Title(), false),
		Duration:          a.FullDuration,
		FullSize:          a.FullSize,
		TrimmedSize:       a.TrimmedSize,
		TrimmedDuration:   a.TrimmedDuration,
		HasTrimmedVersion: a.HasTrimmed(),
		TrimWarning:       result.TrimWarning,
		PreviewURL:        previewURL(a),
	}
	if t := result.TrimInfo; t != nil {
		resp.TrimInfo = &trimInfoResponse{
			Start:          t.Start,
			End:            t.End,
			StartFormatted: timefmt.Format(t.Start),
			EndFormatted:   timefmt.Format(t.End),
			OpenEnd:        t.OpenEnd,
		}
		if t.OpenEnd {
			resp.TrimInfo.EndFormatted = "end"
		}
	}
	return c.JSON(http.StatusOK, resp)
}

func previewURL(a *artifact.Artifact) string {
	version := artifact.VersionFull
	if a.HasTrimmed() {
		version = artifact.VersionTrimmed
	}
	return fmt.Sprintf("%s/stream/%s?version=%s", config.APIBasePath, a.FileID, version)
}

// openVersion pins the artifact and opens the requested version. The caller
// must close the file and call release.
func (s *Server) openVersion(c echo.Context, defaultVersion string) (*artifact.Artifact, *os.File, bool, func(), error) {
	a, release, err := s.store.Acquire(c.Request().Context(), c.Param("fileId"))
	if err != nil {
		return nil, nil, false, nil, &NotFoundError{Message: "File not found or expired"}
	}

	version := c.QueryParam("version")
	if version == "" {
		version = defaultVersion
	}
	path, trimmed := a.Resolve(version)
	f, err := os.Open(path)
	if err != nil {
		release()
		return nil, nil, false, nil, &NotFoundError{Message: "File not found"}
	}
	return a, f, trimmed, release, nil
}

// GET /api/stream/:fileId?version=trimmed|full
func (s *Server) handleStream(c echo.Context) error {
	_, f, _, release, err := s.openVersion(c, artifact.VersionTrimmed)
	if err != nil {
		return err
	}
	defer release()
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return &NotFoundError{Message: "File not found"}
	}
	c.Response().Header().Set(echo.HeaderContentType, audioContentType)
	http.ServeContent(c.Response(), c.Request(), "", st.ModTime(), f)
	return nil
}

// GET /api/download/:fileId?version=full|trimmed
// The artifact is deleted once the response has been written or has failed.
func (s *Server) handleDownload(c echo.Context) error {
	a, f, trimmed, release, err := s.openVersion(c, artifact.VersionFull)
	if err != nil {
		return err
	}
	defer release()
	defer s.deleteAfterDownload(c.Request().Context(), a.FileID)
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return &NotFoundError{Message: "File not found"}
	}

	filename := media.AudioFilename(a.Title(), trimmed)
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": filename})
	if disposition == "" {
		disposition = "attachment"
	}

	header := c.Response().Header()
	header.Set(echo.HeaderContentType, audioContentType)
	header.Set(echo.HeaderContentDisposition, disposition)
	header.Set(echo.HeaderContentLength, strconv.FormatInt(st.Size(), 10))
	c.Response().WriteHeader(http.StatusOK)

	if _, err := io.Copy(c.Response(), f); err != nil {
		log.Printf("⚠️  [DOWNLOAD] %s interrupted: %v", a.FileID, err)
	}
	return nil
}

func (s *Server) deleteAfterDownload(ctx context.Context, fileID string) {
	if err := s.store.Delete(context.WithoutCancel(ctx), fileID); err != nil && !errors.Is(err, artifact.ErrNotFound) {
		log.Printf("⚠️  [CLEANUP] %s: %v", fileID, err)
	}
}

// DELETE /api/files/:fileId
func (s *Server) handleDelete(c echo.Context) error {
	fileID := c.Param("fileId")
	if err := s.store.Delete(c.Request().Context(), fileID); err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			return &NotFoundError{Message: "File not found or expired"}
		}
		return err
	}
	return c.JSON(http.StatusOK, map[string]string{"deleted": fileID})
}
