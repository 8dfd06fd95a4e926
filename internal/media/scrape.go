package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"yt2mp3/internal/exec"
)

const (
	defaultWatchBaseURL = "https://www.youtube.com"
	scrapeUserAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
)

var isoDurationPattern = regexp.MustCompile(`^P(?:(\d+)D)?(?:T(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)S)?)?$`)

// PageScraper reads basic metadata from the public watch page. It is the
// fallback when the yt-dlp binary is not installed; it knows nothing about
// formats, so AudioBitrate and Chapters stay empty.
type PageScraper struct {
	client  *http.Client
	baseURL string
}

func NewPageScraper(client *http.Client, baseURL string) *PageScraper {
	if client == nil {
		client = &http.Client{Timeout: 20 * time.Second}
	}
	if baseURL == "" {
		baseURL = defaultWatchBaseURL
	}
	return &PageScraper{
		client:  client,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

func (scraper *PageScraper) GetInfo(ctx context.Context, url string) (*VideoMetadata, error) {
	videoID, err := ExtractVideoID(url)
	if err != nil {
		return nil, err
	}

	pageURL := scraper.baseURL + "/watch?v=" + videoID
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", scrapeUserAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")

	resp, err := scraper.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch watch page: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch watch page: unexpected status %d", resp.StatusCode)
	}

	meta, err := ParseWatchPage(videoID, resp.Body)
	if err != nil {
		return nil, err
	}
	log.Printf("[INFO] Video (fallback): %q", meta.Title)
	return meta, nil
}

// ParseWatchPage extracts OpenGraph and schema.org microdata from a watch
// page.
func ParseWatchPage(videoID string, r io.Reader) (*VideoMetadata, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, &ParseError{Source: "watch page", Err: err}
	}

	title := metaContent(doc, `meta[property="og:title"]`, `meta[name="title"]`, `meta[itemprop="name"]`)
	if title == "" {
		title = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(doc.Find("title").First().Text()), "- YouTube"))
	}
	if title == "" {
		return nil, &ParseError{Source: "watch page", Err: errors.New("no title found")}
	}

	channel := metaContent(doc, `span[itemprop="author"] link[itemprop="name"]`, `link[itemprop="name"]`)
	if channel == "" {
		channel = UnknownChannel
	}

	duration := parseISODuration(metaContent(doc, `meta[itemprop="duration"]`))

	thumbnail, _ := doc.Find(`link[itemprop="thumbnailUrl"]`).First().Attr("href")
	if thumbnail == "" {
		thumbnail = metaContent(doc, `meta[property="og:image"]`)
	}

	var year *string
	if date := metaContent(doc, `meta[itemprop="uploadDate"]`, `meta[itemprop="datePublished"]`); len(date) >= 4 {
		y := date[:4]
		year = &y
	}

	var tags []string
	doc.Find(`meta[property="og:video:tag"]`).Each(func(_ int, s *goquery.Selection) {
		if v, ok := s.Attr("content"); ok {
			tags = append(tags, strings.TrimSpace(v))
		}
	})
	if len(tags) == 0 {
		for _, k := range strings.Split(metaContent(doc, `meta[name="keywords"]`), ",") {
			tags = append(tags, strings.TrimSpace(k))
		}
	}

	var artist *string
	if channel != UnknownChannel {
		artist = &channel
	}

	return &VideoMetadata{
		Title:             title,
		Channel:           channel,
		Duration:          duration,
		Thumbnail:         thumbnail,
		VideoID:           videoID,
		EstimatedFileSize: estimateFileSize(duration),
		Artist:            artist,
		Track:             &title,
		Genre:             firstNonEmpty(metaContent(doc, `meta[itemprop="genre"]`)),
		Year:              year,
		Tags:              limitTags(tags),
		Chapters:          []json.RawMessage{},
	}, nil
}

// metaContent returns the first non-empty content attribute among selectors.
func metaContent(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if v, ok := doc.Find(sel).First().Attr("content"); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

// parseISODuration handles the "PT4M13S" shape used in microdata.
func parseISODuration(s string) int {
	m := isoDurationPattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return 0
	}
	total := 0
	for i, unit := range []int{86400, 3600, 60, 1} {
		if m[i+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[i+1])
		if err != nil {
			return 0
		}
		total += n * unit
	}
	return total
}

// FallbackFetcher uses Secondary only when Primary's binary is missing.
type FallbackFetcher struct {
	Primary   Fetcher
	Secondary Fetcher
}

func (f *FallbackFetcher) GetInfo(ctx context.Context, url string) (*VideoMetadata, error) {
	meta, err := f.Primary.GetInfo(ctx, url)
	if err != nil && f.Secondary != nil && errors.Is(err, exec.ErrToolNotFound) {
		log.Printf("⚠️  [INFO] yt-dlp unavailable, falling back to watch page: %v", err)
		return f.Secondary.GetInfo(ctx, url)
	}
	return meta, err
}
