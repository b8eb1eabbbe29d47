package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/echolens/echolens/internal/domain"
)

const defaultFetchLimit = 25

// YouTubeConfig configures the YouTube adapter. APIBaseURL points at a
// lightweight read API (Invidious-compatible); WebBaseURL points at the
// rendering proxy used as the scrape fallback when the API quota runs out.
type YouTubeConfig struct {
	APIBaseURL string
	WebBaseURL string
	APIKey     string
	Options
}

// YouTube fetches channel videos with their transcripts. The primary
// strategy is a two-stage API read (channel listing, then per-video detail);
// the fallback scrapes the rendered channel page.
type YouTube struct {
	cfg    YouTubeConfig
	client *fetchClient
}

func NewYouTube(cfg YouTubeConfig) *YouTube {
	return &YouTube{cfg: cfg, client: newFetchClient(cfg.Options)}
}

func (a *YouTube) Platform() domain.Platform { return domain.PlatformYouTube }

func (a *YouTube) Health() domain.AdapterHealth {
	remaining, errs := a.client.healthSnapshot()
	return domain.AdapterHealth{
		Platform:          domain.PlatformYouTube,
		State:             a.client.health.state(),
		RateRemaining:     remaining,
		ConsecutiveErrors: errs,
	}
}

// Reset clears the adapter's error streak on operator request.
func (a *YouTube) Reset() { a.client.health.reset() }

func (a *YouTube) Fetch(ctx context.Context, target string, limit int) ([]domain.RawRecord, error) {
	if err := a.client.health.allow(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultFetchLimit
	}

	records, out := a.fetchAPI(ctx, target, limit)
	if out.class == classQuota {
		log.Printf("youtube: api quota exhausted for %q, switching to scrape fallback", target)
		records, out = a.fetchScrape(ctx, target, limit)
	}

	switch out.class {
	case classSuccess:
		a.client.health.recordSuccess()
		return records, nil
	case classUnavailable:
		a.client.health.recordFailure()
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeContentUnavailable,
			fmt.Sprintf("youtube channel %q unavailable", target), out.err)
	case classQuota:
		a.client.health.recordFailure()
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeQuotaExhausted,
			"youtube api and fallback both rate limited", out.err)
	default:
		a.client.health.recordFailure()
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeNetwork,
			fmt.Sprintf("youtube fetch for %q failed", target), out.err)
	}
}

type ytVideoListItem struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	ChannelID    string `json:"channel_id"`
	ChannelTitle string `json:"channel_title"`
	ViewCount    int64  `json:"view_count"`
	LikeCount    int64  `json:"like_count"`
	CommentCount int64  `json:"comment_count"`
	PublishedAt  string `json:"published_at"`
}

type ytVideoDetail struct {
	Description string `json:"description"`
	Transcript  string `json:"transcript"`
	Duration    int    `json:"duration_seconds"`
}

func (a *YouTube) fetchAPI(ctx context.Context, channel string, limit int) ([]domain.RawRecord, outcome) {
	listURL := fmt.Sprintf("%s/channels/%s/videos?limit=%d&key=%s",
		a.cfg.APIBaseURL, url.PathEscape(channel), limit, url.QueryEscape(a.cfg.APIKey))

	body, out := a.client.getWithRetry(ctx, listURL)
	if !out.ok() {
		return nil, out
	}

	var listing struct {
		Items []ytVideoListItem `json:"items"`
	}
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, outcome{class: classUnavailable, err: fmt.Errorf("decode video listing: %w", err)}
	}

	records := make([]domain.RawRecord, 0, len(listing.Items))
	for _, item := range listing.Items {
		if len(records) >= limit {
			break
		}

		detail, detailOut := a.fetchVideoDetail(ctx, item.ID)
		if detailOut.class == classUnavailable {
			// Deleted, private, or age-restricted: skip the item, never
			// the batch.
			log.Printf("youtube: skipping unavailable video %s", item.ID)
			continue
		}
		if !detailOut.ok() {
			return nil, detailOut
		}

		text := detail.Transcript
		if strings.TrimSpace(text) == "" {
			text = detail.Description
		}

		records = append(records, domain.RawRecord{
			Platform:    domain.PlatformYouTube,
			SourceURL:   fmt.Sprintf("%s/watch?v=%s", a.cfg.WebBaseURL, item.ID),
			AuthorID:    item.ChannelID,
			AuthorName:  item.ChannelTitle,
			Title:       item.Title,
			Body:        text,
			Views:       item.ViewCount,
			Likes:       item.LikeCount,
			Comments:    item.CommentCount,
			PublishedAt: parseTimestamp(item.PublishedAt),
			Source:      domain.FetchSourceAPI,
			Extra: map[string]string{
				"source":   string(domain.FetchSourceAPI),
				"video_id": item.ID,
			},
		})
	}

	return records, outcome{class: classSuccess}
}

func (a *YouTube) fetchVideoDetail(ctx context.Context, videoID string) (*ytVideoDetail, outcome) {
	detailURL := fmt.Sprintf("%s/videos/%s?key=%s",
		a.cfg.APIBaseURL, url.PathEscape(videoID), url.QueryEscape(a.cfg.APIKey))

	body, out := a.client.getWithRetry(ctx, detailURL)
	if !out.ok() {
		return nil, out
	}

	var detail ytVideoDetail
	if err := json.Unmarshal(body, &detail); err != nil {
		return nil, outcome{class: classUnavailable, err: fmt.Errorf("decode video detail: %w", err)}
	}
	return &detail, outcome{class: classSuccess}
}

// fetchScrape parses the rendered channel page. Engagement counters beyond
// view counts are not present in the markup and stay zero.
func (a *YouTube) fetchScrape(ctx context.Context, channel string, limit int) ([]domain.RawRecord, outcome) {
	pageURL := fmt.Sprintf("%s/@%s/videos", a.cfg.WebBaseURL, url.PathEscape(channel))

	body, out := a.client.getWithRetry(ctx, pageURL)
	if !out.ok() {
		return nil, out
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, outcome{class: classUnavailable, err: fmt.Errorf("parse channel page: %w", err)}
	}

	channelTitle := strings.TrimSpace(doc.Find("h1.channel-name").First().Text())

	var records []domain.RawRecord
	doc.Find("div.video-renderer").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if len(records) >= limit {
			return false
		}

		href, _ := sel.Find("a.video-link").First().Attr("href")
		if href == "" {
			return true
		}

		var published time.Time
		if dt, ok := sel.Find("time").First().Attr("datetime"); ok {
			published = parseTimestamp(dt)
		}

		records = append(records, domain.RawRecord{
			Platform:    domain.PlatformYouTube,
			SourceURL:   absoluteURL(a.cfg.WebBaseURL, href),
			AuthorID:    channel,
			AuthorName:  channelTitle,
			Title:       strings.TrimSpace(sel.Find("h3.video-title").First().Text()),
			Body:        strings.TrimSpace(sel.Find("p.video-description").First().Text()),
			Views:       parseCount(sel.Find("span.view-count").First().Text()),
			PublishedAt: published,
			Source:      domain.FetchSourceScrape,
			Extra: map[string]string{
				"source": string(domain.FetchSourceScrape),
			},
		})
		return true
	})

	return records, outcome{class: classSuccess}
}
