package adapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/echolens/echolens/internal/domain"
)

// RedditConfig configures the Reddit adapter. APIBaseURL serves the public
// JSON listings; MirrorBaseURL serves the old-style HTML mirror used as the
// scrape fallback.
type RedditConfig struct {
	APIBaseURL    string
	MirrorBaseURL string
	Options
}

// Reddit fetches recent text posts from a subreddit or a user feed.
type Reddit struct {
	cfg    RedditConfig
	client *fetchClient
}

func NewReddit(cfg RedditConfig) *Reddit {
	return &Reddit{cfg: cfg, client: newFetchClient(cfg.Options)}
}

func (a *Reddit) Platform() domain.Platform { return domain.PlatformReddit }

func (a *Reddit) Health() domain.AdapterHealth {
	remaining, errs := a.client.healthSnapshot()
	return domain.AdapterHealth{
		Platform:          domain.PlatformReddit,
		State:             a.client.health.state(),
		RateRemaining:     remaining,
		ConsecutiveErrors: errs,
	}
}

func (a *Reddit) Reset() { a.client.health.reset() }

// Fetch retrieves the newest text posts from r/<target>. Link-only and
// removed posts are skipped per item.
func (a *Reddit) Fetch(ctx context.Context, target string, limit int) ([]domain.RawRecord, error) {
	if err := a.client.health.allow(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultFetchLimit
	}

	records, out := a.fetchJSON(ctx, target, limit)
	if out.class == classQuota {
		log.Printf("reddit: json listing rate limited for r/%s, switching to mirror fallback", target)
		records, out = a.fetchMirror(ctx, target, limit)
	}

	switch out.class {
	case classSuccess:
		a.client.health.recordSuccess()
		return records, nil
	case classUnavailable:
		a.client.health.recordFailure()
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeContentUnavailable,
			fmt.Sprintf("subreddit %q unavailable", target), out.err)
	case classQuota:
		a.client.health.recordFailure()
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeQuotaExhausted,
			"reddit listing and mirror both rate limited", out.err)
	default:
		a.client.health.recordFailure()
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeNetwork,
			fmt.Sprintf("reddit fetch for r/%s failed", target), out.err)
	}
}

type redditPost struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	SelfText    string  `json:"selftext"`
	Author      string  `json:"author"`
	AuthorID    string  `json:"author_fullname"`
	Score       int64   `json:"score"`
	NumComments int64   `json:"num_comments"`
	Permalink   string  `json:"permalink"`
	CreatedUTC  float64 `json:"created_utc"`
}

func (a *Reddit) fetchJSON(ctx context.Context, subreddit string, limit int) ([]domain.RawRecord, outcome) {
	listURL := fmt.Sprintf("%s/r/%s/new.json?limit=%d",
		a.cfg.APIBaseURL, url.PathEscape(subreddit), limit)

	body, out := a.client.getWithRetry(ctx, listURL)
	if !out.ok() {
		return nil, out
	}

	var listing struct {
		Data struct {
			Children []struct {
				Data redditPost `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &listing); err != nil {
		return nil, outcome{class: classUnavailable, err: fmt.Errorf("decode listing: %w", err)}
	}

	records := make([]domain.RawRecord, 0, len(listing.Data.Children))
	for _, child := range listing.Data.Children {
		if len(records) >= limit {
			break
		}
		post := child.Data

		text := strings.TrimSpace(post.SelfText)
		if text == "" || text == "[removed]" || text == "[deleted]" {
			log.Printf("reddit: skipping post %s without text body", post.ID)
			continue
		}

		records = append(records, domain.RawRecord{
			Platform:    domain.PlatformReddit,
			SourceURL:   absoluteURL(a.cfg.APIBaseURL, post.Permalink),
			AuthorID:    post.AuthorID,
			AuthorName:  post.Author,
			Title:       post.Title,
			Body:        text,
			Likes:       post.Score,
			Comments:    post.NumComments,
			PublishedAt: parseTimestamp(fmt.Sprintf("%d", int64(post.CreatedUTC))),
			Source:      domain.FetchSourceAPI,
			Extra: map[string]string{
				"source":    string(domain.FetchSourceAPI),
				"subreddit": subreddit,
			},
		})
	}

	return records, outcome{class: classSuccess}
}

// fetchMirror parses the HTML mirror listing. Scores come from the visible
// counters; comment counts are not rendered and stay zero.
func (a *Reddit) fetchMirror(ctx context.Context, subreddit string, limit int) ([]domain.RawRecord, outcome) {
	pageURL := fmt.Sprintf("%s/r/%s/new/", a.cfg.MirrorBaseURL, url.PathEscape(subreddit))

	body, out := a.client.getWithRetry(ctx, pageURL)
	if !out.ok() {
		return nil, out
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, outcome{class: classUnavailable, err: fmt.Errorf("parse mirror page: %w", err)}
	}

	var records []domain.RawRecord
	doc.Find("div.thing").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if len(records) >= limit {
			return false
		}

		permalink, _ := sel.Attr("data-permalink")
		author, _ := sel.Attr("data-author")
		text := strings.TrimSpace(sel.Find("div.usertext-body").First().Text())
		if permalink == "" || text == "" {
			return true
		}

		var published string
		if dt, ok := sel.Find("time").First().Attr("datetime"); ok {
			published = dt
		}

		records = append(records, domain.RawRecord{
			Platform:    domain.PlatformReddit,
			SourceURL:   absoluteURL(a.cfg.APIBaseURL, permalink),
			AuthorName:  author,
			Title:       strings.TrimSpace(sel.Find("a.title").First().Text()),
			Body:        text,
			Likes:       parseCount(sel.Find("div.score").First().Text()),
			PublishedAt: parseTimestamp(published),
			Source:      domain.FetchSourceScrape,
			Extra: map[string]string{
				"source":    string(domain.FetchSourceScrape),
				"subreddit": subreddit,
			},
		})
		return true
	})

	return records, outcome{class: classSuccess}
}
