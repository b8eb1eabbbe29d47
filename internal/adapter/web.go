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

// WebConfig configures the generic blog/article adapter. The target passed
// to Fetch is the site host; the primary strategy reads its JSON Feed, the
// fallback scrapes the article index page.
type WebConfig struct {
	// Scheme used when building site URLs, defaults to https.
	Scheme string
	Options
}

// Web fetches articles from blogs and newsletters that publish a JSON Feed,
// scraping the site's article markup when the feed is not served.
type Web struct {
	cfg    WebConfig
	client *fetchClient
}

func NewWeb(cfg WebConfig) *Web {
	if cfg.Scheme == "" {
		cfg.Scheme = "https"
	}
	return &Web{cfg: cfg, client: newFetchClient(cfg.Options)}
}

func (a *Web) Platform() domain.Platform { return domain.PlatformWeb }

func (a *Web) Health() domain.AdapterHealth {
	remaining, errs := a.client.healthSnapshot()
	return domain.AdapterHealth{
		Platform:          domain.PlatformWeb,
		State:             a.client.health.state(),
		RateRemaining:     remaining,
		ConsecutiveErrors: errs,
	}
}

func (a *Web) Reset() { a.client.health.reset() }

func (a *Web) Fetch(ctx context.Context, target string, limit int) ([]domain.RawRecord, error) {
	if err := a.client.health.allow(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = defaultFetchLimit
	}

	site := a.siteURL(target)

	records, out := a.fetchFeed(ctx, site, limit)
	if out.class == classQuota {
		log.Printf("web: feed rate limited for %s, switching to page scrape", target)
		records, out = a.fetchPage(ctx, site, limit)
	}

	switch out.class {
	case classSuccess:
		a.client.health.recordSuccess()
		return records, nil
	case classUnavailable:
		a.client.health.recordFailure()
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeContentUnavailable,
			fmt.Sprintf("site %q unavailable", target), out.err)
	case classQuota:
		a.client.health.recordFailure()
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeQuotaExhausted,
			"site feed and page both rate limited", out.err)
	default:
		a.client.health.recordFailure()
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeNetwork,
			fmt.Sprintf("web fetch for %q failed", target), out.err)
	}
}

func (a *Web) siteURL(target string) string {
	if strings.Contains(target, "://") {
		return strings.TrimRight(target, "/")
	}
	return fmt.Sprintf("%s://%s", a.cfg.Scheme, strings.TrimRight(target, "/"))
}

// jsonFeed is the subset of the JSON Feed 1.1 format the adapter reads.
type jsonFeed struct {
	Title   string `json:"title"`
	Authors []struct {
		Name string `json:"name"`
		URL  string `json:"url"`
	} `json:"authors"`
	Items []struct {
		ID            string `json:"id"`
		URL           string `json:"url"`
		Title         string `json:"title"`
		ContentText   string `json:"content_text"`
		ContentHTML   string `json:"content_html"`
		DatePublished string `json:"date_published"`
		Authors       []struct {
			Name string `json:"name"`
			URL  string `json:"url"`
		} `json:"authors"`
	} `json:"items"`
}

func (a *Web) fetchFeed(ctx context.Context, site string, limit int) ([]domain.RawRecord, outcome) {
	body, out := a.client.getWithRetry(ctx, site+"/feed.json")
	if !out.ok() {
		return nil, out
	}

	var feed jsonFeed
	if err := json.Unmarshal(body, &feed); err != nil {
		return nil, outcome{class: classUnavailable, err: fmt.Errorf("decode feed: %w", err)}
	}

	feedAuthor := ""
	if len(feed.Authors) > 0 {
		feedAuthor = feed.Authors[0].Name
	}

	records := make([]domain.RawRecord, 0, len(feed.Items))
	for _, item := range feed.Items {
		if len(records) >= limit {
			break
		}

		text := item.ContentText
		if text == "" && item.ContentHTML != "" {
			text = stripHTML(item.ContentHTML)
		}
		if strings.TrimSpace(text) == "" {
			log.Printf("web: skipping feed item %s without content", item.ID)
			continue
		}

		author := feedAuthor
		if len(item.Authors) > 0 {
			author = item.Authors[0].Name
		}

		itemURL := item.URL
		if itemURL == "" {
			itemURL = item.ID
		}

		records = append(records, domain.RawRecord{
			Platform:    domain.PlatformWeb,
			SourceURL:   itemURL,
			AuthorID:    authorSlug(author, site),
			AuthorName:  author,
			Title:       item.Title,
			Body:        text,
			PublishedAt: parseTimestamp(item.DatePublished),
			Source:      domain.FetchSourceAPI,
			Extra: map[string]string{
				"source": string(domain.FetchSourceAPI),
				"site":   site,
				"feed":   feed.Title,
			},
		})
	}

	return records, outcome{class: classSuccess}
}

// fetchPage scrapes the article index. Blogs rarely publish engagement
// counters in markup, so metrics stay zero-filled.
func (a *Web) fetchPage(ctx context.Context, site string, limit int) ([]domain.RawRecord, outcome) {
	body, out := a.client.getWithRetry(ctx, site+"/")
	if !out.ok() {
		return nil, out
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return nil, outcome{class: classUnavailable, err: fmt.Errorf("parse index page: %w", err)}
	}

	siteAuthor := strings.TrimSpace(doc.Find(`meta[name="author"]`).First().AttrOr("content", ""))

	var records []domain.RawRecord
	doc.Find("article").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		if len(records) >= limit {
			return false
		}

		link := sel.Find("a").FilterFunction(func(_ int, a *goquery.Selection) bool {
			_, ok := a.Attr("href")
			return ok
		}).First()
		href, _ := link.Attr("href")
		text := strings.TrimSpace(sel.Find(".entry-content, .post-content, p").Text())
		if href == "" || text == "" {
			return true
		}

		title := strings.TrimSpace(sel.Find("h1, h2, h3").First().Text())
		author := strings.TrimSpace(sel.Find(".author, [rel=author]").First().Text())
		if author == "" {
			author = siteAuthor
		}

		var published string
		if dt, ok := sel.Find("time").First().Attr("datetime"); ok {
			published = dt
		}

		records = append(records, domain.RawRecord{
			Platform:    domain.PlatformWeb,
			SourceURL:   absoluteURL(site, href),
			AuthorID:    authorSlug(author, site),
			AuthorName:  author,
			Title:       title,
			Body:        text,
			PublishedAt: parseTimestamp(published),
			Source:      domain.FetchSourceScrape,
			Extra: map[string]string{
				"source": string(domain.FetchSourceScrape),
				"site":   site,
			},
		})
		return true
	})

	return records, outcome{class: classSuccess}
}

// authorSlug derives a stable author ID for platforms without author IDs.
func authorSlug(name, site string) string {
	name = strings.TrimSpace(strings.ToLower(name))
	if name == "" {
		if u, err := url.Parse(site); err == nil && u.Host != "" {
			return u.Host
		}
		return site
	}
	return strings.ReplaceAll(name, " ", "-")
}

// stripHTML extracts text from an HTML fragment.
func stripHTML(fragment string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(fragment))
	if err != nil {
		return fragment
	}
	return strings.TrimSpace(doc.Text())
}
