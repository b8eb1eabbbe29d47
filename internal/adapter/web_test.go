package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/echolens/echolens/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWeb_FetchViaFeed(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/feed.json", r.URL.Path)
		fmt.Fprint(w, `{
			"title": "Maria's Notes",
			"authors": [{"name": "Maria Silva"}],
			"items": [
				{"id":"a1","url":"https://notes.example/posts/a1","title":"On caching","content_text":"caches are hard","date_published":"2026-07-30T08:00:00Z"},
				{"id":"a2","url":"https://notes.example/posts/a2","title":"HTML only","content_html":"<p>rendered <b>content</b></p>"},
				{"id":"a3","url":"https://notes.example/posts/a3","title":"Empty"}
			]
		}`)
	}))
	defer site.Close()

	a := NewWeb(WebConfig{Options: testOptions(nil)})

	records, err := a.Fetch(context.Background(), site.URL, 10)
	require.NoError(t, err)

	// The empty item is skipped; the HTML-only item is stripped to text.
	require.Len(t, records, 2)
	assert.Equal(t, "caches are hard", records[0].Body)
	assert.Equal(t, "Maria Silva", records[0].AuthorName)
	assert.Equal(t, "maria-silva", records[0].AuthorID)
	assert.Equal(t, "rendered content", records[1].Body)
	assert.Equal(t, string(domain.FetchSourceAPI), records[0].Extra["source"])
}

func TestWeb_FeedRateLimitedFallsBackToScrape(t *testing.T) {
	site := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/feed.json" {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `<html><head><meta name="author" content="Maria Silva"></head><body>
			<article>
				<h2><a href="/posts/b1">Scraped article</a></h2>
				<div class="entry-content">long article body text</div>
				<time datetime="2026-08-04T10:00:00Z"></time>
			</article>
		</body></html>`)
	}))
	defer site.Close()

	a := NewWeb(WebConfig{Options: testOptions(nil)})

	records, err := a.Fetch(context.Background(), site.URL, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "Scraped article", rec.Title)
	assert.Equal(t, site.URL+"/posts/b1", rec.SourceURL)
	assert.Equal(t, "Maria Silva", rec.AuthorName)
	assert.Equal(t, string(domain.FetchSourceScrape), rec.Extra["source"])
}

func TestParseCount(t *testing.T) {
	assert.Equal(t, int64(1234), parseCount("1,234 views"))
	assert.Equal(t, int64(12000), parseCount("12k"))
	assert.Equal(t, int64(1500000), parseCount("1.5M"))
	assert.Equal(t, int64(0), parseCount(""))
	assert.Equal(t, int64(0), parseCount("•"))
}

func TestParseTimestamp(t *testing.T) {
	assert.Equal(t, "2026-08-01T10:00:00Z", parseTimestamp("2026-08-01T10:00:00Z").Format("2006-01-02T15:04:05Z"))
	assert.Equal(t, int64(1754040000), parseTimestamp("1754040000").Unix())
	assert.True(t, parseTimestamp("not a time").IsZero())
	assert.True(t, parseTimestamp("").IsZero())
}
