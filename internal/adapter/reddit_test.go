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

func TestReddit_FetchViaJSON(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/r/golang/new.json", r.URL.Path)
		fmt.Fprint(w, `{"data":{"children":[
			{"data":{"id":"p1","title":"Generics question","selftext":"how do I constrain a type param","author":"gopher1","author_fullname":"t2_abc","score":42,"num_comments":7,"permalink":"/r/golang/comments/p1/","created_utc":1754040000}},
			{"data":{"id":"p2","title":"Link post","selftext":"","author":"gopher2","permalink":"/r/golang/comments/p2/"}},
			{"data":{"id":"p3","title":"Removed","selftext":"[removed]","author":"gopher3","permalink":"/r/golang/comments/p3/"}}
		]}}`)
	}))
	defer api.Close()

	a := NewReddit(RedditConfig{APIBaseURL: api.URL, Options: testOptions(nil)})

	records, err := a.Fetch(context.Background(), "golang", 10)
	require.NoError(t, err)

	// Link-only and removed posts are skipped per item.
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, domain.PlatformReddit, rec.Platform)
	assert.Equal(t, api.URL+"/r/golang/comments/p1/", rec.SourceURL)
	assert.Equal(t, "t2_abc", rec.AuthorID)
	assert.Equal(t, "gopher1", rec.AuthorName)
	assert.Equal(t, int64(42), rec.Likes)
	assert.Equal(t, int64(7), rec.Comments)
	assert.Equal(t, "golang", rec.Extra["subreddit"])
	assert.False(t, rec.PublishedAt.IsZero())
}

func TestReddit_RateLimitedSwitchesToMirror(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer api.Close()

	mirror := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/r/golang/new/", r.URL.Path)
		fmt.Fprint(w, `<html><body>
			<div class="thing" data-permalink="/r/golang/comments/m1/" data-author="gopher9">
				<a class="title">Mirror post</a>
				<div class="score">128</div>
				<div class="usertext-body">text from the mirror</div>
				<time datetime="2026-08-03T12:00:00Z"></time>
			</div>
		</body></html>`)
	}))
	defer mirror.Close()

	a := NewReddit(RedditConfig{APIBaseURL: api.URL, MirrorBaseURL: mirror.URL, Options: testOptions(nil)})

	records, err := a.Fetch(context.Background(), "golang", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "Mirror post", rec.Title)
	assert.Equal(t, "gopher9", rec.AuthorName)
	assert.Equal(t, int64(128), rec.Likes)
	assert.Equal(t, "text from the mirror", rec.Body)
	assert.Equal(t, string(domain.FetchSourceScrape), rec.Extra["source"])
}

func TestReddit_MissingSubredditIsUnavailable(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer api.Close()

	a := NewReddit(RedditConfig{APIBaseURL: api.URL, Options: testOptions(nil)})

	_, err := a.Fetch(context.Background(), "doesnotexist", 10)
	require.Error(t, err)

	var derr *domain.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.ErrCodeContentUnavailable, derr.Code)
}
