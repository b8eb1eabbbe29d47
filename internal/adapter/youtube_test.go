package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/echolens/echolens/internal/domain"
	"github.com/echolens/echolens/internal/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testOptions(l *ledger.CostLedger) Options {
	return Options{
		WindowLimit:    1000,
		WindowDuration: time.Minute,
		Ledger:         l,
	}
}

func TestYouTube_FetchViaAPI(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/channels/techchan/videos":
			fmt.Fprint(w, `{"items":[
				{"id":"vid1","title":"Intro to Go","channel_id":"UC123","channel_title":"Tech Chan","view_count":1500,"like_count":90,"comment_count":12,"published_at":"2026-08-01T10:00:00Z"},
				{"id":"vid2","title":"Gone Video","channel_id":"UC123","channel_title":"Tech Chan"}
			]}`)
		case "/videos/vid1":
			fmt.Fprint(w, `{"description":"A short intro.","transcript":"hello and welcome to the channel","duration_seconds":300}`)
		case "/videos/vid2":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer api.Close()

	l := ledger.NewCostLedger(0)
	a := NewYouTube(YouTubeConfig{
		APIBaseURL: api.URL,
		WebBaseURL: "https://youtube.example",
		APIKey:     "test-key",
		Options:    testOptions(l),
	})

	records, err := a.Fetch(context.Background(), "techchan", 10)
	require.NoError(t, err)

	// vid2 is unavailable: skipped, not fatal.
	require.Len(t, records, 1)
	rec := records[0]
	assert.Equal(t, domain.PlatformYouTube, rec.Platform)
	assert.Equal(t, "https://youtube.example/watch?v=vid1", rec.SourceURL)
	assert.Equal(t, "UC123", rec.AuthorID)
	assert.Equal(t, "Tech Chan", rec.AuthorName)
	assert.Equal(t, "hello and welcome to the channel", rec.Body)
	assert.Equal(t, int64(1500), rec.Views)
	assert.Equal(t, string(domain.FetchSourceAPI), rec.Extra["source"])

	assert.Equal(t, domain.AdapterStateReady, a.Health().State)
	assert.Equal(t, int64(3), l.Snapshot().RequestsMade)
}

func TestYouTube_QuotaFailureSwitchesToScrape(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusPaymentRequired)
	}))
	defer api.Close()

	web := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/@techchan/videos", r.URL.Path)
		fmt.Fprint(w, `<html><body>
			<h1 class="channel-name">Tech Chan</h1>
			<div class="video-renderer">
				<a class="video-link" href="/watch?v=vid9"></a>
				<h3 class="video-title">Scraped Video</h3>
				<p class="video-description">scraped description text</p>
				<span class="view-count">2,100 views</span>
				<time datetime="2026-08-02T09:00:00Z"></time>
			</div>
		</body></html>`)
	}))
	defer web.Close()

	a := NewYouTube(YouTubeConfig{
		APIBaseURL: api.URL,
		WebBaseURL: web.URL,
		Options:    testOptions(nil),
	})

	records, err := a.Fetch(context.Background(), "techchan", 10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, "Scraped Video", rec.Title)
	assert.Equal(t, web.URL+"/watch?v=vid9", rec.SourceURL)
	assert.Equal(t, int64(2100), rec.Views)
	assert.Equal(t, "Tech Chan", rec.AuthorName)
	// The fallback strategy tags its records.
	assert.Equal(t, string(domain.FetchSourceScrape), rec.Extra["source"])

	assert.Equal(t, domain.AdapterStateReady, a.Health().State)
}

func TestYouTube_NetworkFailureDegradesHealth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	a := NewYouTube(YouTubeConfig{APIBaseURL: srv.URL, WebBaseURL: srv.URL, Options: testOptions(nil)})
	a.client.sleep = noSleep

	_, err := a.Fetch(context.Background(), "techchan", 5)
	require.Error(t, err)

	var derr *domain.DomainError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domain.ErrCodeNetwork, derr.Code)

	health := a.Health()
	assert.Equal(t, domain.AdapterStateDegraded, health.State)
	assert.Equal(t, 1, health.ConsecutiveErrors)
}

func TestYouTube_UnhealthyRefusesWork(t *testing.T) {
	a := NewYouTube(YouTubeConfig{Options: testOptions(nil)})
	for i := 0; i <= DefaultUnhealthyThreshold; i++ {
		a.client.health.recordFailure()
	}

	_, err := a.Fetch(context.Background(), "techchan", 5)
	assert.ErrorIs(t, err, domain.ErrAdapterUnhealthy)

	a.Reset()
	assert.Equal(t, domain.AdapterStateReady, a.Health().State)
}

func TestYouTube_ProviderLimitTightensWindow(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-RateLimit-Remaining", "2")
		fmt.Fprint(w, `{"items":[]}`)
	}))
	defer api.Close()

	a := NewYouTube(YouTubeConfig{APIBaseURL: api.URL, Options: testOptions(nil)})

	_, err := a.Fetch(context.Background(), "techchan", 5)
	require.NoError(t, err)

	// Self-imposed window allowed ~1000; the provider said 2 remain.
	assert.Equal(t, 2, a.Health().RateRemaining)
}
