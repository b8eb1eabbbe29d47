package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateContentItem_Valid(t *testing.T) {
	item := &ContentItem{
		ID:        "content-123",
		Platform:  PlatformYouTube,
		SourceURL: "https://youtube.com/watch?v=abc",
		Body:      "some transcript text",
	}

	err := ValidateContentItem(item)

	assert.NoError(t, err)
}

func TestValidateContentItem_Invalid(t *testing.T) {
	tests := []struct {
		name string
		item *ContentItem
	}{
		{"nil item", nil},
		{"missing id", &ContentItem{Platform: PlatformReddit, SourceURL: "https://reddit.com/r/x/1", Body: "b"}},
		{"missing source url", &ContentItem{ID: "c1", Platform: PlatformReddit, Body: "b"}},
		{"missing body", &ContentItem{ID: "c1", Platform: PlatformReddit, SourceURL: "https://reddit.com/r/x/1"}},
		{"unknown platform", &ContentItem{ID: "c1", Platform: Platform("myspace"), SourceURL: "https://myspace.com/1", Body: "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, ValidateContentItem(tt.item))
		})
	}
}

func TestIsValidPlatform(t *testing.T) {
	assert.True(t, IsValidPlatform(PlatformYouTube))
	assert.True(t, IsValidPlatform(PlatformReddit))
	assert.True(t, IsValidPlatform(PlatformWeb))
	assert.False(t, IsValidPlatform(Platform("")))
	assert.False(t, IsValidPlatform(Platform("friendster")))
}

func TestHasEmbedding(t *testing.T) {
	item := &ContentItem{}
	assert.False(t, item.HasEmbedding())

	item.Embedding = []float32{0.1, 0.2}
	assert.True(t, item.HasEmbedding())
}

func TestDomainError_ErrorAndUnwrap(t *testing.T) {
	base := assert.AnError
	err := NewDomainErrorWithCause(ErrCodeNetwork, "fetch failed", base)

	assert.Contains(t, err.Error(), ErrCodeNetwork)
	assert.Contains(t, err.Error(), "fetch failed")
	assert.Equal(t, base, err.Unwrap())

	bare := NewDomainError(ErrCodeBudgetExceeded, "over budget")
	assert.Contains(t, bare.Error(), "BUDGET_EXCEEDED")
	assert.Nil(t, bare.Unwrap())
}
