package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	scraped := time.Date(2026, 3, 1, 12, 30, 0, 123456789, time.UTC)

	token := EncodeCursor("c-123", scraped)
	require.NotEmpty(t, token)

	cursor, err := DecodeCursor(token)
	require.NoError(t, err)
	assert.Equal(t, "c-123", cursor.LastID)
	assert.True(t, cursor.Timestamp.Equal(scraped))
}

func TestEncodeCursor_EmptyIDMeansFirstPage(t *testing.T) {
	assert.Empty(t, EncodeCursor("", time.Now()))
}

func TestDecodeCursor_EmptyTokenMeansFirstPage(t *testing.T) {
	cursor, err := DecodeCursor("")
	require.NoError(t, err)
	assert.Nil(t, cursor)
}

func TestDecodeCursor_RejectsMalformedTokens(t *testing.T) {
	_, err := DecodeCursor("not base64!!")
	assert.ErrorIs(t, err, ErrInvalidCursor)

	noSeparator := base64.StdEncoding.EncodeToString([]byte("c-123"))
	_, err = DecodeCursor(noSeparator)
	assert.ErrorIs(t, err, ErrInvalidCursor)

	badTime := base64.StdEncoding.EncodeToString([]byte("c-123|yesterday"))
	_, err = DecodeCursor(badTime)
	assert.ErrorIs(t, err, ErrInvalidCursor)
}
