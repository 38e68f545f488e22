package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFeed_Validate(t *testing.T) {
	tests := []struct {
		name    string
		feed    Feed
		wantErr bool
	}{
		{
			name:    "valid feed",
			feed:    Feed{URL: "https://example.org/rss"},
			wantErr: false,
		},
		{
			name:    "empty url",
			feed:    Feed{URL: ""},
			wantErr: true,
		},
		{
			name:    "invalid scheme",
			feed:    Feed{URL: "ftp://example.org/rss"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.feed.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestFeed_MarkError_DeactivatesAtThreshold(t *testing.T) {
	f := &Feed{IsActive: true}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < maxConsecutiveErrors-1; i++ {
		f.MarkError(now, "boom")
		assert.True(t, f.IsActive, "feed should stay active before reaching threshold")
	}

	f.MarkError(now, "boom")
	assert.Equal(t, maxConsecutiveErrors, f.ErrorCount)
	assert.False(t, f.IsActive, "feed must deactivate at the 10th consecutive error")
}

func TestFeed_MarkSuccess_ResetsErrorStreak(t *testing.T) {
	f := &Feed{IsActive: false, ErrorCount: 9}
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	f.MarkSuccess(now, `"etag-1"`, "Mon, 01 Jan 2026 00:00:00 GMT")

	assert.Equal(t, 0, f.ErrorCount)
	assert.Equal(t, "", f.LastError)
	assert.Equal(t, `"etag-1"`, f.ETag)
	require := f.LastSuccessfulFetchAt
	assert.NotNil(t, require)
}

func TestFeed_MarkError_ThenSuccess_ResetsToZero(t *testing.T) {
	f := &Feed{IsActive: true}
	now := time.Now()

	for i := 0; i < 7; i++ {
		f.MarkError(now, "boom")
	}
	assert.Equal(t, 7, f.ErrorCount)

	f.MarkSuccess(now, "", "")
	assert.Equal(t, 0, f.ErrorCount)
}
