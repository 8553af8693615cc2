package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestArticle_ZeroValue(t *testing.T) {
	var a Article

	assert.Equal(t, int64(0), a.ID)
	assert.Equal(t, "", a.URL)
	assert.Equal(t, "", a.ResolvedURL)
	assert.Equal(t, "", a.Content)
	assert.Nil(t, a.ScoreNovelty)
	assert.Nil(t, a.AverageScore)
	assert.True(t, a.Crawlable())
	assert.False(t, a.Evaluated())
}

func TestArticle_Crawlable(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    bool
	}{
		{"empty content", "", true},
		{"far below threshold", "short", true},
		{"exactly 199 chars", string(make([]byte, 199)), true},
		{"exactly 200 chars is not crawlable", string(make([]byte, 200)), false},
		{"well above threshold", string(make([]byte, 500)), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Article{Content: tt.content}
			assert.Equal(t, tt.want, a.Crawlable())
		})
	}
}

func TestArticle_Evaluated(t *testing.T) {
	a := Article{}
	assert.False(t, a.Evaluated())

	score := 4.2
	a.AverageScore = &score
	assert.True(t, a.Evaluated())
}

func TestArticle_Host(t *testing.T) {
	tests := []struct {
		name string
		a    Article
		want string
	}{
		{
			name: "prefers resolved URL host",
			a:    Article{URL: "https://aggregator.example/r/1", ResolvedURL: "https://origin.example/post"},
			want: "origin.example",
		},
		{
			name: "falls back to original URL host when unresolved",
			a:    Article{URL: "https://origin.example/post"},
			want: "origin.example",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Host())
		})
	}
}

func TestAverageOf(t *testing.T) {
	tests := []struct {
		name                                                        string
		novelty, importance, reliability, contextValue, thoughtProv int
		want                                                        float64
	}{
		{"all equal", 3, 3, 3, 3, 3, 3.0},
		{"mixed", 5, 4, 3, 2, 1, 3.0},
		{"all max", 5, 5, 5, 5, 5, 5.0},
		{"all zero", 0, 0, 0, 0, 0, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AverageOf(tt.novelty, tt.importance, tt.reliability, tt.contextValue, tt.thoughtProv)
			assert.InDelta(t, tt.want, got, 0.0001)
		})
	}
}

func TestArticle_TimeFields(t *testing.T) {
	published := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	created := time.Date(2024, 1, 2, 12, 0, 0, 0, time.UTC)

	a := Article{PublishedAt: published, CreatedAt: created}

	assert.True(t, a.CreatedAt.After(a.PublishedAt))
}

func TestArticle_PartialEvaluationFields(t *testing.T) {
	novelty := 4
	a := Article{URL: "https://example.com/a", ScoreNovelty: &novelty}

	assert.False(t, a.Evaluated(), "AverageScore must be set for Evaluated to report true")
	assert.Equal(t, 4, *a.ScoreNovelty)
}
