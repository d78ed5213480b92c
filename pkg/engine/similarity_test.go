package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSimilarity(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"slack", "slack", 1},
		{"", "", 1},
		{"", "slack", 0},
		{"abc", "xyz", 0},
		{"slak", "slack", 8.0 / 9.0},
		{"abcdefghij", "abcdefgxyz", 0.7},
		{"abcdefg", "abcdexy", 10.0 / 14.0},
		{"gmial", "gmail", 0.8},
		{"hubspot", "spothub", 8.0 / 14.0},
		{"openia", "openai", 10.0 / 12.0},
		{"zoho", "zöho", 6.0 / 8.0},
	}

	for _, tt := range tests {
		t.Run(tt.a+"/"+tt.b, func(t *testing.T) {
			assert.InDelta(t, tt.want, Similarity(tt.a, tt.b), 1e-9)
		})
	}
}

func TestSimilarityLongInputKeepsFrequentRunes(t *testing.T) {
	a, b := strings.Repeat("ab", 150), strings.Repeat("ba", 150)
	assert.InDelta(t, 598.0/600.0, Similarity(a, b), 1e-9)
}

func TestSimilarityIsSymmetric(t *testing.T) {
	pairs := [][2]string{
		{"slak", "slack"},
		{"googlesheet", "googlesheets"},
		{"abxcd", "abcd"},
		{"hubspot", "spothub"},
		{"mailchimp", "chimpmail"},
	}
	for _, p := range pairs {
		assert.Equal(t, Similarity(p[0], p[1]), Similarity(p[1], p[0]), "%s/%s", p[0], p[1])
	}
}
