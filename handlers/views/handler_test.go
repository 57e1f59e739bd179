package views

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExcludedVisitor(t *testing.T) {
	tests := []struct {
		name          string
		exclude       interface{}
		ips           interface{}
		authenticated bool
		bot           bool
		ip            string
		want          bool
	}{
		{
			name:    "robots excluded blocks crawler",
			exclude: []string{"robots"},
			bot:     true,
			want:    true,
		},
		{
			name:    "robots excluded passes human",
			exclude: []string{"robots"},
			bot:     false,
			want:    false,
		},
		{
			name:          "users excluded blocks logged in visitor",
			exclude:       []string{"users"},
			authenticated: true,
			want:          true,
		},
		{
			name:          "users excluded passes anonymous visitor",
			exclude:       []string{"users"},
			authenticated: false,
			want:          false,
		},
		{
			name:          "guests excluded blocks anonymous visitor",
			exclude:       []string{"guests"},
			authenticated: false,
			want:          true,
		},
		{
			name:          "guests excluded passes logged in visitor",
			exclude:       []string{"guests"},
			authenticated: true,
			want:          false,
		},
		{
			name:          "stored document shape is honored",
			exclude:       []interface{}{"users", "robots"},
			authenticated: true,
			want:          true,
		},
		{
			name:    "listed ip is blocked",
			exclude: []string{},
			ips:     []interface{}{"203.0.113.9"},
			ip:      "203.0.113.9",
			want:    true,
		},
		{
			name:    "unlisted ip passes",
			exclude: []string{},
			ips:     []interface{}{"203.0.113.9"},
			ip:      "198.51.100.1",
			want:    false,
		},
		{
			name:    "no exclusions",
			exclude: []string{},
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			values := map[string]interface{}{
				"exclude_groups": tt.exclude,
				"exclude_ips":    tt.ips,
			}
			got := excludedVisitor(values, tt.authenticated, tt.bot, tt.ip)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTrackedType(t *testing.T) {
	defaults := map[string]interface{}{"post_types_count": []string{"post"}}
	assert.True(t, trackedType(defaults, "post"))
	assert.False(t, trackedType(defaults, "page"))

	stored := map[string]interface{}{"post_types_count": []interface{}{"post", "page"}}
	assert.True(t, trackedType(stored, "page"))
	assert.False(t, trackedType(stored, "attachment"))

	assert.False(t, trackedType(map[string]interface{}{}, "post"))
}

func TestDedupWindow(t *testing.T) {
	assert.Equal(t, 1440*time.Minute,
		dedupWindow(map[string]interface{}{"time_between_counts": 1440}))

	// stored JSON documents decode numbers as float64
	assert.Equal(t, 30*time.Minute,
		dedupWindow(map[string]interface{}{"time_between_counts": float64(30)}))

	assert.Equal(t, time.Duration(0), dedupWindow(map[string]interface{}{}))
}

func TestLooksLikeBot(t *testing.T) {
	assert.True(t, looksLikeBot("Mozilla/5.0 (compatible; Googlebot/2.1)"))
	assert.True(t, looksLikeBot("python-requests crawler"))
	assert.False(t, looksLikeBot("Mozilla/5.0 (Windows NT 10.0) Firefox/130.0"))
}
