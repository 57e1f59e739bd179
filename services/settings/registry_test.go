package settings

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateUnauthorizedPassesThrough(t *testing.T) {
	r := NewRegistry(nil)
	input := map[string]interface{}{"counter_mode": "<script>"}

	validated, touched := r.Validate(context.Background(), GroupGeneral, ActionSave, input, false)

	// no mutation, no error, no touched fields
	assert.Equal(t, input, validated)
	assert.Empty(t, touched)
}

func TestValidateUnknownGroupPassesThrough(t *testing.T) {
	r := NewRegistry(nil)
	input := map[string]interface{}{"whatever": true}

	validated, touched := r.Validate(context.Background(), "nonexistent", ActionSave, input, true)

	assert.Equal(t, input, validated)
	assert.Empty(t, touched)
}

func TestValidateResolvesGroupByOptionName(t *testing.T) {
	r := NewRegistry(nil)

	byName, ok := r.Group(GroupDisplay)
	require.True(t, ok)
	byOption, ok := r.Group(optionPrefix + GroupDisplay)
	require.True(t, ok)
	assert.Equal(t, byName, byOption)
}

func TestValidateSaveSubstitutesDefaults(t *testing.T) {
	r := NewRegistry(nil)
	input := map[string]interface{}{
		"counter_mode":        "js",
		"time_between_counts": "999999999",
	}

	validated, touched := r.Validate(context.Background(), GroupGeneral, ActionSave, input, true)

	assert.Equal(t, "js", validated["counter_mode"])
	assert.Equal(t, 525600, validated["time_between_counts"])
	// absent fields take the declared default
	assert.Equal(t, []string{"post"}, validated["post_types_count"])
	assert.Equal(t, false, validated["strict_counts"])

	// gated fields are never persisted and never touched
	assert.NotContains(t, validated, "object_cache")
	assert.NotContains(t, touched, "object_cache")

	// touched keys follow field declaration order
	g, _ := r.Group(GroupGeneral)
	want := make([]string, 0, len(g.Fields))
	for _, f := range g.Fields {
		if !f.SkipSaving {
			want = append(want, f.Key)
		}
	}
	assert.Equal(t, want, touched)
}

func TestValidateSaveIsIdempotent(t *testing.T) {
	r := NewRegistry(nil)
	input := map[string]interface{}{
		"counter_mode":   "ajax", // disabled, falls back to default
		"exclude_groups": []interface{}{"robots", "bogus", "guests"},
		"strict_counts":  "true",
	}

	first, _ := r.Validate(context.Background(), GroupGeneral, ActionSave, input, true)
	second, _ := r.Validate(context.Background(), GroupGeneral, ActionSave, first, true)

	assert.Equal(t, first, second)
}

func TestValidateResetCompilesDefaults(t *testing.T) {
	r := NewRegistry(nil)
	input := map[string]interface{}{
		"label":       "My custom label",
		"chart_color": "#abc",
	}

	validated, touched := r.Validate(context.Background(), GroupDisplay, ActionReset, input, true)

	// submitted values are irrelevant to a reset
	assert.Equal(t, "Post Views:", validated["label"])
	assert.Equal(t, "#536390", validated["chart_color"])
	assert.Equal(t, "after", validated["position"])
	assert.Empty(t, touched)

	g, _ := r.Group(GroupDisplay)
	assert.Equal(t, len(r.Defaults(g)), len(validated))
}

func TestValidateCustomActionLeavesInputAlone(t *testing.T) {
	r := NewRegistry(nil)
	input := map[string]interface{}{"deactivation_delete": "true"}

	// without a store the custom action falls back to the raw input;
	// either way the per-field loop must not run
	validated, touched := r.Validate(context.Background(), GroupOther, Action(ActionResetViews), input, true)

	assert.Equal(t, input, validated)
	assert.Empty(t, touched)
}

func TestValidateIntegrationsBackfill(t *testing.T) {
	r := NewRegistry(nil)
	input := map[string]interface{}{
		"integrations": map[string]interface{}{
			"woocommerce": "true",
			"legacy_ext":  true, // unknown slug submitted by an extension
		},
	}

	validated, _ := r.Validate(context.Background(), GroupIntegrations, ActionSave, input, true)

	toggles, ok := validated["integrations"].(map[string]interface{})
	require.True(t, ok)

	assert.Equal(t, true, toggles["woocommerce"])
	assert.Equal(t, true, toggles["legacy_ext"])
	// unchecked known toggles backfill to false
	assert.Equal(t, false, toggles["elementor"])
	assert.Equal(t, false, toggles["rank_math"])
	assert.Equal(t, false, toggles["amp"])
}

func TestDefaultsSkipGatedFields(t *testing.T) {
	r := NewRegistry(nil)

	g, ok := r.Group(GroupReports)
	require.True(t, ok)

	defaults := r.Defaults(g)
	assert.NotContains(t, defaults, "weekly_email")
	assert.NotContains(t, defaults, "report_recipients")
	assert.Contains(t, defaults, "reports_info")
}

func TestValuesMergeOverDefaultsWithoutStore(t *testing.T) {
	r := NewRegistry(nil)

	values, err := r.Values(context.Background(), GroupGeneral)
	require.NoError(t, err)
	assert.Equal(t, "rest_api", values["counter_mode"])

	_, err = r.Values(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrUnknownGroup)
}
