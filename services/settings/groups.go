package settings

import (
	"net"
)

// Group short names
const (
	GroupGeneral      = "general"
	GroupDisplay      = "display"
	GroupReports      = "reports"
	GroupIntegrations = "integrations"
	GroupOther        = "other"
)

// Custom submit actions accepted by the other group
const (
	ActionExportViews = "export_views"
	ActionImportViews = "import_views"
	ActionResetViews  = "reset_views"
)

// knownIntegrations lists the toggles the integrations group manages.
// Unknown slugs found in the stored document belong to extensions and are
// preserved as-is.
var knownIntegrations = []string{"woocommerce", "elementor", "rank_math", "amp"}

const optionPrefix = "post_views_settings_"

// defaultGroups compiles the built-in settings groups. Field metadata is
// immutable; only persisted values change.
func defaultGroups() []Group {
	return []Group{
		{
			Name:       GroupGeneral,
			Title:      "General",
			OptionName: optionPrefix + GroupGeneral,
			Fields: []Field{
				{
					Key:     "post_types_count",
					Title:   "Post Types Count",
					Kind:    CheckboxSet{},
					Default: []string{"post"},
					Options: map[string]string{
						"post":       "Posts",
						"page":       "Pages",
						"attachment": "Media",
					},
				},
				{
					Key:     "counter_mode",
					Title:   "Counter Mode",
					Kind:    Radio{},
					Default: "rest_api",
					Options: map[string]string{
						"php":      "PHP",
						"js":       "JavaScript",
						"rest_api": "REST API",
						"ajax":     "Fast AJAX",
					},
					Disabled: []string{"ajax"},
				},
				{
					Key:     "time_between_counts",
					Title:   "Count Interval",
					Kind:    Number{},
					Default: 1440,
					Min:     0,
					Max:     525600, // one year in minutes
				},
				{
					Key:     "strict_counts",
					Title:   "Strict Counts",
					Kind:    Boolean{},
					Default: false,
				},
				{
					Key:     "event_retention_days",
					Title:   "Raw Event Retention",
					Kind:    Number{},
					Default: 30,
					Min:     1,
					Max:     3650,
				},
				{
					Key:     "exclude_groups",
					Title:   "Exclude Visitors",
					Kind:    CheckboxSet{},
					Default: []string{"robots"},
					Options: map[string]string{
						"robots":  "crawlers",
						"ai_bots": "AI bots",
						"users":   "logged in users",
						"guests":  "guests",
					},
					Disabled: []string{"ai_bots"},
				},
				{
					Key:          "exclude_ips",
					Title:        "Exclude IPs",
					Kind:         Text{},
					Default:      []string{},
					ValidateFunc: validateExcludeIPs,
				},
				{
					Key:        "object_cache",
					Title:      "Object Cache Support",
					Kind:       Boolean{},
					Default:    false,
					SkipSaving: true, // feature-gated placeholder
				},
			},
		},
		{
			Name:       GroupDisplay,
			Title:      "Display",
			OptionName: optionPrefix + GroupDisplay,
			Fields: []Field{
				{
					Key:       "label",
					Title:     "Views Label",
					Kind:      Text{},
					Default:   "Post Views:",
					ResetFunc: resetLabel,
				},
				{
					Key:     "display_period",
					Title:   "Display Period",
					Kind:    Radio{},
					Default: "total",
					Options: map[string]string{
						"total":   "Total",
						"monthly": "Monthly",
						"weekly":  "Weekly",
						"daily":   "Daily",
					},
				},
				{
					Key:     "display_style",
					Title:   "Display Style",
					Kind:    CheckboxSet{},
					Default: []string{"icon", "text"},
					Options: map[string]string{
						"icon": "icon",
						"text": "label",
					},
				},
				{
					Key:     "icon_class",
					Title:   "Icon Class",
					Kind:    ClassList{},
					Default: "dashicons-chart-bar",
				},
				{
					Key:     "position",
					Title:   "Position",
					Kind:    Radio{},
					Default: "after",
					Options: map[string]string{
						"before": "before the content",
						"after":  "after the content",
						"manual": "manual",
					},
				},
				{
					Key:     "restrict_display_groups",
					Title:   "Hide For Visitors",
					Kind:    CheckboxSet{},
					Default: []string{},
					Options: map[string]string{
						"robots": "crawlers",
						"users":  "logged in users",
						"guests": "guests",
					},
				},
				{
					Key:     "post_views_column",
					Title:   "Post Views Column",
					Kind:    Boolean{},
					Default: true,
				},
				{
					Key:     "chart_color",
					Title:   "Chart Color",
					Kind:    Color{},
					Default: "#536390",
				},
			},
		},
		{
			Name:       GroupReports,
			Title:      "Reports",
			OptionName: optionPrefix + GroupReports,
			Fields: []Field{
				{
					Key:        "weekly_email",
					Title:      "Weekly Email Report",
					Kind:       Boolean{},
					Default:    false,
					SkipSaving: true,
				},
				{
					Key:        "report_recipients",
					Title:      "Recipients",
					Kind:       Text{},
					Default:    "",
					SkipSaving: true,
				},
				{
					Key:     "reports_info",
					Title:   "About Reports",
					Kind:    Info{},
					Default: "",
				},
			},
		},
		{
			Name:       GroupIntegrations,
			Title:      "Integrations",
			OptionName: optionPrefix + GroupIntegrations,
			Fields: []Field{
				{
					Key:          "integrations",
					Title:        "Integrations",
					Kind:         Custom{},
					Default:      defaultIntegrations(),
					ValidateFunc: validateIntegrations,
				},
			},
			PostValidate: mergeIntegrations,
		},
		{
			Name:       GroupOther,
			Title:      "Other",
			OptionName: optionPrefix + GroupOther,
			Fields: []Field{
				{
					Key:     "deactivation_delete",
					Title:   "Delete Data on Deactivation",
					Kind:    Boolean{},
					Default: false,
				},
				{
					Key:     "import_provider",
					Title:   "Import Provider",
					Kind:    Radio{},
					Default: "s3",
					Options: map[string]string{
						"s3":   "Object storage",
						"file": "Local file",
					},
				},
				{
					Key:     "import_path",
					Title:   "Import Path",
					Kind:    Text{},
					Default: "",
				},
			},
			CustomActions: []string{ActionExportViews, ActionImportViews, ActionResetViews},
		},
	}
}

// validateExcludeIPs keeps only parseable IP addresses
func validateExcludeIPs(value interface{}, f Field) interface{} {
	items, ok := toSlice(value)
	if !ok {
		// a single textarea line is also accepted
		if s := sanitizeText(toString(value)); s != "" {
			items = []interface{}{s}
		} else {
			return []string{}
		}
	}

	kept := make([]string, 0, len(items))
	for _, item := range items {
		s := sanitizeText(toString(item))
		if net.ParseIP(s) != nil {
			kept = append(kept, s)
		}
	}

	return kept
}

// resetLabel rebuilds the derived default label on reset
func resetLabel(value interface{}, f Field) interface{} {
	return f.Default
}

func defaultIntegrations() map[string]interface{} {
	doc := make(map[string]interface{}, len(knownIntegrations))
	for _, slug := range knownIntegrations {
		doc[slug] = false
	}
	return doc
}

// validateIntegrations coerces the submitted toggle map to booleans; the
// whole-document signature lets it replace the nested map in place
func validateIntegrations(value interface{}, f Field) interface{} {
	doc, ok := value.(map[string]interface{})
	if !ok {
		return value
	}

	submitted, ok := doc["integrations"].(map[string]interface{})
	if !ok {
		doc["integrations"] = map[string]interface{}{}
		return doc
	}

	toggles := make(map[string]interface{}, len(submitted))
	for slug, v := range submitted {
		toggles[sanitizeKey(slug)] = v == true || v == "true"
	}
	doc["integrations"] = toggles

	return doc
}

// mergeIntegrations preserves unknown slugs from the stored document and
// backfills missing known toggles to false, since unchecked boxes submit
// nothing
func mergeIntegrations(validated, stored map[string]interface{}) map[string]interface{} {
	toggles, ok := validated["integrations"].(map[string]interface{})
	if !ok {
		toggles = map[string]interface{}{}
	}

	if stored != nil {
		if existing, ok := stored["integrations"].(map[string]interface{}); ok {
			for slug, status := range existing {
				known := false
				for _, k := range knownIntegrations {
					if slug == k {
						known = true
						break
					}
				}
				if !known {
					toggles[slug] = status
				}
			}
		}
	}

	for _, slug := range knownIntegrations {
		if _, ok := toggles[slug]; !ok {
			toggles[slug] = false
		}
	}

	validated["integrations"] = toggles
	return validated
}
