package cron

import (
	"strings"
	"testing"

	"github.com/sahilchouksey/post-views-api/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The lifetime bucket is owned by counting and by the admin quick-edit
// override. If the recount ever rebuilds it from day rows, an override
// like SetViews(post, 1000) gets reverted within the hour.
func TestRecountNeverRebuildsLifetimeBucket(t *testing.T) {
	stmts := recountStatements()
	require.NotEmpty(t, stmts)

	for _, stmt := range stmts {
		assert.NotContains(t, stmt.args, model.PeriodTotal,
			"recount %q targets the lifetime bucket type", stmt.name)
		assert.NotContains(t, stmt.args, model.PeriodWeek,
			"recount %q targets the week bucket type", stmt.name)
		assert.NotContains(t, stmt.sql, "'total'",
			"recount %q writes the literal total period", stmt.name)
	}
}

func TestRecountDerivesFromDayRows(t *testing.T) {
	for _, stmt := range recountStatements() {
		assert.Contains(t, stmt.args, model.PeriodDay,
			"recount %q must read the day buckets", stmt.name)
		assert.Contains(t, stmt.sql, "ON CONFLICT (post_id, type, period)",
			"recount %q must upsert against the bucket index", stmt.name)
	}
}

func TestRecountRebuildsMonthBuckets(t *testing.T) {
	var names []string
	for _, stmt := range recountStatements() {
		names = append(names, stmt.name)
		if stmt.name == "month" {
			assert.Contains(t, stmt.args, model.PeriodMonth)
			assert.True(t, strings.Contains(stmt.sql, "substring(period from 1 for 6)"),
				"month recount must group day periods by their YYYYMM prefix")
		}
	}
	assert.Contains(t, names, "month")
}
