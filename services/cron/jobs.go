package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/sahilchouksey/post-views-api/model"
	"github.com/sahilchouksey/post-views-api/services/settings"
)

const defaultRetentionDays = 30

// recountStatement is one upsert the hourly recount executes
type recountStatement struct {
	name string
	sql  string
	args []interface{}
}

// recountStatements rebuilds derived buckets from the day rows. Only the
// month buckets are derived: week periods cannot be recovered from day
// period strings, and the lifetime bucket is written directly by counting
// and by the admin quick-edit override, so regenerating it from day rows
// would silently revert an override.
func recountStatements() []recountStatement {
	return []recountStatement{
		{
			name: "month",
			sql: `
		INSERT INTO post_views (post_id, type, period, count)
		SELECT post_id, ?, substring(period from 1 for 6), SUM(count)
		FROM post_views
		WHERE type = ?
		GROUP BY post_id, substring(period from 1 for 6)
		ON CONFLICT (post_id, type, period) DO UPDATE SET count = EXCLUDED.count`,
			args: []interface{}{model.PeriodMonth, model.PeriodDay},
		},
	}
}

// RecountAggregates rebuilds the derived month buckets from the day rows.
// Runs hourly so a partial import or a missed bucket write heals on its own.
func (m *CronManager) RecountAggregates() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	jobName := "recount_aggregates"

	var rebuilt int64
	for _, stmt := range recountStatements() {
		res := m.db.WithContext(ctx).Exec(stmt.sql, stmt.args...)
		if res.Error != nil {
			m.logJobError(jobName, fmt.Errorf("failed to recount %s buckets: %w", stmt.name, res.Error))
			return
		}
		rebuilt += res.RowsAffected
	}

	// aggregates may have shifted under cached verdicts
	m.signals.FlushAll(ctx)

	m.logJobComplete(jobName, fmt.Sprintf("Recounted %d month buckets", rebuilt))
}

// PruneViewEvents deletes raw view events older than the configured
// retention window. Aggregated buckets are unaffected.
func (m *CronManager) PruneViewEvents() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	jobName := "prune_view_events"

	days := m.retentionDays(ctx)
	cutoff := time.Now().AddDate(0, 0, -days)

	res := m.db.WithContext(ctx).
		Where("viewed_at < ?", cutoff).
		Delete(&model.ViewEvent{})
	if res.Error != nil {
		m.logJobError(jobName, fmt.Errorf("failed to prune view events: %w", res.Error))
		return
	}

	m.logJobComplete(jobName, fmt.Sprintf("Deleted %d events older than %d days", res.RowsAffected, days))
}

// CleanupJobLogs removes finished job log rows older than 90 days
func (m *CronManager) CleanupJobLogs() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	jobName := "cleanup_job_logs"
	cutoff := time.Now().AddDate(0, 0, -90)

	res := m.db.WithContext(ctx).
		Unscoped().
		Where("started_at < ? AND status <> ?", cutoff, "running").
		Delete(&model.CronJobLog{})
	if res.Error != nil {
		m.logJobError(jobName, fmt.Errorf("failed to cleanup job logs: %w", res.Error))
		return
	}

	m.logJobComplete(jobName, fmt.Sprintf("Deleted %d old job logs", res.RowsAffected))
}

// retentionDays reads the configured event retention window, falling back
// to the default when settings are unavailable
func (m *CronManager) retentionDays(ctx context.Context) int {
	if m.registry == nil {
		return defaultRetentionDays
	}

	values, err := m.registry.Values(ctx, settings.GroupGeneral)
	if err != nil {
		return defaultRetentionDays
	}

	switch v := values["event_retention_days"].(type) {
	case int:
		if v > 0 {
			return v
		}
	case float64:
		// values loaded from a stored JSON document decode as float64
		if v > 0 {
			return int(v)
		}
	}

	return defaultRetentionDays
}
