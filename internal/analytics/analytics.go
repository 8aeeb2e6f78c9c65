// Package analytics computes summary statistics over the event log: how
// long steps take, and how often gates pass. Everything is derived from
// the transitions and gate_runs tables; nothing here writes.
package analytics

import (
	"database/sql"
	"fmt"
	"math"
	"sort"
	"time"
)

// DB is the interface for database queries used by analytics.
type DB interface {
	Conn() *sql.DB
}

// StepDuration holds duration stats for one catalogue step.
type StepDuration struct {
	Step  string  `json:"step"`
	Count int     `json:"count"`
	Avg   float64 `json:"avg_minutes"`
	P50   float64 `json:"p50_minutes"`
	P95   float64 `json:"p95_minutes"`
}

// timestamp formats to try when parsing timestamps from the database
var timestampFormats = []string{
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05.000",
}

func parseTimestamp(s string) (time.Time, error) {
	for _, f := range timestampFormats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format: %q", s)
}

// QueryStepDurations returns average and percentile durations per step.
// Each terminal transition (completed, needs_review, blocked) is paired
// with the most recent prior step_started for the same project and step.
func QueryStepDurations(database DB, since string) ([]StepDuration, error) {
	query := `
		SELECT t1.step, t1.timestamp as end_ts,
			(SELECT MAX(t2.timestamp) FROM transitions t2
			 WHERE t2.project = t1.project
			 AND t2.step = t1.step
			 AND t2.action = 'step_started'
			 AND t2.id < t1.id) as start_ts
		FROM transitions t1
		WHERE t1.action IN ('completed', 'needs_review', 'blocked')`

	args := []interface{}{}
	if since != "" {
		query += ` AND t1.timestamp >= ?`
		args = append(args, since)
	}

	rows, err := database.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query step durations: %w", err)
	}
	defer rows.Close()

	stepDurations := make(map[string][]float64)
	for rows.Next() {
		var step, endTS string
		var startTS sql.NullString
		if err := rows.Scan(&step, &endTS, &startTS); err != nil {
			return nil, fmt.Errorf("scan step duration: %w", err)
		}
		if !startTS.Valid {
			continue
		}
		start, err := parseTimestamp(startTS.String)
		if err != nil {
			continue
		}
		end, err := parseTimestamp(endTS)
		if err != nil {
			continue
		}
		minutes := end.Sub(start).Minutes()
		if minutes >= 0 {
			stepDurations[step] = append(stepDurations[step], minutes)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var results []StepDuration
	for step, durations := range stepDurations {
		sort.Float64s(durations)
		results = append(results, StepDuration{
			Step:  step,
			Count: len(durations),
			Avg:   avg(durations),
			P50:   percentile(durations, 50),
			P95:   percentile(durations, 95),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Step < results[j].Step
	})
	return results, nil
}

// GatePassRate holds pass stats for one gate.
type GatePassRate struct {
	Gate         string  `json:"gate"`
	Runs         int     `json:"runs"`
	PassPct      float64 `json:"pass_pct"`
	FirstPassPct float64 `json:"first_pass_pct"`
	AvgBlockers  float64 `json:"avg_blockers"`
}

// QueryGatePassRates returns how often each gate passes, overall and on
// the first run per project.
func QueryGatePassRates(database DB, since string) ([]GatePassRate, error) {
	query := `
		SELECT gate,
			COUNT(*) as runs,
			SUM(CASE WHEN passed = 1 THEN 1 ELSE 0 END) as passes,
			AVG(blockers) as avg_blockers
		FROM gate_runs`

	args := []interface{}{}
	if since != "" {
		query += ` WHERE timestamp >= ?`
		args = append(args, since)
	}
	query += ` GROUP BY gate`

	rows, err := database.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query gate pass rates: %w", err)
	}
	defer rows.Close()

	type gateInfo struct {
		runs, passes int
		avgBlockers  float64
	}
	gateData := make(map[string]*gateInfo)
	for rows.Next() {
		var gate string
		var info gateInfo
		if err := rows.Scan(&gate, &info.runs, &info.passes, &info.avgBlockers); err != nil {
			return nil, fmt.Errorf("scan gate pass rate: %w", err)
		}
		gateData[gate] = &info
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	// First runs: the lowest-id row per project and gate.
	fpQuery := `
		SELECT gate,
			COUNT(*) as firsts,
			SUM(CASE WHEN passed = 1 THEN 1 ELSE 0 END) as first_passes
		FROM gate_runs
		WHERE id IN (
			SELECT MIN(id) FROM gate_runs GROUP BY project, gate
		)`
	fpArgs := []interface{}{}
	if since != "" {
		fpQuery += ` AND timestamp >= ?`
		fpArgs = append(fpArgs, since)
	}
	fpQuery += ` GROUP BY gate`

	fpRows, err := database.Conn().Query(fpQuery, fpArgs...)
	if err != nil {
		return nil, fmt.Errorf("query first-run pass rates: %w", err)
	}
	defer fpRows.Close()

	type firstInfo struct{ firsts, passes int }
	firstData := make(map[string]firstInfo)
	for fpRows.Next() {
		var gate string
		var fi firstInfo
		if err := fpRows.Scan(&gate, &fi.firsts, &fi.passes); err != nil {
			return nil, fmt.Errorf("scan first-run pass rate: %w", err)
		}
		firstData[gate] = fi
	}
	if err := fpRows.Err(); err != nil {
		return nil, err
	}

	var results []GatePassRate
	for gate, info := range gateData {
		fi := firstData[gate]
		results = append(results, GatePassRate{
			Gate:         gate,
			Runs:         info.runs,
			PassPct:      pct(info.passes, info.runs),
			FirstPassPct: pct(fi.passes, fi.firsts),
			AvgBlockers:  round1(info.avgBlockers),
		})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Gate < results[j].Gate
	})
	return results, nil
}

// ProjectActivity summarizes one project's footprint in the event log.
type ProjectActivity struct {
	Project     string `json:"project"`
	Transitions int    `json:"transitions"`
	Overrides   int    `json:"overrides"`
	LastSeen    string `json:"last_seen"`
}

// QueryProjectActivity returns per-project transition counts, most recent
// first.
func QueryProjectActivity(database DB, since string) ([]ProjectActivity, error) {
	query := `
		SELECT project,
			COUNT(*) as transitions,
			SUM(CASE WHEN action = 'blocker_overridden' THEN 1 ELSE 0 END) as overrides,
			MAX(timestamp) as last_seen
		FROM transitions`

	args := []interface{}{}
	if since != "" {
		query += ` WHERE timestamp >= ?`
		args = append(args, since)
	}
	query += ` GROUP BY project ORDER BY last_seen DESC`

	rows, err := database.Conn().Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query project activity: %w", err)
	}
	defer rows.Close()

	var results []ProjectActivity
	for rows.Next() {
		var pa ProjectActivity
		if err := rows.Scan(&pa.Project, &pa.Transitions, &pa.Overrides, &pa.LastSeen); err != nil {
			return nil, fmt.Errorf("scan project activity: %w", err)
		}
		results = append(results, pa)
	}
	return results, rows.Err()
}

func avg(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return round1(sum / float64(len(vals)))
}

// percentile expects vals sorted ascending.
func percentile(vals []float64, p float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(vals)))) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(vals) {
		idx = len(vals) - 1
	}
	return round1(vals[idx])
}

func pct(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return round1(float64(n) / float64(total) * 100)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
