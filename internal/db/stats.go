package db

import (
	"context"
	"database/sql"
	"time"

	"github.com/cedricdekimpe/MigraineTracker/internal/tracker"
)

// Totals holds the headline counters for a user's migraines.
type Totals struct {
	Total             int
	WithMedication    int
	WithoutMedication int
	OnPeriod          int
	// AverageIntensity is NULL when no migraine has an intensity.
	AverageIntensity sql.NullFloat64
}

// NameCount is one group of a by-medication count. Name is nil for
// migraines without a medication.
type NameCount struct {
	Name  *string
	Count int
}

// MonthEntry is the minimal projection used by the yearly view.
type MonthEntry struct {
	ID    string
	Month int
}

// CountTotals computes the headline counters in one statement.
func CountTotals(ctx context.Context, q Querier, userID string) (*Totals, error) {
	var t Totals
	err := q.QueryRowContext(ctx, `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN medication_id IS NOT NULL THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN medication_id IS NULL THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(on_period), 0),
			AVG(intensity)
		FROM migraines
		WHERE user_id = ?
	`, userID).Scan(&t.Total, &t.WithMedication, &t.WithoutMedication, &t.OnPeriod, &t.AverageIntensity)
	if err != nil {
		return nil, storeError(err)
	}
	return &t, nil
}

// CountByMonth counts migraines per "YYYY-MM" between from and to inclusive.
// Months with no migraines are absent from the map.
func CountByMonth(ctx context.Context, q Querier, userID, from, to string) (map[string]int, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT strftime('%Y-%m', occurred_on) AS month, COUNT(*)
		FROM migraines
		WHERE user_id = ? AND occurred_on >= ? AND occurred_on <= ?
		GROUP BY month
	`, userID, from, to)
	if err != nil {
		return nil, storeError(err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var month string
		var n int
		if err := rows.Scan(&month, &n); err != nil {
			return nil, storeError(err)
		}
		counts[month] = n
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err)
	}
	return counts, nil
}

// CountByWeekday counts migraines per weekday slot (Sunday=0).
func CountByWeekday(ctx context.Context, q Querier, userID string) (map[int]int, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT CAST(strftime('%w', occurred_on) AS INTEGER) AS slot, COUNT(*)
		FROM migraines
		WHERE user_id = ?
		GROUP BY slot
	`, userID)
	if err != nil {
		return nil, storeError(err)
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var slot, n int
		if err := rows.Scan(&slot, &n); err != nil {
			return nil, storeError(err)
		}
		counts[slot] = n
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err)
	}
	return counts, nil
}

// CountByMedication counts migraines per medication name, ascending by name,
// with the no-medication group (nil Name) last.
func CountByMedication(ctx context.Context, q Querier, userID string) ([]NameCount, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT med.name, COUNT(*)
		FROM migraines mg
		LEFT JOIN medications med ON med.id = mg.medication_id
		WHERE mg.user_id = ?
		GROUP BY med.name
		ORDER BY med.name IS NULL, med.name ASC
	`, userID)
	if err != nil {
		return nil, storeError(err)
	}
	defer rows.Close()

	groups := []NameCount{}
	for rows.Next() {
		var name sql.NullString
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, storeError(err)
		}
		groups = append(groups, NameCount{Name: fromNullString(name), Count: n})
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err)
	}
	return groups, nil
}

// CountByNature counts migraines per stored nature value.
func CountByNature(ctx context.Context, q Querier, userID string) (map[tracker.Nature]int, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT nature, COUNT(*)
		FROM migraines
		WHERE user_id = ?
		GROUP BY nature
	`, userID)
	if err != nil {
		return nil, storeError(err)
	}
	defer rows.Close()

	counts := make(map[tracker.Nature]int)
	for rows.Next() {
		var nature string
		var n int
		if err := rows.Scan(&nature, &n); err != nil {
			return nil, storeError(err)
		}
		counts[tracker.Nature(nature)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err)
	}
	return counts, nil
}

// CountByIntensity counts migraines per intensity level. Migraines without an
// intensity are returned separately as unrated.
func CountByIntensity(ctx context.Context, q Querier, userID string) (levels map[int]int, unrated int, err error) {
	rows, err := q.QueryContext(ctx, `
		SELECT intensity, COUNT(*)
		FROM migraines
		WHERE user_id = ?
		GROUP BY intensity
	`, userID)
	if err != nil {
		return nil, 0, storeError(err)
	}
	defer rows.Close()

	levels = make(map[int]int)
	for rows.Next() {
		var level sql.NullInt64
		var n int
		if err := rows.Scan(&level, &n); err != nil {
			return nil, 0, storeError(err)
		}
		if !level.Valid {
			unrated += n
			continue
		}
		levels[int(level.Int64)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, 0, storeError(err)
	}
	return levels, unrated, nil
}

// ListMonthEntries returns (id, month) for each migraine in year,
// oldest first.
func ListMonthEntries(ctx context.Context, q Querier, userID string, year int) ([]MonthEntry, error) {
	from := tracker.FormatDate(yearStart(year))
	to := tracker.FormatDate(yearStart(year + 1))
	rows, err := q.QueryContext(ctx, `
		SELECT id, CAST(strftime('%m', occurred_on) AS INTEGER)
		FROM migraines
		WHERE user_id = ? AND occurred_on >= ? AND occurred_on < ?
		ORDER BY occurred_on ASC, created_at ASC, id ASC
	`, userID, from, to)
	if err != nil {
		return nil, storeError(err)
	}
	defer rows.Close()

	entries := []MonthEntry{}
	for rows.Next() {
		var e MonthEntry
		if err := rows.Scan(&e.ID, &e.Month); err != nil {
			return nil, storeError(err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, storeError(err)
	}
	return entries, nil
}

func yearStart(year int) time.Time {
	return time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
}
