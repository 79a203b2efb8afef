package ops

import (
	"context"
	"database/sql"
	"math"
	"sort"
	"time"

	"github.com/cedricdekimpe/MigraineTracker/internal/db"
	"github.com/cedricdekimpe/MigraineTracker/internal/tracker"
)

// Every aggregate below is computed from a single SQL statement and then
// zero-filled from a closed key space, so each output has a fixed shape.

// OverviewOutput holds the headline counters.
type OverviewOutput struct {
	TotalMigraines    int     `json:"total_migraines"`
	WithMedication    int     `json:"with_medication"`
	WithoutMedication int     `json:"without_medication"`
	AverageIntensity  float64 `json:"average_intensity"`
	OnPeriodCount     int     `json:"on_period_count"`
}

// Overview returns the owner's headline counters. AverageIntensity covers
// migraines with an intensity only and is 0 when there are none.
func Overview(ctx context.Context, database *sql.DB, owner Owner) (*OverviewOutput, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}

	t, err := db.CountTotals(ctx, database, owner.UserID)
	if err != nil {
		return nil, err
	}

	return &OverviewOutput{
		TotalMigraines:    t.Total,
		WithMedication:    t.WithMedication,
		WithoutMedication: t.WithoutMedication,
		AverageIntensity:  averageOrZero(t.AverageIntensity),
		OnPeriodCount:     t.OnPeriod,
	}, nil
}

// MonthlyInput contains parameters for the Monthly operation.
type MonthlyInput struct {
	Owner  Owner
	Months *int      // nil means DefaultMonthlyWindow; clamped to [1, 24]
	Now    time.Time // zero means time.Now()
}

// MonthBucket is one month of the monthly distribution.
type MonthBucket struct {
	Month     string `json:"month"`      // YYYY-MM
	MonthName string `json:"month_name"` // January 2006
	Count     int    `json:"count"`
}

// MonthlyOutput is the monthly distribution, oldest month first.
type MonthlyOutput struct {
	PeriodStart string        `json:"period_start"`
	PeriodEnd   string        `json:"period_end"`
	Months      []MonthBucket `json:"months"`
}

// Monthly counts migraines for the last N calendar months ending at Now's
// month. Every month in the window appears, including empty ones.
func Monthly(ctx context.Context, database *sql.DB, input MonthlyInput) (*MonthlyOutput, error) {
	if err := validateOwner(input.Owner); err != nil {
		return nil, err
	}

	n := ClampMonths(input.Months)
	now := input.Now
	if now.IsZero() {
		now = time.Now()
	}

	current := tracker.MonthStart(now)
	start := current.AddDate(0, -(n - 1), 0)
	end := current.AddDate(0, 1, -1)

	counts, err := db.CountByMonth(ctx, database, input.Owner.UserID, tracker.FormatDate(start), tracker.FormatDate(end))
	if err != nil {
		return nil, err
	}

	months := make([]MonthBucket, 0, n)
	for i := 0; i < n; i++ {
		month := start.AddDate(0, i, 0)
		key := month.Format("2006-01")
		months = append(months, MonthBucket{
			Month:     key,
			MonthName: month.Format("January 2006"),
			Count:     counts[key],
		})
	}

	return &MonthlyOutput{
		PeriodStart: tracker.FormatDate(start),
		PeriodEnd:   tracker.FormatDate(end),
		Months:      months,
	}, nil
}

// DayBucket is one weekday slot.
type DayBucket struct {
	Day       string `json:"day"`
	DayNumber int    `json:"day_number"`
	Count     int    `json:"count"`
}

// WeekdayOutput is the weekday distribution, Sunday (0) to Saturday (6).
type WeekdayOutput struct {
	Days  []DayBucket `json:"days"`
	Total int         `json:"total"`
}

// ByWeekday counts migraines per weekday. All seven slots are always present.
func ByWeekday(ctx context.Context, database *sql.DB, owner Owner) (*WeekdayOutput, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}

	counts, err := db.CountByWeekday(ctx, database, owner.UserID)
	if err != nil {
		return nil, err
	}

	out := &WeekdayOutput{Days: make([]DayBucket, 0, 7)}
	for slot := 0; slot < 7; slot++ {
		out.Days = append(out.Days, DayBucket{
			Day:       tracker.WeekdayName(slot),
			DayNumber: slot,
			Count:     counts[slot],
		})
		out.Total += counts[slot]
	}
	return out, nil
}

// MedicationBucket is one medication's share of migraines.
type MedicationBucket struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// MedicationStatsOutput is the by-medication distribution.
type MedicationStatsOutput struct {
	Medications []MedicationBucket `json:"medications"`
	Total       int                `json:"total"`
}

// ByMedication counts migraines per medication, most used first. Ties keep
// name order, and the "None" bucket (present only when non-empty) sorts
// after named medications with the same count.
func ByMedication(ctx context.Context, database *sql.DB, owner Owner) (*MedicationStatsOutput, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}

	groups, err := db.CountByMedication(ctx, database, owner.UserID)
	if err != nil {
		return nil, err
	}

	out := &MedicationStatsOutput{Medications: []MedicationBucket{}}
	none := 0
	for _, g := range groups {
		out.Total += g.Count
		if g.Name == nil {
			none += g.Count
			continue
		}
		out.Medications = append(out.Medications, MedicationBucket{Name: *g.Name, Count: g.Count})
	}
	if none > 0 {
		out.Medications = append(out.Medications, MedicationBucket{Name: NoMedicationBucket, Count: none})
	}

	sort.SliceStable(out.Medications, func(i, j int) bool {
		return out.Medications[i].Count > out.Medications[j].Count
	})
	return out, nil
}

// NatureBucket is one nature value's share of migraines.
type NatureBucket struct {
	Nature string `json:"nature"`
	Label  string `json:"label"`
	Count  int    `json:"count"`
}

// NatureOutput is the by-nature distribution in declaration order.
type NatureOutput struct {
	Natures []NatureBucket `json:"natures"`
	Total   int            `json:"total"`
}

// ByNature counts migraines per nature. Every declared nature is present.
func ByNature(ctx context.Context, database *sql.DB, owner Owner) (*NatureOutput, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}

	counts, err := db.CountByNature(ctx, database, owner.UserID)
	if err != nil {
		return nil, err
	}

	out := &NatureOutput{Natures: make([]NatureBucket, 0, len(tracker.Natures()))}
	for _, n := range tracker.Natures() {
		out.Natures = append(out.Natures, NatureBucket{
			Nature: string(n),
			Label:  n.Label(),
			Count:  counts[n],
		})
	}
	// Total counts every migraine, including any stored before a nature was retired
	for _, c := range counts {
		out.Total += c
	}
	return out, nil
}

// IntensityBucket is one intensity level's share of migraines.
type IntensityBucket struct {
	Intensity int `json:"intensity"`
	Count     int `json:"count"`
}

// IntensityOutput is the by-intensity distribution, 0 to 10.
type IntensityOutput struct {
	Intensities []IntensityBucket `json:"intensities"`
	Total       int               `json:"total"`
	Average     float64           `json:"average"`
}

// ByIntensity counts migraines per intensity level. Every level is present;
// Total includes migraines without an intensity, Average excludes them.
func ByIntensity(ctx context.Context, database *sql.DB, owner Owner) (*IntensityOutput, error) {
	if err := validateOwner(owner); err != nil {
		return nil, err
	}

	levels, unrated, err := db.CountByIntensity(ctx, database, owner.UserID)
	if err != nil {
		return nil, err
	}

	out := &IntensityOutput{Intensities: make([]IntensityBucket, 0, tracker.MaxIntensity+1)}
	rated, sum := 0, 0
	for _, level := range tracker.IntensityLevels() {
		out.Intensities = append(out.Intensities, IntensityBucket{Intensity: level, Count: levels[level]})
	}
	for level, c := range levels {
		rated += c
		sum += level * c
	}
	out.Total = rated + unrated
	if rated > 0 {
		out.Average = roundTenth(float64(sum) / float64(rated))
	}
	return out, nil
}

// YearlyInput contains parameters for the Yearly operation.
type YearlyInput struct {
	Owner Owner
	Year  int       // 0 means Now's year
	Now   time.Time // zero means time.Now()
}

// YearMonthBucket is one month of a yearly view.
type YearMonthBucket struct {
	Month       string   `json:"month"`      // YYYY-MM
	MonthName   string   `json:"month_name"` // January
	Count       int      `json:"count"`
	MigraineIDs []string `json:"migraine_ids"`
}

// YearlyOutput is one calendar year split into twelve months.
type YearlyOutput struct {
	Year       int               `json:"year"`
	TotalCount int               `json:"total_count"`
	Months     []YearMonthBucket `json:"months"`
}

// Yearly lists the owner's migraine ids per month of a calendar year.
func Yearly(ctx context.Context, database *sql.DB, input YearlyInput) (*YearlyOutput, error) {
	if err := validateOwner(input.Owner); err != nil {
		return nil, err
	}

	year := input.Year
	if year == 0 {
		now := input.Now
		if now.IsZero() {
			now = time.Now()
		}
		year = now.Year()
	}

	entries, err := db.ListMonthEntries(ctx, database, input.Owner.UserID, year)
	if err != nil {
		return nil, err
	}

	out := &YearlyOutput{Year: year, TotalCount: len(entries), Months: make([]YearMonthBucket, 12)}
	for i := range out.Months {
		month := time.Date(year, time.Month(i+1), 1, 0, 0, 0, 0, time.UTC)
		out.Months[i] = YearMonthBucket{
			Month:       month.Format("2006-01"),
			MonthName:   month.Format("January"),
			MigraineIDs: []string{},
		}
	}
	for _, e := range entries {
		b := &out.Months[e.Month-1]
		b.Count++
		b.MigraineIDs = append(b.MigraineIDs, e.ID)
	}
	return out, nil
}

func averageOrZero(avg sql.NullFloat64) float64 {
	if !avg.Valid {
		return 0
	}
	return roundTenth(avg.Float64)
}

func roundTenth(f float64) float64 {
	return math.Round(f*10) / 10
}
