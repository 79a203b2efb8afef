package ops

import (
	"context"
	"testing"
	"time"

	"github.com/cedricdekimpe/MigraineTracker/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOverview(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	owner := newOwner(t, database, "a@example.com")

	out, err := Overview(ctx, database, owner)
	require.NoError(t, err)
	assert.Equal(t, OverviewOutput{}, *out, "empty history is all zeros, never null")

	logMigraine(t, database, owner, "2025-01-01", "M", intPtr(3), "Aspirin")
	logMigraine(t, database, owner, "2025-01-02", "M", intPtr(4), "")
	logMigraine(t, database, owner, "2025-01-03", "M", intPtr(4), "")
	logMigraine(t, database, owner, "2025-01-04", "M", nil, "")
	_, err = LogMigraine(ctx, database, LogMigraineInput{Owner: owner, OccurredOn: "2025-01-05", Nature: "H", OnPeriod: true})
	require.NoError(t, err)

	out, err = Overview(ctx, database, owner)
	require.NoError(t, err)
	assert.Equal(t, 5, out.TotalMigraines)
	assert.Equal(t, 1, out.WithMedication)
	assert.Equal(t, 4, out.WithoutMedication)
	assert.Equal(t, 1, out.OnPeriodCount)
	assert.Equal(t, 3.7, out.AverageIntensity, "11/3 rounded to one decimal")
}

func TestMonthly_ZeroFill(t *testing.T) {
	database := newTestDB(t)
	owner := newOwner(t, database, "a@example.com")
	now := time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC)

	out, err := Monthly(context.Background(), database, MonthlyInput{Owner: owner, Months: intPtr(6), Now: now})
	require.NoError(t, err)

	require.Len(t, out.Months, 6)
	want := []string{"2024-10", "2024-11", "2024-12", "2025-01", "2025-02", "2025-03"}
	for i, m := range out.Months {
		assert.Equal(t, want[i], m.Month)
		assert.Zero(t, m.Count)
	}
	assert.Equal(t, "October 2024", out.Months[0].MonthName)
	assert.Equal(t, "2024-10-01", out.PeriodStart)
	assert.Equal(t, "2025-03-31", out.PeriodEnd)
}

func TestMonthly_CountsAndWindow(t *testing.T) {
	database := newTestDB(t)
	owner := newOwner(t, database, "a@example.com")
	now := time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)

	logMigraine(t, database, owner, "2024-12-31", "M", nil, "") // outside a 3-month window
	logMigraine(t, database, owner, "2025-01-01", "M", nil, "")
	logMigraine(t, database, owner, "2025-01-31", "M", nil, "")
	logMigraine(t, database, owner, "2025-03-31", "M", nil, "")
	logMigraine(t, database, owner, "2025-04-01", "M", nil, "") // future

	out, err := Monthly(context.Background(), database, MonthlyInput{Owner: owner, Months: intPtr(3), Now: now})
	require.NoError(t, err)
	require.Len(t, out.Months, 3)
	assert.Equal(t, 2, out.Months[0].Count)
	assert.Equal(t, 0, out.Months[1].Count)
	assert.Equal(t, 1, out.Months[2].Count)
}

func TestMonthly_Clamp(t *testing.T) {
	database := newTestDB(t)
	owner := newOwner(t, database, "a@example.com")
	now := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		months *int
		want   int
	}{
		{"unset", nil, 12},
		{"zero", intPtr(0), 1},
		{"negative", intPtr(-1), 1},
		{"too many", intPtr(99), 24},
	}
	for _, tc := range tests {
		out, err := Monthly(context.Background(), database, MonthlyInput{Owner: owner, Months: tc.months, Now: now})
		require.NoError(t, err)
		assert.Len(t, out.Months, tc.want, tc.name)
		assert.Equal(t, "2025-01", out.Months[len(out.Months)-1].Month, tc.name)
	}
}

func TestByWeekday(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	owner := newOwner(t, database, "a@example.com")

	out, err := ByWeekday(ctx, database, owner)
	require.NoError(t, err)
	require.Len(t, out.Days, 7)
	for i, d := range out.Days {
		assert.Equal(t, i, d.DayNumber)
		assert.Zero(t, d.Count)
	}
	assert.Equal(t, "sunday", out.Days[0].Day)
	assert.Equal(t, "saturday", out.Days[6].Day)

	logMigraine(t, database, owner, "2025-01-06", "M", nil, "") // Monday
	logMigraine(t, database, owner, "2025-01-13", "M", nil, "") // Monday
	logMigraine(t, database, owner, "2025-01-10", "M", nil, "") // Friday

	out, err = ByWeekday(ctx, database, owner)
	require.NoError(t, err)
	require.Len(t, out.Days, 7)
	assert.Equal(t, 2, out.Days[1].Count)
	assert.Equal(t, 1, out.Days[5].Count)
	assert.Equal(t, 3, out.Total)
}

func TestByMedication_Ordering(t *testing.T) {
	database := newTestDB(t)
	owner := newOwner(t, database, "a@example.com")

	day := 1
	log := func(n int, med string) {
		for i := 0; i < n; i++ {
			date := time.Date(2025, time.January, day, 0, 0, 0, 0, time.UTC).Format("2006-01-02")
			logMigraine(t, database, owner, date, "M", nil, med)
			day++
		}
	}
	log(3, "A")
	log(5, "B")
	log(1, "")

	out, err := ByMedication(context.Background(), database, owner)
	require.NoError(t, err)
	require.Len(t, out.Medications, 3)
	assert.Equal(t, MedicationBucket{Name: "B", Count: 5}, out.Medications[0])
	assert.Equal(t, MedicationBucket{Name: "A", Count: 3}, out.Medications[1])
	assert.Equal(t, MedicationBucket{Name: "None", Count: 1}, out.Medications[2])
	assert.Equal(t, 9, out.Total)
}

func TestByMedication_TiesKeepNameOrderAndNoneOmitted(t *testing.T) {
	database := newTestDB(t)
	owner := newOwner(t, database, "a@example.com")

	logMigraine(t, database, owner, "2025-01-01", "M", nil, "Zomig")
	logMigraine(t, database, owner, "2025-01-02", "M", nil, "Aspirin")
	logMigraine(t, database, owner, "2025-01-03", "M", nil, "Ibuprofen")

	out, err := ByMedication(context.Background(), database, owner)
	require.NoError(t, err)
	require.Len(t, out.Medications, 3, "no None bucket without unmedicated migraines")
	assert.Equal(t, "Aspirin", out.Medications[0].Name)
	assert.Equal(t, "Ibuprofen", out.Medications[1].Name)
	assert.Equal(t, "Zomig", out.Medications[2].Name)
}

func TestByMedication_Empty(t *testing.T) {
	database := newTestDB(t)
	owner := newOwner(t, database, "a@example.com")

	out, err := ByMedication(context.Background(), database, owner)
	require.NoError(t, err)
	assert.NotNil(t, out.Medications)
	assert.Empty(t, out.Medications)
	assert.Zero(t, out.Total)
}

func TestByNature(t *testing.T) {
	database := newTestDB(t)
	owner := newOwner(t, database, "a@example.com")

	logMigraine(t, database, owner, "2025-01-01", "strong", nil, "")
	logMigraine(t, database, owner, "2025-01-02", "strong", nil, "")
	logMigraine(t, database, owner, "2025-01-03", "H", nil, "")

	out, err := ByNature(context.Background(), database, owner)
	require.NoError(t, err)
	require.Len(t, out.Natures, 4)

	assert.Equal(t, NatureBucket{Nature: "M", Label: "Migraine", Count: 0}, out.Natures[0])
	assert.Equal(t, NatureBucket{Nature: "H", Label: "Headache", Count: 1}, out.Natures[1])
	assert.Equal(t, NatureBucket{Nature: "strong", Label: "Strong", Count: 2}, out.Natures[2])
	assert.Equal(t, NatureBucket{Nature: "weak", Label: "Weak", Count: 0}, out.Natures[3])
	assert.Equal(t, 3, out.Total)
}

func TestByIntensity(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	owner := newOwner(t, database, "a@example.com")

	out, err := ByIntensity(ctx, database, owner)
	require.NoError(t, err)
	require.Len(t, out.Intensities, 11)
	assert.Zero(t, out.Average)

	logMigraine(t, database, owner, "2025-01-01", "M", intPtr(0), "")
	logMigraine(t, database, owner, "2025-01-02", "M", intPtr(10), "")
	logMigraine(t, database, owner, "2025-01-03", "M", intPtr(10), "")
	logMigraine(t, database, owner, "2025-01-04", "M", nil, "")

	out, err = ByIntensity(ctx, database, owner)
	require.NoError(t, err)
	require.Len(t, out.Intensities, 11)
	for i, b := range out.Intensities {
		assert.Equal(t, i, b.Intensity)
	}
	assert.Equal(t, 1, out.Intensities[0].Count)
	assert.Equal(t, 2, out.Intensities[10].Count)
	assert.Equal(t, 4, out.Total)
	assert.Equal(t, 6.7, out.Average)
}

func TestYearly(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	owner := newOwner(t, database, "a@example.com")

	jan := logMigraine(t, database, owner, "2025-01-10", "M", nil, "")
	logMigraine(t, database, owner, "2024-12-31", "M", nil, "")
	dec := logMigraine(t, database, owner, "2025-12-31", "M", nil, "")

	out, err := Yearly(ctx, database, YearlyInput{Owner: owner, Year: 2025})
	require.NoError(t, err)
	assert.Equal(t, 2025, out.Year)
	assert.Equal(t, 2, out.TotalCount)
	require.Len(t, out.Months, 12)
	assert.Equal(t, "2025-01", out.Months[0].Month)
	assert.Equal(t, "January", out.Months[0].MonthName)
	assert.Equal(t, []string{jan.ID}, out.Months[0].MigraineIDs)
	assert.Equal(t, []string{dec.ID}, out.Months[11].MigraineIDs)
	assert.Equal(t, []string{}, out.Months[5].MigraineIDs)

	// Year 0 falls back to Now's year
	out, err = Yearly(ctx, database, YearlyInput{Owner: owner, Now: time.Date(2024, time.June, 1, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	assert.Equal(t, 2024, out.Year)
	assert.Equal(t, 1, out.Months[11].Count)
}

func TestAggregates_RequireOwner(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	_, err := Overview(ctx, database, Owner{})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
	_, err = ByWeekday(ctx, database, Owner{})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
	_, err = Monthly(ctx, database, MonthlyInput{})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}
