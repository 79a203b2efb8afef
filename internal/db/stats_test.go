package db

import (
	"context"
	"testing"

	"github.com/cedricdekimpe/MigraineTracker/internal/tracker"
)

func TestCountTotals(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	userID := seedUser(t, db, "a@example.com")

	totals, err := CountTotals(ctx, db, userID)
	if err != nil {
		t.Fatalf("CountTotals failed: %v", err)
	}
	if totals.Total != 0 || totals.AverageIntensity.Valid {
		t.Errorf("empty totals = %+v", totals)
	}

	med := seedMedication(t, db, userID, "Aspirin")
	seedMigraine(t, db, userID, "2025-01-01", tracker.NatureMigraine, intPtr(4), &med.ID)
	seedMigraine(t, db, userID, "2025-01-02", tracker.NatureMigraine, intPtr(7), nil)
	seedMigraine(t, db, userID, "2025-01-03", tracker.NatureMigraine, nil, nil)
	if _, err := db.Exec(`UPDATE migraines SET on_period = 1 WHERE occurred_on = '2025-01-03'`); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	totals, err = CountTotals(ctx, db, userID)
	if err != nil {
		t.Fatalf("CountTotals failed: %v", err)
	}
	if totals.Total != 3 {
		t.Errorf("Total = %d, want 3", totals.Total)
	}
	if totals.WithMedication != 1 || totals.WithoutMedication != 2 {
		t.Errorf("with/without = %d/%d, want 1/2", totals.WithMedication, totals.WithoutMedication)
	}
	if totals.OnPeriod != 1 {
		t.Errorf("OnPeriod = %d, want 1", totals.OnPeriod)
	}
	if !totals.AverageIntensity.Valid || totals.AverageIntensity.Float64 != 5.5 {
		t.Errorf("AverageIntensity = %+v, want 5.5", totals.AverageIntensity)
	}
}

func TestCountByMonth(t *testing.T) {
	db := openTestDB(t)
	userID := seedUser(t, db, "a@example.com")

	seedMigraine(t, db, userID, "2024-12-31", tracker.NatureMigraine, nil, nil)
	seedMigraine(t, db, userID, "2025-01-01", tracker.NatureMigraine, nil, nil)
	seedMigraine(t, db, userID, "2025-01-20", tracker.NatureMigraine, nil, nil)
	seedMigraine(t, db, userID, "2025-03-31", tracker.NatureMigraine, nil, nil)
	seedMigraine(t, db, userID, "2025-04-01", tracker.NatureMigraine, nil, nil)

	counts, err := CountByMonth(context.Background(), db, userID, "2025-01-01", "2025-03-31")
	if err != nil {
		t.Fatalf("CountByMonth failed: %v", err)
	}
	if counts["2025-01"] != 2 {
		t.Errorf("2025-01 = %d, want 2", counts["2025-01"])
	}
	if counts["2025-03"] != 1 {
		t.Errorf("2025-03 = %d, want 1", counts["2025-03"])
	}
	if _, ok := counts["2025-02"]; ok {
		t.Error("empty month should be absent")
	}
	if len(counts) != 2 {
		t.Errorf("len = %d, want 2 (out-of-range months excluded)", len(counts))
	}
}

func TestCountByWeekday(t *testing.T) {
	db := openTestDB(t)
	userID := seedUser(t, db, "a@example.com")

	// 2025-01-05 is a Sunday, 2025-01-11 a Saturday
	seedMigraine(t, db, userID, "2025-01-05", tracker.NatureMigraine, nil, nil)
	seedMigraine(t, db, userID, "2025-01-12", tracker.NatureMigraine, nil, nil)
	seedMigraine(t, db, userID, "2025-01-11", tracker.NatureMigraine, nil, nil)

	counts, err := CountByWeekday(context.Background(), db, userID)
	if err != nil {
		t.Fatalf("CountByWeekday failed: %v", err)
	}
	if counts[0] != 2 {
		t.Errorf("sunday = %d, want 2", counts[0])
	}
	if counts[6] != 1 {
		t.Errorf("saturday = %d, want 1", counts[6])
	}
}

func TestCountByMedication(t *testing.T) {
	db := openTestDB(t)
	userID := seedUser(t, db, "a@example.com")

	b := seedMedication(t, db, userID, "B")
	a := seedMedication(t, db, userID, "A")
	seedMigraine(t, db, userID, "2025-01-01", tracker.NatureMigraine, nil, &b.ID)
	seedMigraine(t, db, userID, "2025-01-02", tracker.NatureMigraine, nil, &a.ID)
	seedMigraine(t, db, userID, "2025-01-03", tracker.NatureMigraine, nil, nil)
	seedMigraine(t, db, userID, "2025-01-04", tracker.NatureMigraine, nil, &b.ID)

	groups, err := CountByMedication(context.Background(), db, userID)
	if err != nil {
		t.Fatalf("CountByMedication failed: %v", err)
	}
	if len(groups) != 3 {
		t.Fatalf("len = %d, want 3", len(groups))
	}
	if groups[0].Name == nil || *groups[0].Name != "A" || groups[0].Count != 1 {
		t.Errorf("groups[0] = %+v, want A:1", groups[0])
	}
	if groups[1].Name == nil || *groups[1].Name != "B" || groups[1].Count != 2 {
		t.Errorf("groups[1] = %+v, want B:2", groups[1])
	}
	if groups[2].Name != nil || groups[2].Count != 1 {
		t.Errorf("groups[2] = %+v, want nil:1", groups[2])
	}
}

func TestCountByNatureAndIntensity(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	userID := seedUser(t, db, "a@example.com")

	seedMigraine(t, db, userID, "2025-01-01", tracker.NatureStrong, intPtr(8), nil)
	seedMigraine(t, db, userID, "2025-01-02", tracker.NatureStrong, intPtr(8), nil)
	seedMigraine(t, db, userID, "2025-01-03", tracker.NatureWeak, nil, nil)

	natures, err := CountByNature(ctx, db, userID)
	if err != nil {
		t.Fatalf("CountByNature failed: %v", err)
	}
	if natures[tracker.NatureStrong] != 2 || natures[tracker.NatureWeak] != 1 {
		t.Errorf("natures = %v", natures)
	}

	levels, unrated, err := CountByIntensity(ctx, db, userID)
	if err != nil {
		t.Fatalf("CountByIntensity failed: %v", err)
	}
	if levels[8] != 2 {
		t.Errorf("level 8 = %d, want 2", levels[8])
	}
	if unrated != 1 {
		t.Errorf("unrated = %d, want 1", unrated)
	}
}

func TestListMonthEntries(t *testing.T) {
	db := openTestDB(t)
	userID := seedUser(t, db, "a@example.com")

	seedMigraine(t, db, userID, "2024-12-31", tracker.NatureMigraine, nil, nil)
	feb := seedMigraine(t, db, userID, "2025-02-14", tracker.NatureMigraine, nil, nil)
	jan := seedMigraine(t, db, userID, "2025-01-01", tracker.NatureMigraine, nil, nil)
	seedMigraine(t, db, userID, "2026-01-01", tracker.NatureMigraine, nil, nil)

	entries, err := ListMonthEntries(context.Background(), db, userID, 2025)
	if err != nil {
		t.Fatalf("ListMonthEntries failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("len = %d, want 2", len(entries))
	}
	if entries[0].ID != jan.ID || entries[0].Month != 1 {
		t.Errorf("entries[0] = %+v, want jan", entries[0])
	}
	if entries[1].ID != feb.ID || entries[1].Month != 2 {
		t.Errorf("entries[1] = %+v, want feb", entries[1])
	}
}
