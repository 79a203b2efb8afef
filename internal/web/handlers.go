package web

import (
	"database/sql"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cedricdekimpe/MigraineTracker/internal/config"
	"github.com/cedricdekimpe/MigraineTracker/internal/errors"
	"github.com/cedricdekimpe/MigraineTracker/internal/logger"
	"github.com/cedricdekimpe/MigraineTracker/internal/ops"
	"github.com/cedricdekimpe/MigraineTracker/internal/tracker"
)

// Handlers contains HTTP route handlers for the API and stats page.
type Handlers struct {
	db       *sql.DB
	cfg      *config.Config
	log      *logger.Logger
	renderer *Renderer
}

// accountEmail returns the email the auth proxy put in the configured header.
func (h *Handlers) accountEmail(r *http.Request) string {
	return strings.TrimSpace(r.Header.Get(h.cfg.UserHeader))
}

// apiOwner resolves the request's account, writing the error response itself
// when it cannot. ok is false when the handler should stop.
func (h *Handlers) apiOwner(w http.ResponseWriter, r *http.Request) (ops.Owner, bool) {
	email := h.accountEmail(r)
	if email == "" {
		renderUnauthorized(w)
		return ops.Owner{}, false
	}
	owner, err := ops.ResolveOwner(r.Context(), h.db, email)
	if err != nil {
		h.renderer.renderAPIError(w, r, err)
		return ops.Owner{}, false
	}
	return owner, true
}

// HandleExport handles GET /api/v1/data/export.
func (h *Handlers) HandleExport(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.apiOwner(w, r)
	if !ok {
		return
	}

	snap, err := ops.Export(r.Context(), h.db, ops.ExportInput{Owner: owner})
	if err != nil {
		h.renderer.renderAPIError(w, r, err)
		return
	}

	renderResource(w, "export", tracker.NewID(), snap, map[string]any{
		"medications_count": len(snap.Medications),
		"migraines_count":   len(snap.Migraines),
	})
}

// HandleImport handles POST /api/v1/data/import. The body is a snapshot,
// bare or wrapped in the export envelope.
func (h *Handlers) HandleImport(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.apiOwner(w, r)
	if !ok {
		return
	}

	snap, err := tracker.DecodeSnapshot(r.Body, h.cfg.MaxImportBytes)
	if err != nil {
		h.renderer.renderAPIError(w, r, err)
		return
	}

	result, err := ops.Import(r.Context(), h.db, ops.ImportInput{Owner: owner, Snapshot: snap})
	if err != nil {
		h.log.Warn("snapshot import failed", "user", owner.Email, "error", err)
		h.renderer.renderAPIError(w, r, err)
		return
	}

	h.log.Info("snapshot imported", "user", owner.Email,
		"medications", result.MedicationsImported, "migraines", result.MigrainesImported)
	renderResource(w, "import_result", tracker.NewID(), result, map[string]any{
		"message": fmt.Sprintf("Successfully imported %d medications and %d migraines.",
			result.MedicationsImported, result.MigrainesImported),
	})
}

// HandleOverview handles GET /api/v1/stats.
func (h *Handlers) HandleOverview(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.apiOwner(w, r)
	if !ok {
		return
	}
	result, err := ops.Overview(r.Context(), h.db, owner)
	if err != nil {
		h.renderer.renderAPIError(w, r, err)
		return
	}
	renderResource(w, "stats", owner.UserID, result, map[string]any{
		"generated_at": time.Now().UTC().Format(time.RFC3339),
	})
}

// HandleMonthly handles GET /api/v1/stats/monthly?months=N.
func (h *Handlers) HandleMonthly(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.apiOwner(w, r)
	if !ok {
		return
	}
	months, err := parseIntParam(r, "months")
	if err != nil {
		h.renderer.renderAPIError(w, r, err)
		return
	}
	result, err := ops.Monthly(r.Context(), h.db, ops.MonthlyInput{Owner: owner, Months: months})
	if err != nil {
		h.renderer.renderAPIError(w, r, err)
		return
	}
	renderResource(w, "monthly_stats", owner.UserID+"-monthly", result, nil)
}

// HandleByWeekday handles GET /api/v1/stats/by_day_of_week.
func (h *Handlers) HandleByWeekday(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.apiOwner(w, r)
	if !ok {
		return
	}
	result, err := ops.ByWeekday(r.Context(), h.db, owner)
	if err != nil {
		h.renderer.renderAPIError(w, r, err)
		return
	}
	renderResource(w, "day_of_week_stats", owner.UserID+"-dow", result, nil)
}

// HandleByMedication handles GET /api/v1/stats/by_medication.
func (h *Handlers) HandleByMedication(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.apiOwner(w, r)
	if !ok {
		return
	}
	result, err := ops.ByMedication(r.Context(), h.db, owner)
	if err != nil {
		h.renderer.renderAPIError(w, r, err)
		return
	}
	renderResource(w, "medication_stats", owner.UserID+"-meds", result, nil)
}

// HandleByNature handles GET /api/v1/stats/by_nature.
func (h *Handlers) HandleByNature(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.apiOwner(w, r)
	if !ok {
		return
	}
	result, err := ops.ByNature(r.Context(), h.db, owner)
	if err != nil {
		h.renderer.renderAPIError(w, r, err)
		return
	}
	renderResource(w, "nature_stats", owner.UserID+"-nature", result, nil)
}

// HandleByIntensity handles GET /api/v1/stats/by_intensity.
func (h *Handlers) HandleByIntensity(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.apiOwner(w, r)
	if !ok {
		return
	}
	result, err := ops.ByIntensity(r.Context(), h.db, owner)
	if err != nil {
		h.renderer.renderAPIError(w, r, err)
		return
	}
	renderResource(w, "intensity_stats", owner.UserID+"-intensity", result, nil)
}

// HandleYearly handles GET /api/v1/stats/yearly?year=YYYY.
func (h *Handlers) HandleYearly(w http.ResponseWriter, r *http.Request) {
	owner, ok := h.apiOwner(w, r)
	if !ok {
		return
	}
	year, err := parseIntParam(r, "year")
	if err != nil {
		h.renderer.renderAPIError(w, r, err)
		return
	}
	input := ops.YearlyInput{Owner: owner, Now: time.Now()}
	if year != nil {
		input.Year = *year
	}
	result, err := ops.Yearly(r.Context(), h.db, input)
	if err != nil {
		h.renderer.renderAPIError(w, r, err)
		return
	}
	renderResource(w, "yearly_stats", fmt.Sprintf("%s-%d", owner.UserID, result.Year), result, nil)
}

// HandleStatsPage handles GET /stats: headline counters plus the Markdown
// report rendered to HTML.
func (h *Handlers) HandleStatsPage(w http.ResponseWriter, r *http.Request) {
	email := h.accountEmail(r)
	if email == "" {
		h.renderer.renderPageStatus(w, r, http.StatusUnauthorized, "error", ErrorPageData{
			PageData:   PageData{Title: "Error 401", Version: h.renderer.version},
			StatusCode: http.StatusUnauthorized,
			Message:    "You need to sign in or sign up before continuing.",
		})
		return
	}

	months, err := parseIntParam(r, "months")
	if err != nil {
		h.renderer.renderErrorPage(w, r, err)
		return
	}

	owner, err := ops.ResolveOwner(r.Context(), h.db, email)
	if err != nil {
		h.renderer.renderErrorPage(w, r, err)
		return
	}

	overview, err := ops.Overview(r.Context(), h.db, owner)
	if err != nil {
		h.renderer.renderErrorPage(w, r, err)
		return
	}
	report, err := ops.Report(r.Context(), h.db, ops.ReportInput{Owner: owner, Months: months})
	if err != nil {
		h.renderer.renderErrorPage(w, r, err)
		return
	}

	h.renderer.renderPage(w, r, "stats", StatsPageData{
		PageData: PageData{
			Title:   "Statistics",
			Version: h.renderer.version,
		},
		Email:      owner.Email,
		Months:     ops.ClampMonths(months),
		Overview:   overview,
		ReportHTML: h.renderer.renderMarkdown(report),
	})
}

// parseIntParam reads an optional integer query parameter. An absent or
// empty parameter is nil, so callers can tell it apart from an explicit 0.
func parseIntParam(r *http.Request, name string) (*int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("%s must be an integer", name))
	}
	return &n, nil
}
