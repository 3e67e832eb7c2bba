package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"weeklykeeper/internal/core"
	"weeklykeeper/internal/export"
	"weeklykeeper/internal/store"
)

// weekKeyParam validates that the URL parameter is a Monday date key.
func weekKeyParam(r *http.Request) (string, error) {
	key := chi.URLParam(r, "weekKey")
	t, err := core.ParseDateKey(key)
	if err != nil {
		return "", fmt.Errorf("invalid week key %q", key)
	}
	if core.WeekStartKey(t) != key {
		return "", fmt.Errorf("week key %q is not a Monday", key)
	}
	return key, nil
}

// dateKeyParam validates the date URL parameter and that it belongs to week.
func dateKeyParam(r *http.Request, weekKey string) (string, error) {
	key := chi.URLParam(r, "dateKey")
	if _, err := core.ParseDateKey(key); err != nil {
		return "", fmt.Errorf("invalid date key %q", key)
	}
	for _, d := range core.WeekDates(weekKey) {
		if d == key {
			return key, nil
		}
	}
	return "", fmt.Errorf("date %q is outside week %q", key, weekKey)
}

// --- full state ---

func (s *Server) handleGetData(w http.ResponseWriter, r *http.Request) {
	snapshot := s.store.Snapshot()
	if len(snapshot.Weeks) == 0 && s.store.Revision() == 0 {
		respondError(w, http.StatusNotFound, "no data recorded yet")
		return
	}

	data, err := store.Marshal(snapshot)
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to marshal state", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to marshal state")
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleReplaceData(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	state, err := store.Migrate(body)
	if err != nil {
		slog.WarnContext(r.Context(), "Rejected state import", "error", err)
		respondError(w, http.StatusUnprocessableEntity, "payload is not a valid state: "+err.Error())
		return
	}

	if err := s.store.ReplaceAll(state); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	slog.InfoContext(r.Context(), "Replaced full state", "weeks", len(state.Weeks))
	w.WriteHeader(http.StatusNoContent)
}

// handleImport restores a previously exported file. The only shape check
// beyond migration is that the payload carries a weeks collection at all,
// so an unrelated JSON document cannot silently wipe the state.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "failed to read body")
		return
	}

	var probe struct {
		Weeks json.RawMessage `json:"weeks"`
	}
	if err := json.Unmarshal(body, &probe); err != nil || probe.Weeks == nil {
		respondError(w, http.StatusUnprocessableEntity, "payload has no weeks collection")
		return
	}

	state, err := store.Migrate(body)
	if err != nil {
		slog.WarnContext(r.Context(), "Rejected import", "error", err)
		respondError(w, http.StatusUnprocessableEntity, "payload is not a valid state: "+err.Error())
		return
	}

	if err := s.store.ReplaceAll(state); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	slog.InfoContext(r.Context(), "Imported state", "weeks", len(state.Weeks))
	respondJSON(w, http.StatusOK, map[string]int{"weeks": len(state.Weeks)})
}

// --- settings ---

type settingsPayload struct {
	DailySubsidy float64        `json:"dailySubsidy"`
	HourlyRate   float64        `json:"hourlyRate"`
	ShiftMode    core.ShiftMode `json:"shiftMode"`
	ApplyToWeek  string         `json:"applyToWeek,omitempty"`
}

func (s *Server) handleGetSettings(w http.ResponseWriter, _ *http.Request) {
	snapshot := s.store.Snapshot()
	respondJSON(w, http.StatusOK, settingsPayload{
		DailySubsidy: snapshot.DailySubsidyDefault,
		HourlyRate:   snapshot.HourlyRateDefault,
		ShiftMode:    snapshot.ShiftDefault,
	})
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var p settingsPayload
	if err := decodeJSON(r, &p); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if p.ApplyToWeek != "" {
		if t, err := core.ParseDateKey(p.ApplyToWeek); err != nil || core.WeekStartKey(t) != p.ApplyToWeek {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid applyToWeek %q", p.ApplyToWeek))
			return
		}
	}
	if err := s.store.UpdateGlobalDefaults(p.DailySubsidy, p.HourlyRate, p.ShiftMode, p.ApplyToWeek); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- weeks ---

func (s *Server) handleListWeeks(w http.ResponseWriter, r *http.Request) {
	includeGhosts, _ := strconv.ParseBool(r.URL.Query().Get("includeGhosts"))
	respondJSON(w, http.StatusOK, s.store.ListWeeks(includeGhosts))
}

func (s *Server) handleCurrentWeek(w http.ResponseWriter, _ *http.Request) {
	week := s.store.GetOrCreateWeek(core.WeekStartKey(time.Now()))
	respondJSON(w, http.StatusOK, week)
}

func (s *Server) handleGetWeek(w http.ResponseWriter, r *http.Request) {
	weekKey, err := weekKeyParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, s.store.GetOrCreateWeek(weekKey))
}

func (s *Server) handleWeekSettings(w http.ResponseWriter, r *http.Request) {
	weekKey, err := weekKeyParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	var p settingsPayload
	if err := decodeJSON(r, &p); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.UpdateWeekSettings(weekKey, p.DailySubsidy, p.HourlyRate, p.ShiftMode); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- settlement ---

func (s *Server) handleSettlement(w http.ResponseWriter, r *http.Request) {
	weekKey, err := weekKeyParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	policy := core.DefaultPolicy
	if raw := r.URL.Query().Get("policy"); raw != "" {
		policy, err = core.ParsePolicy(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	cacheKey := fmt.Sprintf("%s|%s|%d", weekKey, policy, s.store.Revision())
	if settlement, ok := s.settlementCache.Get(cacheKey); ok {
		respondJSON(w, http.StatusOK, settlement)
		return
	}

	week := s.store.GetOrCreateWeek(weekKey)
	settlement := core.Settle(week, policy)
	s.settlementCache.Set(cacheKey, settlement)
	respondJSON(w, http.StatusOK, settlement)
}

// --- expenses ---

type expensePayload struct {
	Amount    float64       `json:"amount"`
	Category  core.Category `json:"category,omitempty"`
	Note      string        `json:"note,omitempty"`
	Timestamp int64         `json:"timestamp,omitempty"` // unix milliseconds
}

func (s *Server) handleAddExpense(w http.ResponseWriter, r *http.Request) {
	weekKey, err := weekKeyParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	var p expensePayload
	if err := decodeJSON(r, &p); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	at := time.Now()
	if p.Timestamp != 0 {
		at = time.UnixMilli(p.Timestamp)
	}

	week := s.store.GetOrCreateWeek(weekKey)
	expense, err := core.NewExpense(p.Amount, p.Category, p.Note, at, week.ShiftMode)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	s.store.AddExpense(weekKey, expense)
	respondJSON(w, http.StatusCreated, expense)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	weekKey, err := weekKeyParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	expenseID := chi.URLParam(r, "expenseID")

	switch err := s.store.DeleteExpense(weekKey, expenseID); {
	case errors.Is(err, store.ErrWeekNotFound), errors.Is(err, store.ErrExpenseNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case err != nil:
		respondError(w, http.StatusInternalServerError, err.Error())
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// --- hours and work days ---

type hoursPayload struct {
	Hours float64 `json:"hours"`
}

func (s *Server) handleSetHours(w http.ResponseWriter, r *http.Request) {
	weekKey, err := weekKeyParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	dateKey, err := dateKeyParam(r, weekKey)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	var p hoursPayload
	if err := decodeJSON(r, &p); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.store.SetHoursWorked(weekKey, dateKey, p.Hours); err != nil {
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type workDayPayload struct {
	Eligible bool `json:"eligible"`
}

func (s *Server) handleSetWorkDay(w http.ResponseWriter, r *http.Request) {
	weekKey, err := weekKeyParam(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	dateKey, err := dateKeyParam(r, weekKey)
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	var p workDayPayload
	if err := decodeJSON(r, &p); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.store.SetWorkDayFlag(weekKey, dateKey, p.Eligible)
	w.WriteHeader(http.StatusNoContent)
}

// --- monthly rollup ---

type monthSummary struct {
	MonthKey     string  `json:"monthKey"`
	Weeks        int     `json:"weeks"`
	ExpenseCount int     `json:"expenseCount"`
	TotalHours   float64 `json:"totalHours"`
	Wage         float64 `json:"wage"`
	Spend        float64 `json:"spend"`
	Deduction    float64 `json:"deduction"`
	Net          float64 `json:"net"`
}

// handleMonthSummary aggregates per-day settlement rows across week
// boundaries, so a week straddling two months contributes each day to the
// month the day falls in.
func (s *Server) handleMonthSummary(w http.ResponseWriter, r *http.Request) {
	monthKey := chi.URLParam(r, "monthKey")
	if _, err := time.Parse("2006-01", monthKey); err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid month key %q", monthKey))
		return
	}

	snapshot := s.store.Snapshot()
	summary := monthSummary{MonthKey: monthKey}
	weeksSeen := map[string]bool{}

	for key, week := range snapshot.Weeks {
		if week.IsGhost() {
			continue
		}
		settlement := core.Settle(week, core.DefaultPolicy)
		for _, day := range settlement.Days {
			if core.MonthKey(day.DateKey) != monthKey {
				continue
			}
			if !weeksSeen[key] {
				weeksSeen[key] = true
				summary.Weeks++
			}
			summary.TotalHours += day.Hours
			summary.Wage += day.Wage
			summary.Spend += day.Spend
			summary.Deduction += day.Deduction
			summary.Net += day.Net
		}
		for _, e := range week.Expenses {
			if core.MonthKey(e.DateKey) == monthKey {
				summary.ExpenseCount++
			}
		}
	}

	summary.TotalHours = core.RoundTo(summary.TotalHours, 2)
	summary.Wage = core.RoundTo(summary.Wage, 2)
	summary.Spend = core.RoundTo(summary.Spend, 2)
	summary.Deduction = core.RoundTo(summary.Deduction, 2)
	summary.Net = core.RoundTo(summary.Net, 2)

	respondJSON(w, http.StatusOK, summary)
}

// --- export ---

func (s *Server) handleExportJSON(w http.ResponseWriter, r *http.Request) {
	data, err := store.Marshal(s.store.Snapshot())
	if err != nil {
		slog.ErrorContext(r.Context(), "Failed to marshal state for export", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to marshal state")
		return
	}

	filename := fmt.Sprintf("weeklykeeper_%s.json", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (s *Server) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	policy := core.DefaultPolicy
	if raw := r.URL.Query().Get("policy"); raw != "" {
		var err error
		policy, err = core.ParsePolicy(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	filename := fmt.Sprintf("settlements_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)

	if err := export.SettlementWorkbook(s.store.Snapshot(), policy, w); err != nil {
		slog.ErrorContext(r.Context(), "Failed to build settlement workbook", "error", err)
	}
}

// --- sync ---

func (s *Server) handleSyncStatus(w http.ResponseWriter, _ *http.Request) {
	if s.sync == nil {
		respondJSON(w, http.StatusOK, map[string]any{"enabled": false})
		return
	}
	respondJSON(w, http.StatusOK, s.sync.Status())
}

func (s *Server) handleSyncTrigger(w http.ResponseWriter, _ *http.Request) {
	if s.sync == nil {
		respondError(w, http.StatusConflict, "remote sync is not configured")
		return
	}
	s.sync.TriggerNow()
	w.WriteHeader(http.StatusAccepted)
}
