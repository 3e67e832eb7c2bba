// Package store owns the in-memory application state: the week records,
// the global defaults seeding new weeks, and the change hook that drives
// persistence and remote sync.
package store

import (
	"errors"
	"math"
	"sort"
	"sync"

	"weeklykeeper/internal/core"
)

var (
	ErrWeekNotFound    = errors.New("week not found")
	ErrExpenseNotFound = errors.New("expense not found")
	ErrMissingWeeks    = errors.New("state has no weeks field")
)

// DefaultDailySubsidy seeds a fresh installation.
const DefaultDailySubsidy = 28

// DefaultState is the hard-coded fallback when nothing is persisted.
func DefaultState() core.AppState {
	return core.AppState{
		DailySubsidyDefault: DefaultDailySubsidy,
		HourlyRateDefault:   0,
		ShiftDefault:        core.ShiftDay,
		Weeks:               map[string]core.WeekData{},
	}
}

// Store is the single mutator of the aggregate. Mutations are atomic
// read-modify-write under one mutex; after each one the change hook receives
// a deep copy of the new state together with a monotonic revision.
type Store struct {
	mu       sync.Mutex
	state    core.AppState
	revision int64
	onChange func(state core.AppState, revision int64)
}

// New wraps an already-migrated state. A nil weeks map is replaced so lazy
// creation always has somewhere to insert.
func New(initial core.AppState) *Store {
	if initial.Weeks == nil {
		initial.Weeks = map[string]core.WeekData{}
	}
	if !initial.ShiftDefault.Valid() {
		initial.ShiftDefault = core.ShiftDay
	}
	return &Store{state: initial}
}

// NewAt wraps an already-migrated state and resumes the mutation counter at
// revision, so a reloaded installation is not mistaken for a pristine one.
func NewAt(initial core.AppState, revision int64) *Store {
	s := New(initial)
	if revision > 0 {
		s.revision = revision
	}
	return s
}

// OnChange registers the hook invoked after every mutation. Must be set
// before the store is shared.
func (s *Store) OnChange(fn func(state core.AppState, revision int64)) {
	s.onChange = fn
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() core.AppState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

// Revision returns the current mutation counter.
func (s *Store) Revision() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.revision
}

// notifyLocked bumps the revision and fires the change hook. Callers hold mu.
func (s *Store) notifyLocked() {
	s.revision++
	if s.onChange != nil {
		s.onChange(s.state.Clone(), s.revision)
	}
}

// getOrCreateLocked returns the week, lazily creating it seeded from the
// global defaults with Monday..Saturday eligible. The 6-day default is a
// legacy of the budget/6 model and is kept for compatibility.
func (s *Store) getOrCreateLocked(weekKey string) (core.WeekData, bool) {
	if week, ok := s.state.Weeks[weekKey]; ok {
		return week, false
	}
	week := core.WeekData{
		WeekStartKey: weekKey,
		DailySubsidy: s.state.DailySubsidyDefault,
		HourlyRate:   s.state.HourlyRateDefault,
		ShiftMode:    s.state.ShiftDefault,
		WorkDays:     map[string]bool{},
		DailyHours:   map[string]float64{},
		Expenses:     []core.Expense{},
	}
	keys := core.WeekDates(weekKey)
	if keys != nil {
		for _, key := range keys[:6] {
			week.WorkDays[key] = true
		}
	}
	week.Budget = week.WeeklyBudget()
	s.state.Weeks[weekKey] = week
	return week, true
}

// GetOrCreateWeek returns the week for weekKey, creating it on first access.
// Creation counts as a mutation (the ghost record persists).
func (s *Store) GetOrCreateWeek(weekKey string) core.WeekData {
	s.mu.Lock()
	defer s.mu.Unlock()
	week, created := s.getOrCreateLocked(weekKey)
	if created {
		s.notifyLocked()
	}
	return week.Clone()
}

// Week returns the week without creating it.
func (s *Store) Week(weekKey string) (core.WeekData, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	week, ok := s.state.Weeks[weekKey]
	if !ok {
		return core.WeekData{}, false
	}
	return week.Clone(), true
}

// SetHoursWorked upserts the hours for one day. Hours must be finite and
// non-negative; the HTTP boundary rejects anything else before it gets here.
func (s *Store) SetHoursWorked(weekKey, dateKey string, hours float64) error {
	if hours < 0 || math.IsNaN(hours) || math.IsInf(hours, 0) {
		return core.ErrInvalidHours
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	week, _ := s.getOrCreateLocked(weekKey)
	week.DailyHours[dateKey] = hours
	s.state.Weeks[weekKey] = week
	s.notifyLocked()
	return nil
}

// SetWorkDayFlag marks a day of the week subsidy-eligible or not.
func (s *Store) SetWorkDayFlag(weekKey, dateKey string, eligible bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	week, _ := s.getOrCreateLocked(weekKey)
	week.WorkDays[dateKey] = eligible
	week.Budget = week.WeeklyBudget()
	s.state.Weeks[weekKey] = week
	s.notifyLocked()
}

// AddExpense prepends an expense to the week. Newest-first ordering is a
// display convenience; the engine sums regardless of order.
func (s *Store) AddExpense(weekKey string, e core.Expense) {
	s.mu.Lock()
	defer s.mu.Unlock()
	week, _ := s.getOrCreateLocked(weekKey)
	week.Expenses = append([]core.Expense{e}, week.Expenses...)
	s.state.Weeks[weekKey] = week
	s.notifyLocked()
}

// DeleteExpense removes an expense by id.
func (s *Store) DeleteExpense(weekKey, expenseID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	week, ok := s.state.Weeks[weekKey]
	if !ok {
		return ErrWeekNotFound
	}
	for i, e := range week.Expenses {
		if e.ID == expenseID {
			week.Expenses = append(week.Expenses[:i], week.Expenses[i+1:]...)
			s.state.Weeks[weekKey] = week
			s.notifyLocked()
			return nil
		}
	}
	return ErrExpenseNotFound
}

// UpdateWeekSettings overwrites subsidy, rate and shift on one week only;
// other weeks keep whatever was frozen into them at creation.
func (s *Store) UpdateWeekSettings(weekKey string, dailySubsidy, hourlyRate float64, shift core.ShiftMode) error {
	if dailySubsidy < 0 || math.IsNaN(dailySubsidy) || math.IsInf(dailySubsidy, 0) {
		return core.ErrInvalidAmount
	}
	if hourlyRate < 0 || math.IsNaN(hourlyRate) || math.IsInf(hourlyRate, 0) {
		return core.ErrInvalidRate
	}
	if !shift.Valid() {
		return core.ErrInvalidShift
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	week, _ := s.getOrCreateLocked(weekKey)
	week.DailySubsidy = dailySubsidy
	week.HourlyRate = hourlyRate
	week.ShiftMode = shift
	week.Budget = week.WeeklyBudget()
	s.state.Weeks[weekKey] = week
	s.notifyLocked()
	return nil
}

// UpdateGlobalDefaults changes the template copied into weeks created from
// now on. Existing weeks are untouched except for applyToWeek, which (when
// non-empty) also receives the new settings, matching the settings dialog
// writing through to the week being viewed.
func (s *Store) UpdateGlobalDefaults(dailySubsidy, hourlyRate float64, shift core.ShiftMode, applyToWeek string) error {
	if dailySubsidy < 0 || math.IsNaN(dailySubsidy) || math.IsInf(dailySubsidy, 0) {
		return core.ErrInvalidAmount
	}
	if hourlyRate < 0 || math.IsNaN(hourlyRate) || math.IsInf(hourlyRate, 0) {
		return core.ErrInvalidRate
	}
	if !shift.Valid() {
		return core.ErrInvalidShift
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.DailySubsidyDefault = dailySubsidy
	s.state.HourlyRateDefault = hourlyRate
	s.state.ShiftDefault = shift
	if applyToWeek != "" {
		week, _ := s.getOrCreateLocked(applyToWeek)
		week.DailySubsidy = dailySubsidy
		week.HourlyRate = hourlyRate
		week.ShiftMode = shift
		week.Budget = week.WeeklyBudget()
		s.state.Weeks[applyToWeek] = week
	}
	s.notifyLocked()
	return nil
}

// ReplaceAll overwrites the whole state, used by import/restore and remote
// downloads. No merge; the only guard is the presence of the weeks map.
func (s *Store) ReplaceAll(state core.AppState) error {
	if state.Weeks == nil {
		return ErrMissingWeeks
	}
	if !state.ShiftDefault.Valid() {
		state.ShiftDefault = core.ShiftDay
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state.Clone()
	s.notifyLocked()
	return nil
}

// ListWeeks returns weeks newest-first. Ghost weeks (no expenses, no hours,
// flags untouched since creation) are filtered unless includeGhosts is set;
// they stay in storage either way.
func (s *Store) ListWeeks(includeGhosts bool) []core.WeekData {
	s.mu.Lock()
	defer s.mu.Unlock()
	weeks := make([]core.WeekData, 0, len(s.state.Weeks))
	for _, week := range s.state.Weeks {
		if !includeGhosts && week.IsGhost() {
			continue
		}
		weeks = append(weeks, week.Clone())
	}
	sort.Slice(weeks, func(i, j int) bool {
		return weeks[i].WeekStartKey > weeks[j].WeekStartKey
	})
	return weeks
}

// PruneGhostWeeks deletes ghost weeks whose Monday is strictly before the
// cutoff key. Opt-in maintenance; normal operation never deletes weeks.
func (s *Store) PruneGhostWeeks(cutoffKey string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	pruned := 0
	for key, week := range s.state.Weeks {
		if week.IsGhost() && key < cutoffKey {
			delete(s.state.Weeks, key)
			pruned++
		}
	}
	if pruned > 0 {
		s.notifyLocked()
	}
	return pruned
}
