package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weeklykeeper/internal/core"
)

const weekKey = "2024-03-04"

func newTestStore() *Store {
	state := DefaultState()
	state.DailySubsidyDefault = 28
	state.HourlyRateDefault = 30
	return New(state)
}

func TestGetOrCreateWeekSeedsFromDefaults(t *testing.T) {
	s := newTestStore()
	week := s.GetOrCreateWeek(weekKey)

	assert.Equal(t, weekKey, week.WeekStartKey)
	assert.Equal(t, 28.0, week.DailySubsidy)
	assert.Equal(t, 30.0, week.HourlyRate)
	assert.Equal(t, core.ShiftDay, week.ShiftMode)

	// Monday..Saturday eligible, Sunday absent.
	require.Len(t, week.WorkDays, 6)
	assert.True(t, week.WorkDays["2024-03-04"])
	assert.True(t, week.WorkDays["2024-03-09"])
	assert.NotContains(t, week.WorkDays, "2024-03-10")
	assert.Equal(t, 168.0, week.Budget)
}

func TestGetOrCreateWeekIsStable(t *testing.T) {
	s := newTestStore()
	s.GetOrCreateWeek(weekKey)
	require.NoError(t, s.SetHoursWorked(weekKey, "2024-03-04", 8))

	// Changing globals later must not leak into the existing week.
	require.NoError(t, s.UpdateGlobalDefaults(50, 99, core.ShiftNight, ""))
	week := s.GetOrCreateWeek(weekKey)
	assert.Equal(t, 28.0, week.DailySubsidy)
	assert.Equal(t, 30.0, week.HourlyRate)

	// A week created after the change sees the new template.
	next := s.GetOrCreateWeek("2024-03-11")
	assert.Equal(t, 50.0, next.DailySubsidy)
	assert.Equal(t, core.ShiftNight, next.ShiftMode)
}

func TestUpdateGlobalDefaultsWritesThroughToViewedWeek(t *testing.T) {
	s := newTestStore()
	s.GetOrCreateWeek(weekKey)
	require.NoError(t, s.UpdateGlobalDefaults(40, 35, core.ShiftNight, weekKey))

	week, ok := s.Week(weekKey)
	require.True(t, ok)
	assert.Equal(t, 40.0, week.DailySubsidy)
	assert.Equal(t, 35.0, week.HourlyRate)
	assert.Equal(t, core.ShiftNight, week.ShiftMode)
	assert.Equal(t, 240.0, week.Budget)
}

func TestSetHoursWorkedValidation(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.SetHoursWorked(weekKey, "2024-03-04", 7.5))
	assert.ErrorIs(t, s.SetHoursWorked(weekKey, "2024-03-04", -1), core.ErrInvalidHours)

	week, _ := s.Week(weekKey)
	assert.Equal(t, 7.5, week.DailyHours["2024-03-04"])
}

func TestAddAndDeleteExpense(t *testing.T) {
	s := newTestStore()
	first, err := core.NewExpense(20, "", "", time.Date(2024, 3, 4, 11, 30, 0, 0, time.Local), core.ShiftDay)
	require.NoError(t, err)
	second, err := core.NewExpense(40, "", "", time.Date(2024, 3, 5, 12, 0, 0, 0, time.Local), core.ShiftDay)
	require.NoError(t, err)

	s.AddExpense(weekKey, first)
	s.AddExpense(weekKey, second)

	week, _ := s.Week(weekKey)
	require.Len(t, week.Expenses, 2)
	// Newest first.
	assert.Equal(t, second.ID, week.Expenses[0].ID)

	require.NoError(t, s.DeleteExpense(weekKey, first.ID))
	assert.ErrorIs(t, s.DeleteExpense(weekKey, first.ID), ErrExpenseNotFound)
	assert.ErrorIs(t, s.DeleteExpense("2030-01-06", "x"), ErrWeekNotFound)

	week, _ = s.Week(weekKey)
	require.Len(t, week.Expenses, 1)
}

func TestGhostWeekFiltering(t *testing.T) {
	s := newTestStore()

	// Created by mere navigation: defaults mark Mon..Sat eligible, so wipe
	// the flags to reproduce a week with no meaningful data.
	s.GetOrCreateWeek("2024-02-26")
	ghost := s.GetOrCreateWeek("2024-02-26")
	for key := range ghost.WorkDays {
		s.SetWorkDayFlag("2024-02-26", key, false)
	}

	require.NoError(t, s.SetHoursWorked(weekKey, "2024-03-04", 8))

	visible := s.ListWeeks(false)
	require.Len(t, visible, 1)
	assert.Equal(t, weekKey, visible[0].WeekStartKey)

	// The ghost still exists in storage.
	all := s.ListWeeks(true)
	assert.Len(t, all, 2)
	_, ok := s.Week("2024-02-26")
	assert.True(t, ok)
}

func TestNavigationCreatedWeekIsHidden(t *testing.T) {
	s := newTestStore()

	// Mere navigation creates the week with the untouched Mon..Sat seeding.
	s.GetOrCreateWeek("2024-03-04")

	assert.Empty(t, s.ListWeeks(false))
	all := s.ListWeeks(true)
	require.Len(t, all, 1)
	assert.True(t, all[0].IsGhost())

	// The record persists and is prunable once past the horizon.
	pruned := s.PruneGhostWeeks("2024-04-01")
	assert.Equal(t, 1, pruned)
}

func TestEditedWorkDaysMakeWeekVisible(t *testing.T) {
	s := newTestStore()
	s.GetOrCreateWeek("2024-03-04")

	// Marking Saturday off breaks the default pattern: meaningful data.
	s.SetWorkDayFlag("2024-03-04", "2024-03-09", false)

	visible := s.ListWeeks(false)
	require.Len(t, visible, 1)
	assert.False(t, visible[0].IsGhost())
}

func TestListWeeksNewestFirst(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.SetHoursWorked("2024-03-04", "2024-03-04", 1))
	require.NoError(t, s.SetHoursWorked("2024-03-11", "2024-03-11", 1))
	require.NoError(t, s.SetHoursWorked("2024-02-26", "2024-02-26", 1))

	weeks := s.ListWeeks(false)
	require.Len(t, weeks, 3)
	assert.Equal(t, "2024-03-11", weeks[0].WeekStartKey)
	assert.Equal(t, "2024-02-26", weeks[2].WeekStartKey)
}

func TestReplaceAll(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.SetHoursWorked(weekKey, "2024-03-04", 8))

	assert.ErrorIs(t, s.ReplaceAll(core.AppState{}), ErrMissingWeeks)

	incoming := DefaultState()
	incoming.DailySubsidyDefault = 35
	require.NoError(t, s.ReplaceAll(incoming))

	snap := s.Snapshot()
	assert.Equal(t, 35.0, snap.DailySubsidyDefault)
	assert.Empty(t, snap.Weeks)
}

func TestNewAtResumesRevision(t *testing.T) {
	s := NewAt(DefaultState(), 7)
	assert.Equal(t, int64(7), s.Revision())

	require.NoError(t, s.SetHoursWorked(weekKey, "2024-03-04", 8))
	assert.Equal(t, int64(8), s.Revision())

	// A negative stored revision never rewinds the counter.
	assert.Equal(t, int64(0), NewAt(DefaultState(), -3).Revision())
}

func TestOnChangeFiresWithRevision(t *testing.T) {
	s := newTestStore()
	var revisions []int64
	s.OnChange(func(state core.AppState, revision int64) {
		revisions = append(revisions, revision)
		// The hook receives a copy: mutating it must not affect the store.
		state.Weeks["poison"] = core.WeekData{}
	})

	s.GetOrCreateWeek(weekKey)
	require.NoError(t, s.SetHoursWorked(weekKey, "2024-03-04", 8))

	assert.Equal(t, []int64{1, 2}, revisions)
	_, ok := s.Week("poison")
	assert.False(t, ok)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	s := newTestStore()
	require.NoError(t, s.SetHoursWorked(weekKey, "2024-03-04", 8))

	snap := s.Snapshot()
	snap.Weeks[weekKey].DailyHours["2024-03-04"] = 99

	week, _ := s.Week(weekKey)
	assert.Equal(t, 8.0, week.DailyHours["2024-03-04"])
}

func TestPruneGhostWeeks(t *testing.T) {
	s := newTestStore()
	makeGhost := func(key string) {
		for dk := range s.GetOrCreateWeek(key).WorkDays {
			s.SetWorkDayFlag(key, dk, false)
		}
	}
	makeGhost("2023-01-02")
	makeGhost("2024-02-26")
	require.NoError(t, s.SetHoursWorked("2023-01-09", "2023-01-09", 8))

	pruned := s.PruneGhostWeeks("2024-01-01")
	assert.Equal(t, 1, pruned)

	_, oldGhost := s.Week("2023-01-02")
	assert.False(t, oldGhost)
	_, recentGhost := s.Week("2024-02-26")
	assert.True(t, recentGhost)
	_, realWeek := s.Week("2023-01-09")
	assert.True(t, realWeek)
}
