package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"weeklykeeper/internal/core"
)

func timeAt(dateKey string, hour, minute int) time.Time {
	d, err := core.ParseDateKey(dateKey)
	if err != nil {
		panic(err)
	}
	return d.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func TestMigrateRejectsBadPayloads(t *testing.T) {
	_, err := Migrate([]byte("{not json"))
	assert.Error(t, err)

	_, err = Migrate([]byte(`{"globalDailySubsidyDefault": 28}`))
	assert.ErrorIs(t, err, ErrMissingWeeks)
}

func TestMigrateCurrentShapeRoundTrip(t *testing.T) {
	s := New(DefaultState())
	require.NoError(t, s.SetHoursWorked("2024-03-04", "2024-03-05", 8))
	e, err := core.NewExpense(20, core.CategoryLunch, "noodles", timeAt("2024-03-05", 11, 30), core.ShiftDay)
	require.NoError(t, err)
	s.AddExpense("2024-03-04", e)

	payload, err := Marshal(s.Snapshot())
	require.NoError(t, err)

	restored, err := Migrate(payload)
	require.NoError(t, err)
	assert.Equal(t, s.Snapshot(), restored)
}

func TestMigrateLegacyFlatBudgetPayload(t *testing.T) {
	// v1-era payload: flat weekly budget, no subsidy, no work days, no rate.
	raw := []byte(`{
		"currentBudgetSetting": 168,
		"weeks": {
			"2024-03-04": {
				"weekStartDate": "2024-03-04",
				"budget": 168,
				"expenses": [
					{"id": "a", "amount": 20, "category": "早餐", "timestamp": 1709512200000}
				]
			}
		}
	}`)

	state, err := Migrate(raw)
	require.NoError(t, err)

	assert.Equal(t, 28.0, state.DailySubsidyDefault)
	assert.Equal(t, 0.0, state.HourlyRateDefault)
	assert.Equal(t, core.ShiftDay, state.ShiftDefault)

	week := state.Weeks["2024-03-04"]
	assert.Equal(t, 28.0, week.DailySubsidy)
	assert.Equal(t, core.ShiftDay, week.ShiftMode)
	assert.NotNil(t, week.DailyHours)

	// Legacy 6-day seeding: Monday..Saturday eligible.
	require.Len(t, week.WorkDays, 6)
	assert.True(t, week.WorkDays["2024-03-09"])
	assert.NotContains(t, week.WorkDays, "2024-03-10")
	assert.Equal(t, 168.0, week.Budget)

	require.Len(t, week.Expenses, 1)
	e := week.Expenses[0]
	assert.Equal(t, core.CategoryBreakfast, e.Category)
	// dateStr reconstructed from the timestamp.
	assert.Equal(t, core.DateKey(e.Time()), e.DateKey)
}

func TestMigratePrefersNewFieldNames(t *testing.T) {
	raw := []byte(`{
		"schemaVersion": 4,
		"globalDailySubsidyDefault": 30,
		"globalHourlyRateDefault": 25,
		"globalShiftDefault": "night",
		"currentDailySubsidySetting": 99,
		"weeks": {}
	}`)
	state, err := Migrate(raw)
	require.NoError(t, err)
	assert.Equal(t, 30.0, state.DailySubsidyDefault)
	assert.Equal(t, 25.0, state.HourlyRateDefault)
	assert.Equal(t, core.ShiftNight, state.ShiftDefault)
}

func TestMigrateKeepsExplicitWorkDays(t *testing.T) {
	raw := []byte(`{
		"weeks": {
			"2024-03-04": {
				"weekStartDate": "2024-03-04",
				"dailySubsidy": 28,
				"workDays": {"2024-03-04": true},
				"hourlyRate": 30,
				"shiftMode": "night",
				"dailyHours": {"2024-03-04": 8},
				"expenses": []
			}
		}
	}`)
	state, err := Migrate(raw)
	require.NoError(t, err)

	week := state.Weeks["2024-03-04"]
	require.Len(t, week.WorkDays, 1)
	assert.Equal(t, 28.0, week.Budget)
	assert.Equal(t, core.ShiftNight, week.ShiftMode)
	assert.Equal(t, 30.0, week.HourlyRate)
}
