package store

import (
	"encoding/json"
	"fmt"

	"weeklykeeper/internal/core"
)

// SchemaVersion tags the persisted shape. Older payloads — back to the flat
// weekly-budget era — are upgraded field by field on load, never rejected.
const SchemaVersion = 4

// persistedState is the envelope written to storage, export files and sync
// targets: the AppState contract plus the schema tag.
type persistedState struct {
	SchemaVersion int `json:"schemaVersion"`
	core.AppState
}

// rawState tolerates every historical shape. Pointer fields distinguish
// "absent" from zero so backfill only touches what is actually missing.
type rawState struct {
	SchemaVersion int `json:"schemaVersion"`

	DailySubsidyDefault *float64 `json:"globalDailySubsidyDefault"`
	HourlyRateDefault   *float64 `json:"globalHourlyRateDefault"`
	ShiftDefault        string   `json:"globalShiftDefault"`

	// Pre-v4 global setting names.
	LegacySubsidySetting *float64 `json:"currentDailySubsidySetting"`
	LegacyBudgetSetting  *float64 `json:"currentBudgetSetting"`
	LegacyRateSetting    *float64 `json:"currentHourlyRateSetting"`
	LegacyShiftSetting   string   `json:"currentShiftSetting"`

	Weeks map[string]rawWeek `json:"weeks"`
}

type rawWeek struct {
	WeekStartKey string              `json:"weekStartDate"`
	DailySubsidy *float64            `json:"dailySubsidy"`
	Budget       *float64            `json:"budget"`
	WorkDays     map[string]bool     `json:"workDays"`
	HourlyRate   *float64            `json:"hourlyRate"`
	ShiftMode    string              `json:"shiftMode"`
	DailyHours   map[string]float64  `json:"dailyHours"`
	Expenses     []rawExpense        `json:"expenses"`
}

type rawExpense struct {
	ID        string  `json:"id"`
	Amount    float64 `json:"amount"`
	Category  string  `json:"category"`
	Note      string  `json:"note"`
	Timestamp int64   `json:"timestamp"`
	DateKey   string  `json:"dateStr"`
}

// Marshal serializes the state with the current schema tag, indented the way
// export files and the REST blob are exchanged.
func Marshal(state core.AppState) ([]byte, error) {
	payload, err := json.MarshalIndent(persistedState{SchemaVersion: SchemaVersion, AppState: state}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	return payload, nil
}

// Migrate parses a persisted payload of any historical schema and upgrades it
// to the current shape. The only fatal conditions are malformed JSON and a
// missing weeks field; everything else is backfilled.
func Migrate(raw []byte) (core.AppState, error) {
	var parsed rawState
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return core.AppState{}, fmt.Errorf("parse state: %w", err)
	}
	if parsed.Weeks == nil {
		return core.AppState{}, ErrMissingWeeks
	}

	state := core.AppState{
		Weeks: make(map[string]core.WeekData, len(parsed.Weeks)),
	}

	switch {
	case parsed.DailySubsidyDefault != nil:
		state.DailySubsidyDefault = *parsed.DailySubsidyDefault
	case parsed.LegacySubsidySetting != nil:
		state.DailySubsidyDefault = *parsed.LegacySubsidySetting
	case parsed.LegacyBudgetSetting != nil:
		state.DailySubsidyDefault = *parsed.LegacyBudgetSetting / 6
	default:
		state.DailySubsidyDefault = DefaultDailySubsidy
	}

	switch {
	case parsed.HourlyRateDefault != nil:
		state.HourlyRateDefault = *parsed.HourlyRateDefault
	case parsed.LegacyRateSetting != nil:
		state.HourlyRateDefault = *parsed.LegacyRateSetting
	}

	state.ShiftDefault = migrateShift(parsed.ShiftDefault, parsed.LegacyShiftSetting)

	for key, rw := range parsed.Weeks {
		state.Weeks[key] = migrateWeek(key, rw)
	}
	return state, nil
}

func migrateShift(values ...string) core.ShiftMode {
	for _, v := range values {
		if mode := core.ShiftMode(v); mode.Valid() {
			return mode
		}
	}
	return core.ShiftDay
}

func migrateWeek(key string, rw rawWeek) core.WeekData {
	week := core.WeekData{
		WeekStartKey: rw.WeekStartKey,
		WorkDays:     rw.WorkDays,
		DailyHours:   rw.DailyHours,
		ShiftMode:    migrateShift(rw.ShiftMode),
	}
	if week.WeekStartKey == "" {
		week.WeekStartKey = key
	}
	if rw.HourlyRate != nil {
		week.HourlyRate = *rw.HourlyRate
	}
	if week.DailyHours == nil {
		week.DailyHours = map[string]float64{}
	}

	switch {
	case rw.DailySubsidy != nil:
		week.DailySubsidy = *rw.DailySubsidy
	case rw.Budget != nil && *rw.Budget > 0:
		week.DailySubsidy = *rw.Budget / 6
	default:
		week.DailySubsidy = DefaultDailySubsidy
	}

	// Weeks persisted before work-day flags existed get the legacy 6-day
	// seeding: Monday..Saturday eligible, Sunday not.
	if week.WorkDays == nil {
		week.WorkDays = map[string]bool{}
		if keys := core.WeekDates(week.WeekStartKey); keys != nil {
			for _, dk := range keys[:6] {
				week.WorkDays[dk] = true
			}
		}
	}
	week.Budget = week.WeeklyBudget()

	week.Expenses = make([]core.Expense, 0, len(rw.Expenses))
	for _, re := range rw.Expenses {
		week.Expenses = append(week.Expenses, migrateExpense(re))
	}
	return week
}

func migrateExpense(re rawExpense) core.Expense {
	e := core.Expense{
		ID:        re.ID,
		Amount:    re.Amount,
		Category:  core.Category(re.Category),
		Note:      re.Note,
		Timestamp: re.Timestamp,
		DateKey:   re.DateKey,
	}
	if !e.Category.Valid() {
		e.Category = legacyCategory(re.Category)
	}
	// dateStr is frozen at creation; reconstruct it only when an old payload
	// lacks it entirely.
	if e.DateKey == "" && e.Timestamp > 0 {
		e.DateKey = core.DateKey(e.Time())
	}
	return e
}

// legacyCategory maps localized category labels from pre-v4 payloads onto
// the current identifiers.
func legacyCategory(s string) core.Category {
	switch s {
	case "早餐":
		return core.CategoryBreakfast
	case "中餐", "午餐":
		return core.CategoryLunch
	case "晚餐":
		return core.CategoryDinner
	default:
		return core.CategoryOther
	}
}
