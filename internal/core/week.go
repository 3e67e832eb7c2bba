package core

import (
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidHours  = errors.New("invalid hours")
	ErrInvalidRate   = errors.New("invalid hourly rate")
	ErrInvalidShift  = errors.New("invalid shift mode")
)

// Expense is a single logged meal expense. dateStr is derived from the
// timestamp at creation and frozen afterwards; it is never recomputed even if
// the derivation rules change later.
type Expense struct {
	ID        string   `json:"id"`
	Amount    float64  `json:"amount"`
	Category  Category `json:"category"`
	Note      string   `json:"note,omitempty"`
	Timestamp int64    `json:"timestamp"` // unix milliseconds
	DateKey   string   `json:"dateStr"`
}

// NewExpense builds an expense logged at the instant at. When category is
// empty the meal window of the shift mode decides.
func NewExpense(amount float64, category Category, note string, at time.Time, mode ShiftMode) (Expense, error) {
	if !isFinite(amount) || amount <= 0 {
		return Expense{}, ErrInvalidAmount
	}
	if category == "" {
		category = Categorize(HourOfDay(at), mode)
	} else if !category.Valid() {
		category = CategoryOther
	}
	return Expense{
		ID:        uuid.NewString(),
		Amount:    amount,
		Category:  category,
		Note:      note,
		Timestamp: at.UnixMilli(),
		DateKey:   DateKey(at),
	}, nil
}

// Time returns the instant the expense was logged.
func (e Expense) Time() time.Time {
	return time.UnixMilli(e.Timestamp)
}

// WeekData aggregates one Monday-anchored week: hours, expenses, work-day
// eligibility flags and the settings frozen into the week at creation.
type WeekData struct {
	WeekStartKey string             `json:"weekStartDate"`
	DailySubsidy float64            `json:"dailySubsidy"`
	Budget       float64            `json:"budget"` // derived total, kept for legacy payloads
	WorkDays     map[string]bool    `json:"workDays"`
	HourlyRate   float64            `json:"hourlyRate"`
	ShiftMode    ShiftMode          `json:"shiftMode"`
	DailyHours   map[string]float64 `json:"dailyHours"`
	Expenses     []Expense          `json:"expenses"`
}

// WorkDayCount returns how many days of the week are subsidy-eligible.
func (w WeekData) WorkDayCount() int {
	n := 0
	for _, on := range w.WorkDays {
		if on {
			n++
		}
	}
	return n
}

// WeeklyBudget is the derived subsidy pool: daily subsidy times eligible days.
func (w WeekData) WeeklyBudget() float64 {
	return clampAmount(w.DailySubsidy) * float64(w.WorkDayCount())
}

// IsGhost reports whether the week carries no meaningful data: no expenses,
// no positive hours, and work-day flags that are either all off or still the
// untouched Monday..Saturday creation seeding. Ghost weeks stay in storage
// but history listings hide them.
func (w WeekData) IsGhost() bool {
	if len(w.Expenses) > 0 {
		return false
	}
	for _, h := range w.DailyHours {
		if h > 0 {
			return false
		}
	}
	eligible := 0
	for _, on := range w.WorkDays {
		if on {
			eligible++
		}
	}
	if eligible == 0 {
		return true
	}
	return w.hasDefaultWorkDays(eligible)
}

// hasDefaultWorkDays reports whether the eligible flags are exactly the
// Monday..Saturday pattern seeded at creation.
func (w WeekData) hasDefaultWorkDays(eligible int) bool {
	if eligible != 6 {
		return false
	}
	keys := WeekDates(w.WeekStartKey)
	if keys == nil {
		return false
	}
	for _, key := range keys[:6] {
		if !w.WorkDays[key] {
			return false
		}
	}
	return true
}

// Clone returns a deep copy safe to hand to readers.
func (w WeekData) Clone() WeekData {
	c := w
	c.WorkDays = make(map[string]bool, len(w.WorkDays))
	for k, v := range w.WorkDays {
		c.WorkDays[k] = v
	}
	c.DailyHours = make(map[string]float64, len(w.DailyHours))
	for k, v := range w.DailyHours {
		c.DailyHours[k] = v
	}
	c.Expenses = make([]Expense, len(w.Expenses))
	copy(c.Expenses, w.Expenses)
	return c
}

// AppState is the whole persisted aggregate: seeding defaults for new weeks
// plus every week record ever created.
type AppState struct {
	DailySubsidyDefault float64             `json:"globalDailySubsidyDefault"`
	HourlyRateDefault   float64             `json:"globalHourlyRateDefault"`
	ShiftDefault        ShiftMode           `json:"globalShiftDefault"`
	Weeks               map[string]WeekData `json:"weeks"`
}

// Clone returns a deep copy of the full state.
func (s AppState) Clone() AppState {
	c := s
	c.Weeks = make(map[string]WeekData, len(s.Weeks))
	for k, w := range s.Weeks {
		c.Weeks[k] = w.Clone()
	}
	return c
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// clampAmount treats unset, NaN or negative monetary and hour inputs as zero.
// Legacy payloads can still carry such values past the entry points.
func clampAmount(v float64) float64 {
	if !isFinite(v) || v < 0 {
		return 0
	}
	return v
}
