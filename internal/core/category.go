package core

import "time"

// Category classifies an expense as one of the meal slots or Other.
type Category string

const (
	CategoryBreakfast Category = "breakfast"
	CategoryLunch     Category = "lunch"
	CategoryDinner    Category = "dinner"
	CategoryOther     Category = "other"
)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	switch c {
	case CategoryBreakfast, CategoryLunch, CategoryDinner, CategoryOther:
		return true
	}
	return false
}

// ShiftMode selects which meal-window table Categorize uses.
type ShiftMode string

const (
	ShiftDay   ShiftMode = "day"
	ShiftNight ShiftMode = "night"
)

// Valid reports whether m is a known shift mode.
func (m ShiftMode) Valid() bool {
	return m == ShiftDay || m == ShiftNight
}

// HourOfDay returns the real-valued clock hour of t, e.g. 7.75 for 07:45.
func HourOfDay(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60
}

// Categorize maps a clock hour to a meal category. It is consulted only when
// the caller did not supply an explicit category; an explicit category always
// wins upstream. Day shift uses regular meal windows; night shift shifts the
// slots to the start, middle (wrapping midnight) and end of the shift.
func Categorize(hourOfDay float64, mode ShiftMode) Category {
	if mode == ShiftNight {
		switch {
		case hourOfDay >= 18.5 && hourOfDay <= 21:
			return CategoryBreakfast // shift-start meal
		case hourOfDay >= 23 || hourOfDay <= 2:
			return CategoryLunch // mid-shift meal
		case hourOfDay >= 6 && hourOfDay <= 8:
			return CategoryDinner // shift-end meal
		default:
			return CategoryOther
		}
	}
	switch {
	case hourOfDay >= 7.5 && hourOfDay <= 8.5:
		return CategoryBreakfast
	case hourOfDay >= 11 && hourOfDay <= 12:
		return CategoryLunch
	case hourOfDay >= 17 && hourOfDay <= 18:
		return CategoryDinner
	default:
		return CategoryOther
	}
}
