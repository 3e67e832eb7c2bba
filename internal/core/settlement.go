package core

import (
	"fmt"
	"math"
	"sort"
)

// Policy names one of the deduction rules the tracker has used over time.
// Snapshots are re-evaluated uniformly under whichever policy the caller
// selects; PolicyPooledWeekly is the current default.
type Policy string

const (
	// PolicyPooledWeekly realizes overspend only against the week's pooled
	// budget (daily subsidy times eligible days): a day that overspends is
	// absorbed by days that underspend.
	PolicyPooledWeekly Policy = "pooled_weekly"

	// PolicyStrictDaily penalizes each day independently against its own
	// entitlement, ignoring surplus elsewhere in the week.
	PolicyStrictDaily Policy = "strict_daily"

	// PolicyLegacyDailySplit is the older budget/6 rule: every day except
	// Sunday gets a sixth of the flat weekly budget, deducted strictly per
	// day. Sunday always has zero entitlement.
	PolicyLegacyDailySplit Policy = "legacy_daily_split"

	// PolicyLegacyFlatWeekly is the oldest rule: one flat weekly budget
	// checked against total weekly spend, regardless of distribution.
	PolicyLegacyFlatWeekly Policy = "legacy_flat_weekly"
)

// DefaultPolicy is used wherever the caller does not pick one explicitly.
const DefaultPolicy = PolicyPooledWeekly

// ParsePolicy maps a wire string onto a Policy. Empty selects the default.
func ParsePolicy(s string) (Policy, error) {
	switch Policy(s) {
	case "":
		return DefaultPolicy, nil
	case PolicyPooledWeekly, PolicyStrictDaily, PolicyLegacyDailySplit, PolicyLegacyFlatWeekly:
		return Policy(s), nil
	}
	return "", fmt.Errorf("unknown settlement policy %q", s)
}

// DaySettlement carries the derived figures for one calendar day.
type DaySettlement struct {
	DateKey     string  `json:"dateKey"`
	WorkDay     bool    `json:"workDay"`
	Hours       float64 `json:"hours"`
	Wage        float64 `json:"wage"`
	Spend       float64 `json:"spend"`
	Entitlement float64 `json:"entitlement"`
	Deduction   float64 `json:"deduction"`
	Net         float64 `json:"net"`
}

// Settlement is the weekly read model: full-precision figures derived from a
// WeekData snapshot. Presentation rounding happens at the boundary only.
type Settlement struct {
	WeekStartKey string          `json:"weekStartDate"`
	Policy       Policy          `json:"policy"`
	TotalHours   float64         `json:"totalHours"`
	Wage         float64         `json:"wage"`
	Spend        float64         `json:"spend"`
	Budget       float64         `json:"budget"`
	Excess       float64         `json:"excess"`
	Net          float64         `json:"net"`
	Days         []DaySettlement `json:"days"`
}

// Settle computes the settlement of one week under the given policy. It reads
// the snapshot only and never mutates it. Hours, rate and subsidy are clamped
// to zero when negative or non-finite rather than failing.
func Settle(week WeekData, policy Policy) Settlement {
	rate := clampAmount(week.HourlyRate)

	spendByDay := make(map[string]float64)
	for _, e := range week.Expenses {
		spendByDay[e.DateKey] += clampAmount(e.Amount)
	}

	days := settlementDays(week, spendByDay)

	s := Settlement{
		WeekStartKey: week.WeekStartKey,
		Policy:       policy,
		Days:         make([]DaySettlement, 0, len(days)),
	}

	for _, key := range days {
		hours := clampAmount(week.DailyHours[key])
		d := DaySettlement{
			DateKey:     key,
			WorkDay:     week.WorkDays[key],
			Hours:       hours,
			Wage:        hours * rate,
			Spend:       spendByDay[key],
			Entitlement: entitlement(week, policy, key),
		}
		s.TotalHours += d.Hours
		s.Wage += d.Wage
		s.Spend += d.Spend
		s.Budget += d.Entitlement
		s.Days = append(s.Days, d)
	}
	if policy == PolicyLegacyFlatWeekly {
		s.Budget = legacyBudget(week)
	}

	switch policy {
	case PolicyStrictDaily, PolicyLegacyDailySplit:
		for i := range s.Days {
			s.Days[i].Deduction = math.Max(0, s.Days[i].Spend-s.Days[i].Entitlement)
			s.Excess += s.Days[i].Deduction
		}
	default:
		attributePooled(s.Days, s.Budget)
		s.Excess = math.Max(0, s.Spend-s.Budget)
	}

	for i := range s.Days {
		s.Days[i].Net = s.Days[i].Wage - s.Days[i].Deduction
	}
	s.Net = s.Wage - s.Excess
	return s
}

// settlementDays returns the ordered date keys the settlement covers: the
// seven days of the week plus any stray keys found in hours or expenses.
// Keys sort lexicographically, which is chronological for YYYY-MM-DD.
func settlementDays(week WeekData, spendByDay map[string]float64) []string {
	seen := make(map[string]bool)
	for _, key := range WeekDates(week.WeekStartKey) {
		seen[key] = true
	}
	for key := range week.DailyHours {
		seen[key] = true
	}
	for key := range spendByDay {
		seen[key] = true
	}
	for key := range week.WorkDays {
		seen[key] = true
	}
	days := make([]string, 0, len(seen))
	for key := range seen {
		days = append(days, key)
	}
	sort.Strings(days)
	return days
}

// entitlement returns the subsidy a single day earns under a policy.
func entitlement(week WeekData, policy Policy, dateKey string) float64 {
	switch policy {
	case PolicyLegacyDailySplit:
		if d, err := ParseDateKey(dateKey); err == nil && IsSettlementDay(d) {
			return 0
		}
		return legacyBudget(week) / 6
	case PolicyLegacyFlatWeekly:
		// The flat pool is not distributed per day.
		return 0
	default:
		if week.WorkDays[dateKey] {
			return clampAmount(week.DailySubsidy)
		}
		return 0
	}
}

// legacyBudget resolves the flat weekly pool for the legacy policies: the
// stored budget when present, otherwise six times the daily subsidy.
func legacyBudget(week WeekData) float64 {
	if b := clampAmount(week.Budget); b > 0 {
		return b
	}
	return clampAmount(week.DailySubsidy) * 6
}

// attributePooled assigns each day its marginal contribution to the pooled
// weekly excess. With prior(D) = spend strictly before D:
//
//	deduction(D) = max(0, prior+spend(D)-budget) - max(0, prior-budget)
//
// The per-day deductions telescope to exactly max(0, totalSpend-budget).
func attributePooled(days []DaySettlement, budget float64) {
	prior := 0.0
	for i := range days {
		priorOverflow := math.Max(0, prior-budget)
		cumulative := prior + days[i].Spend
		days[i].Deduction = math.Max(0, cumulative-budget) - priorOverflow
		prior = cumulative
	}
}

// RoundTo rounds v to the given number of decimal places. Display-boundary
// helper; accumulation always runs at full precision.
func RoundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
