package export

import (
	"fmt"
	"io"
	"sort"

	"github.com/xuri/excelize/v2"

	"weeklykeeper/internal/core"
)

// SettlementWorkbook renders every non-ghost week of the state into an XLSX
// report: one summary sheet plus a per-day breakdown sheet.
func SettlementWorkbook(state core.AppState, policy core.Policy, w io.Writer) error {
	var keys []string
	for key, week := range state.Weeks {
		if week.IsGhost() {
			continue
		}
		keys = append(keys, key)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(keys)))

	f := excelize.NewFile()
	defer f.Close()

	summarySheet := "Weeks"
	index, err := f.NewSheet(summarySheet)
	if err != nil {
		return fmt.Errorf("create summary sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	daysSheet := "Days"
	if _, err := f.NewSheet(daysSheet); err != nil {
		return fmt.Errorf("create days sheet: %w", err)
	}

	summaryHeaders := []string{"Week Start", "Range", "Work Days", "Hours", "Wage", "Spend", "Budget", "Excess", "Net"}
	for i, header := range summaryHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(summarySheet, cell, header)
	}

	dayHeaders := []string{"Week Start", "Date", "Work Day", "Hours", "Wage", "Spend", "Entitlement", "Deduction", "Net"}
	for i, header := range dayHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(daysSheet, cell, header)
	}

	summaryRow := 2
	dayRow := 2
	for _, key := range keys {
		week := state.Weeks[key]
		s := core.Settle(week, policy)

		f.SetCellValue(summarySheet, fmt.Sprintf("A%d", summaryRow), s.WeekStartKey)
		f.SetCellValue(summarySheet, fmt.Sprintf("B%d", summaryRow), core.WeekRangeLabel(s.WeekStartKey))
		f.SetCellValue(summarySheet, fmt.Sprintf("C%d", summaryRow), week.WorkDayCount())
		f.SetCellValue(summarySheet, fmt.Sprintf("D%d", summaryRow), core.RoundTo(s.TotalHours, 2))
		f.SetCellValue(summarySheet, fmt.Sprintf("E%d", summaryRow), core.RoundTo(s.Wage, 2))
		f.SetCellValue(summarySheet, fmt.Sprintf("F%d", summaryRow), core.RoundTo(s.Spend, 2))
		f.SetCellValue(summarySheet, fmt.Sprintf("G%d", summaryRow), core.RoundTo(s.Budget, 2))
		f.SetCellValue(summarySheet, fmt.Sprintf("H%d", summaryRow), core.RoundTo(s.Excess, 2))
		f.SetCellValue(summarySheet, fmt.Sprintf("I%d", summaryRow), core.RoundTo(s.Net, 2))
		summaryRow++

		for _, day := range s.Days {
			f.SetCellValue(daysSheet, fmt.Sprintf("A%d", dayRow), s.WeekStartKey)
			f.SetCellValue(daysSheet, fmt.Sprintf("B%d", dayRow), day.DateKey)
			f.SetCellValue(daysSheet, fmt.Sprintf("C%d", dayRow), day.WorkDay)
			f.SetCellValue(daysSheet, fmt.Sprintf("D%d", dayRow), core.RoundTo(day.Hours, 2))
			f.SetCellValue(daysSheet, fmt.Sprintf("E%d", dayRow), core.RoundTo(day.Wage, 2))
			f.SetCellValue(daysSheet, fmt.Sprintf("F%d", dayRow), core.RoundTo(day.Spend, 2))
			f.SetCellValue(daysSheet, fmt.Sprintf("G%d", dayRow), core.RoundTo(day.Entitlement, 2))
			f.SetCellValue(daysSheet, fmt.Sprintf("H%d", dayRow), core.RoundTo(day.Deduction, 2))
			f.SetCellValue(daysSheet, fmt.Sprintf("I%d", dayRow), core.RoundTo(day.Net, 2))
			dayRow++
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}
