package sheets

import (
	"context"

	"weeklykeeper/internal/core"
)

// Ports for outbound adapters.
type (
	// SettlementWriter mirrors weekly settlement results to an external sheet.
	SettlementWriter interface {
		AppendWeek(ctx context.Context, week core.WeekData, s core.Settlement) (rowRef string, err error)
	}
)
