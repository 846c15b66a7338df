// Package aggregator derives the dashboard's badge counts and menu order
// from a notifications snapshot. It has no side effects.
package aggregator

import "github.com/taxpilot/dashboard-notifications/internal/model"

// Aggregate counts unread records in total and per known category and
// returns the records newest first. Records with an unknown type count
// toward Total only. The input slice is not modified, and its order has no
// effect on the result.
func Aggregate(records []model.Notification) model.Aggregate {
	agg := model.EmptyAggregate()

	ordered := make([]model.Notification, len(records))
	copy(ordered, records)
	model.SortByRecency(ordered)
	agg.Ordered = ordered

	for _, n := range records {
		if !n.Unread {
			continue
		}
		agg.Total++
		if n.Type.Known() {
			agg.ByCategory[n.Type]++
		}
	}

	return agg
}
