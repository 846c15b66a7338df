package model

// Aggregate is the dashboard view of one snapshot. Version increases with
// every snapshot the feed processes; zero means no snapshot yet.
type Aggregate struct {
	Version    uint64           `json:"version"`
	Total      int              `json:"total"`
	ByCategory map[Category]int `json:"byCategory"`
	Ordered    []Notification   `json:"ordered"`
}

func EmptyAggregate() Aggregate {
	byCategory := make(map[Category]int, len(Categories))
	for _, c := range Categories {
		byCategory[c] = 0
	}
	return Aggregate{
		ByCategory: byCategory,
		Ordered:    []Notification{},
	}
}

// Badges keys the per-category unread counts by their dashboard label.
func (a Aggregate) Badges() map[string]int {
	badges := make(map[string]int, len(Categories))
	for _, c := range Categories {
		badges[c.Label()] = a.ByCategory[c]
	}
	return badges
}

func (a Aggregate) UnreadIDs() []string {
	var ids []string
	for _, n := range a.Ordered {
		if n.Unread {
			ids = append(ids, n.ID)
		}
	}
	return ids
}
