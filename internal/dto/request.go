package dto

import "github.com/taxpilot/dashboard-notifications/internal/model"

const (
	WS_ACTION_OPEN_MENU     = "open_menu"
	WS_ACTION_CLOSE_MENU    = "close_menu"
	WS_ACTION_MARK_ALL_READ = "mark_all_read"
	WS_ACTION_MARK_READ     = "mark_read"
)

const (
	WS_EVENT_AGGREGATE = "aggregate"
	WS_EVENT_MENU      = "menu"
	WS_EVENT_MARKED    = "marked"
	WS_EVENT_ERROR     = "error"
)

// WSRequest is a frame sent by the dashboard over the websocket.
type WSRequest struct {
	Action string `json:"action"`
	ID     string `json:"id,omitempty"`
}

// WSEvent is a frame pushed to the dashboard. Only the fields of the event
// kind are set.
type WSEvent struct {
	Event     string             `json:"event"`
	Aggregate *AggregateResponse `json:"aggregate,omitempty"`
	Menu      string             `json:"menu,omitempty"`
	Marked    *int               `json:"marked,omitempty"`
	ID        string             `json:"id,omitempty"`
	Error     string             `json:"error,omitempty"`
}

type AggregateResponse struct {
	State      string                 `json:"state,omitempty"`
	Version    uint64                 `json:"version"`
	Total      int                    `json:"total"`
	ByCategory map[model.Category]int `json:"byCategory"`
	Badges     map[string]int         `json:"badges"`
	Ordered    []model.Notification   `json:"ordered"`
}

func NewAggregateResponse(agg model.Aggregate) *AggregateResponse {
	return &AggregateResponse{
		Version:    agg.Version,
		Total:      agg.Total,
		ByCategory: agg.ByCategory,
		Badges:     agg.Badges(),
		Ordered:    agg.Ordered,
	}
}

type MarkedResponse struct {
	Marked int `json:"marked"`
}
