package dto

// MQNotificationCreated is published by the site's producers (chat widget,
// quote and contact forms) on the queue of the notification's type.
type MQNotificationCreated struct {
	Title     string `json:"title"`
	Desc      string `json:"desc"`
	CreatedAt *int64 `json:"createdAt,omitempty"`
}
