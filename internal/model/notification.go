package model

import "sort"

type Category string

const (
	CategoryChat      Category = "chat"
	CategoryGetQuote  Category = "get_quote"
	CategoryContactUs Category = "contact_us"
)

// Categories lists the badge buckets in the order the sidebar renders them.
var Categories = []Category{CategoryChat, CategoryGetQuote, CategoryContactUs}

var categoryLabels = map[Category]string{
	CategoryChat:      "Chats",
	CategoryGetQuote:  "Leads",
	CategoryContactUs: "Contact",
}

func (c Category) Known() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Label returns the dashboard link the category's badge is attached to.
// Unknown categories have no label.
func (c Category) Label() string {
	return categoryLabels[c]
}

func ParseCategory(s string) (Category, bool) {
	c := Category(s)
	return c, c.Known()
}

// Notification is one record of the "notifications" collection. ID is the
// collection key and is not part of the stored document.
type Notification struct {
	ID        string   `json:"id"`
	Type      Category `json:"type"`
	Title     string   `json:"title"`
	Desc      string   `json:"desc"`
	Unread    bool     `json:"unread"`
	CreatedAt int64    `json:"createdAt"`
}

// SortByRecency orders notifications by CreatedAt, newest first. Equal
// timestamps fall back to key order so the result never depends on the
// order the records arrived in.
func SortByRecency(notifications []Notification) {
	sort.SliceStable(notifications, func(i, j int) bool {
		if notifications[i].CreatedAt != notifications[j].CreatedAt {
			return notifications[i].CreatedAt > notifications[j].CreatedAt
		}
		return notifications[i].ID < notifications[j].ID
	})
}
