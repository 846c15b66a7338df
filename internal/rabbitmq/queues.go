package rabbitmq

import (
	"fmt"

	"github.com/taxpilot/dashboard-notifications/internal/model"
)

const (
	CHAT_NOTIFICATION_QUEUE       = "notifications.chat"
	GET_QUOTE_NOTIFICATION_QUEUE  = "notifications.get_quote"
	CONTACT_US_NOTIFICATION_QUEUE = "notifications.contact_us"
)

var categoryQueues = map[model.Category]string{
	model.CategoryChat:      CHAT_NOTIFICATION_QUEUE,
	model.CategoryGetQuote:  GET_QUOTE_NOTIFICATION_QUEUE,
	model.CategoryContactUs: CONTACT_US_NOTIFICATION_QUEUE,
}

// QueueFor returns the queue producers publish new notifications of
// category c to.
func QueueFor(c model.Category) (string, error) {
	queue, ok := categoryQueues[c]
	if !ok {
		return "", fmt.Errorf("no queue for notification type %q", c)
	}
	return queue, nil
}
