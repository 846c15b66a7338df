package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/taxpilot/dashboard-notifications/internal/dto"
	"github.com/taxpilot/dashboard-notifications/internal/model"
	"github.com/taxpilot/dashboard-notifications/internal/rabbitmq"
)

var (
	emitType  string
	emitTitle string
	emitDesc  string
)

var emitCmd = &cobra.Command{
	Use:   "emit",
	Short: "Publish a producer event, as the site would, on the queue of its type",
	Args:  cobra.NoArgs,
	RunE:  runEmit,
}

func init() {
	emitCmd.Flags().StringVar(&emitType, "type", string(model.CategoryChat), "notification type: chat, get_quote or contact_us")
	emitCmd.Flags().StringVar(&emitTitle, "title", "", "notification title")
	emitCmd.Flags().StringVar(&emitDesc, "desc", "", "notification description")
	emitCmd.MarkFlagRequired("title")
}

// eventFor builds the queue and body for an emitted event.
func eventFor(typ, title, desc string) (string, []byte, error) {
	category, ok := model.ParseCategory(typ)
	if !ok {
		return "", nil, fmt.Errorf("unknown notification type %q", typ)
	}
	if title == "" {
		return "", nil, errors.New("title is required")
	}

	queue, err := rabbitmq.QueueFor(category)
	if err != nil {
		return "", nil, err
	}

	body, err := json.Marshal(dto.MQNotificationCreated{
		Title: title,
		Desc:  desc,
	})
	if err != nil {
		return "", nil, err
	}
	return queue, body, nil
}

func runEmit(cmd *cobra.Command, args []string) error {
	queue, body, err := eventFor(emitType, emitTitle, emitDesc)
	if err != nil {
		return err
	}

	if cfg.RabbitMQURL == "" {
		return errors.New("RABBITMQ_CONN_STRING is not set")
	}
	mq, err := rabbitmq.New(cfg.RabbitMQURL)
	if err != nil {
		return fmt.Errorf("connecting to rabbitmq: %w", err)
	}
	defer mq.Close()

	if err := mq.Publish(cmd.Context(), queue, body); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Published %s to %s\n", emitTitle, queue)
	return nil
}
