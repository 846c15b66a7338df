package service

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/taxpilot/dashboard-notifications/internal/dto"
	"github.com/taxpilot/dashboard-notifications/internal/model"
	"github.com/taxpilot/dashboard-notifications/internal/rabbitmq"
	"github.com/taxpilot/dashboard-notifications/internal/repository/realtime"
	"go.uber.org/zap"
)

const MAX_TITLE_LENGTH = 255

// ingestService turns producer events (a chat message arrived, a quote or
// contact form was submitted) into unread records of the collection.
type ingestService struct {
	logger   *zap.Logger
	store    realtime.Store
	path     string
	rabbitmq *rabbitmq.MQConn
}

func newIngestService(logger *zap.Logger, store realtime.Store, path string, mq *rabbitmq.MQConn) *ingestService {
	return &ingestService{
		logger:   logger,
		store:    store,
		path:     path,
		rabbitmq: mq,
	}
}

func (s *ingestService) StartConsuming(ctx context.Context) error {
	for _, category := range model.Categories {
		queue, err := rabbitmq.QueueFor(category)
		if err != nil {
			return err
		}

		msgs, err := s.rabbitmq.Consume(queue)
		if err != nil {
			return err
		}

		go s.consume(ctx, category, queue, msgs)
	}

	return nil
}

func (s *ingestService) consume(ctx context.Context, category model.Category, queue string, msgs <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgs:
			if !ok {
				s.logger.Sugar().Errorf("stopped consuming queue(%s): delivery channel closed", queue)
				return
			}

			requeue, err := s.handle(ctx, category, msg.Body)
			if err != nil {
				s.logger.Sugar().Errorf("failed to ingest notification from queue(%s): %s", queue, err.Error())
				msg.Nack(false, requeue)
				continue
			}

			msg.Ack(false)
		}
	}
}

// handle stores one producer event. requeue reports whether the event may
// succeed on redelivery.
func (s *ingestService) handle(ctx context.Context, category model.Category, body []byte) (requeue bool, err error) {
	var created dto.MQNotificationCreated
	if err := json.Unmarshal(body, &created); err != nil {
		return false, err
	}

	if created.Title == "" || len(created.Title) > MAX_TITLE_LENGTH {
		return false, ErrInvalidNotification
	}

	fields := map[string]any{
		"type":   string(category),
		"title":  created.Title,
		"desc":   created.Desc,
		"unread": true,
	}
	if created.CreatedAt != nil {
		fields["createdAt"] = *created.CreatedAt
	}

	id, err := s.store.Create(ctx, s.path, fields)
	if err != nil {
		return true, err
	}

	s.logger.Sugar().Infof("Created %s notification(%s)", category, id)
	return false, nil
}
