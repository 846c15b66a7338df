package service

import (
	"context"
	"time"

	"github.com/taxpilot/dashboard-notifications/internal/mailer"
	"github.com/taxpilot/dashboard-notifications/internal/model"
	"github.com/taxpilot/dashboard-notifications/internal/rabbitmq"
	"github.com/taxpilot/dashboard-notifications/internal/reconciler"
	"github.com/taxpilot/dashboard-notifications/internal/repository/realtime"
	"github.com/taxpilot/dashboard-notifications/internal/watcher"
	"go.uber.org/zap"
)

type Feed interface {
	Start(ctx context.Context) error
	Stop()
	Current() (model.Aggregate, FeedState, error)
	OnAggregateChange(handler func(model.Aggregate)) (remove func())
	RequestMarkAllRead(ctx context.Context) (int, error)
	MarkAllReadSeen(ctx context.Context, seen []model.Notification) (int, error)
	RequestMarkOneRead(ctx context.Context, id string) error
}

type Ingest interface {
	StartConsuming(ctx context.Context) error
}

type Jobs interface {
	StartJobs() error
	Shutdown() error
}

type Service struct {
	Feed   Feed
	Ingest Ingest
	Jobs   Jobs
}

type Options struct {
	Path           string
	RabbitMQ       *rabbitmq.MQConn
	Mailer         *mailer.Mailer
	DigestInterval time.Duration
}

// NewFeed builds a feed over the collection at path. It does nothing until
// Start is called.
func NewFeed(logger *zap.Logger, store realtime.Store, path string) Feed {
	w := watcher.New(logger, store, path)
	return newFeedService(logger, w, reconciler.New(logger, store, w.Path()))
}

func New(logger *zap.Logger, store realtime.Store, opts Options) (*Service, error) {
	if opts.Path == "" {
		opts.Path = watcher.DEFAULT_PATH
	}
	feed := NewFeed(logger, store, opts.Path)

	var digest DigestMailer
	if opts.Mailer != nil {
		digest = opts.Mailer
	}
	jobs, err := newJobService(logger, feed, digest, opts.DigestInterval)
	if err != nil {
		return nil, err
	}

	s := &Service{
		Feed: feed,
		Jobs: jobs,
	}
	if opts.RabbitMQ != nil {
		s.Ingest = newIngestService(logger, store, opts.Path, opts.RabbitMQ)
	}

	return s, nil
}
