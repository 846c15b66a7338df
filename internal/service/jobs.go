package service

import (
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/taxpilot/dashboard-notifications/internal/model"
	"go.uber.org/zap"
)

type DigestMailer interface {
	SendUnreadDigest(agg model.Aggregate) error
}

type jobService struct {
	logger    *zap.Logger
	feed      Feed
	mailer    DigestMailer
	scheduler gocron.Scheduler
	interval  time.Duration
}

func newJobService(logger *zap.Logger, feed Feed, mailer DigestMailer, interval time.Duration) (*jobService, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	return &jobService{
		logger:    logger,
		feed:      feed,
		mailer:    mailer,
		scheduler: scheduler,
		interval:  interval,
	}, nil
}

func (s *jobService) digest() {
	agg, state, err := s.feed.Current()
	if state != FeedLive {
		if err != nil {
			s.logger.Sugar().Warnf("skipping unread digest, feed is %s: %s", state, err.Error())
		} else {
			s.logger.Sugar().Warnf("skipping unread digest, feed is %s", state)
		}
		return
	}

	s.logger.Sugar().Infof(
		"unread notifications: total=%d chats=%d leads=%d contact=%d",
		agg.Total,
		agg.ByCategory[model.CategoryChat],
		agg.ByCategory[model.CategoryGetQuote],
		agg.ByCategory[model.CategoryContactUs],
	)

	if s.mailer == nil {
		return
	}
	if err := s.mailer.SendUnreadDigest(agg); err != nil {
		s.logger.Sugar().Errorf("failed to send unread digest: %s", err.Error())
	}
}

func (s *jobService) newDigestJob() error {
	_, err := s.scheduler.NewJob(gocron.DurationJob(s.interval), gocron.NewTask(s.digest))
	return err
}

func (s *jobService) StartJobs() error {
	if err := s.newDigestJob(); err != nil {
		return err
	}

	s.scheduler.Start()
	return nil
}

func (s *jobService) Shutdown() error {
	return s.scheduler.Shutdown()
}
