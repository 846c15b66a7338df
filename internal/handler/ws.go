package handler

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/taxpilot/dashboard-notifications/internal/dto"
	"github.com/taxpilot/dashboard-notifications/internal/model"
	"github.com/taxpilot/dashboard-notifications/internal/service"
	"go.uber.org/zap"
)

const (
	WS_WRITE_TIMEOUT = 10 * time.Second
	WS_OUTBOX_SIZE   = 16
)

func (h *Handler) notificationsWS(admin *model.User, w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Sugar().Warnf("failed to upgrade admin(%s)'s connection: %s", admin.ID.String(), err.Error())
		return
	}

	newWSSession(h.logger, conn, h.services.Feed).serve()
}

// wsSession is one open dashboard. It owns the session's menu and
// remembers the last aggregate written to the client: that is the snapshot
// "mark all read" applies to.
type wsSession struct {
	logger *zap.Logger
	conn   *websocket.Conn
	feed   service.Feed
	menu   *service.Menu

	updates    chan model.Aggregate
	outbox     chan dto.WSEvent
	writerDone chan struct{}

	mu      sync.Mutex
	offered uint64
	seen    []model.Notification
}

func newWSSession(logger *zap.Logger, conn *websocket.Conn, feed service.Feed) *wsSession {
	return &wsSession{
		logger:     logger,
		conn:       conn,
		feed:       feed,
		menu:       service.NewMenu(feed),
		updates:    make(chan model.Aggregate, 1),
		outbox:     make(chan dto.WSEvent, WS_OUTBOX_SIZE),
		writerDone: make(chan struct{}),
	}
}

func (s *wsSession) serve() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	remove := s.feed.OnAggregateChange(s.offer)
	defer remove()

	agg, state, _ := s.feed.Current()
	switch state {
	case service.FeedLive:
		s.offer(agg)
	case service.FeedFailed:
		s.send(dto.WSEvent{Event: dto.WS_EVENT_ERROR, Error: errUnableToLoad.Error()})
	}

	go s.writeLoop(ctx)
	s.readLoop(ctx)

	cancel()
	<-s.writerDone
	s.conn.Close()
}

// offer queues agg for the client, replacing an aggregate that has not been
// written yet. Aggregates older than one already offered are dropped.
func (s *wsSession) offer(agg model.Aggregate) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if agg.Version <= s.offered {
		return
	}
	s.offered = agg.Version

	for {
		select {
		case s.updates <- agg:
			return
		default:
		}
		select {
		case <-s.updates:
		default:
		}
	}
}

func (s *wsSession) send(ev dto.WSEvent) {
	select {
	case s.outbox <- ev:
	case <-s.writerDone:
	}
}

func (s *wsSession) setSeen(records []model.Notification) {
	s.mu.Lock()
	s.seen = records
	s.mu.Unlock()
}

func (s *wsSession) lastSeen() []model.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.seen
}

func (s *wsSession) write(ev dto.WSEvent) error {
	s.conn.SetWriteDeadline(time.Now().Add(WS_WRITE_TIMEOUT))
	return s.conn.WriteJSON(ev)
}

func (s *wsSession) writeLoop(ctx context.Context) {
	defer close(s.writerDone)

	for {
		var err error
		select {
		case <-ctx.Done():
			return
		case agg := <-s.updates:
			s.setSeen(agg.Ordered)
			err = s.write(dto.WSEvent{Event: dto.WS_EVENT_AGGREGATE, Aggregate: dto.NewAggregateResponse(agg)})
		case ev := <-s.outbox:
			err = s.write(ev)
		}

		if err != nil {
			s.logger.Sugar().Warnf("failed to write to dashboard connection: %s", err.Error())
			// Unblocks readLoop.
			s.conn.Close()
			return
		}
	}
}

func (s *wsSession) readLoop(ctx context.Context) {
	for {
		var req dto.WSRequest
		if err := s.conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Sugar().Debugf("dashboard connection closed: %s", err.Error())
			}
			return
		}

		s.handle(ctx, req)
	}
}

func (s *wsSession) handle(ctx context.Context, req dto.WSRequest) {
	switch req.Action {
	case dto.WS_ACTION_OPEN_MENU:
		s.menu.Open()
		s.send(dto.WSEvent{Event: dto.WS_EVENT_MENU, Menu: s.menu.State().String()})

	case dto.WS_ACTION_CLOSE_MENU:
		s.menu.Close()
		s.send(dto.WSEvent{Event: dto.WS_EVENT_MENU, Menu: s.menu.State().String()})

	case dto.WS_ACTION_MARK_ALL_READ:
		marked, err := s.menu.MarkAllRead(ctx, s.lastSeen())
		if err != nil {
			s.sendError(err)
			return
		}
		s.send(dto.WSEvent{Event: dto.WS_EVENT_MARKED, Marked: &marked})

	case dto.WS_ACTION_MARK_READ:
		if req.ID == "" {
			s.sendError(errInvalidNotificationID)
			return
		}
		if err := s.feed.RequestMarkOneRead(ctx, req.ID); err != nil {
			s.sendError(err)
			return
		}
		s.send(dto.WSEvent{Event: dto.WS_EVENT_MARKED, ID: req.ID})

	default:
		s.sendError(errUnknownWSAction)
	}
}

func (s *wsSession) sendError(err error) {
	msg := err.Error()
	if !errors.Is(err, service.ErrMenuClosed) && !errors.Is(err, errInvalidNotificationID) && !errors.Is(err, errUnknownWSAction) {
		msg = errMarkReadFailed.Error()
	}
	s.send(dto.WSEvent{Event: dto.WS_EVENT_ERROR, Error: msg})
}
