package service

import (
	"context"
	"sync"

	"github.com/taxpilot/dashboard-notifications/internal/model"
)

type MenuState int

const (
	MenuClosed MenuState = iota
	MenuOpen
)

func (s MenuState) String() string {
	if s == MenuOpen {
		return "open"
	}
	return "closed"
}

type Marker interface {
	MarkAllReadSeen(ctx context.Context, seen []model.Notification) (int, error)
}

// Menu is the notification dropdown of one dashboard session. It starts
// closed; "mark all read" is only reachable while it is open and leaves it
// open.
type Menu struct {
	marker Marker

	mu    sync.Mutex
	state MenuState
}

func NewMenu(marker Marker) *Menu {
	return &Menu{
		marker: marker,
		state:  MenuClosed,
	}
}

func (m *Menu) State() MenuState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Menu) Open() {
	m.mu.Lock()
	m.state = MenuOpen
	m.mu.Unlock()
}

func (m *Menu) Close() {
	m.mu.Lock()
	m.state = MenuClosed
	m.mu.Unlock()
}

func (m *Menu) MarkAllRead(ctx context.Context, seen []model.Notification) (int, error) {
	if m.State() != MenuOpen {
		return 0, ErrMenuClosed
	}
	return m.marker.MarkAllReadSeen(ctx, seen)
}
