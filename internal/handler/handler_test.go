package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/taxpilot/dashboard-notifications/internal/dto"
	"github.com/taxpilot/dashboard-notifications/internal/model"
	"github.com/taxpilot/dashboard-notifications/internal/reconciler"
	"github.com/taxpilot/dashboard-notifications/internal/service"
	"go.uber.org/zap"
)

type fakeAuth struct {
	user *model.User
	err  error
}

func (a *fakeAuth) Authenticate(r *http.Request) (*model.User, error) {
	return a.user, a.err
}

func adminAuth() *fakeAuth {
	return &fakeAuth{user: &model.User{ID: uuid.New(), Role: model.ROLE_ADMIN}}
}

type fakeFeed struct {
	agg   model.Aggregate
	state service.FeedState

	marked    int
	markErr   error
	markedIDs []string
}

func (f *fakeFeed) Start(ctx context.Context) error { return nil }
func (f *fakeFeed) Stop()                           {}

func (f *fakeFeed) Current() (model.Aggregate, service.FeedState, error) {
	return f.agg, f.state, nil
}

func (f *fakeFeed) OnAggregateChange(handler func(model.Aggregate)) func() {
	return func() {}
}

func (f *fakeFeed) RequestMarkAllRead(ctx context.Context) (int, error) {
	return f.marked, f.markErr
}

func (f *fakeFeed) MarkAllReadSeen(ctx context.Context, seen []model.Notification) (int, error) {
	return f.marked, f.markErr
}

func (f *fakeFeed) RequestMarkOneRead(ctx context.Context, id string) error {
	if f.markErr != nil {
		return f.markErr
	}
	f.markedIDs = append(f.markedIDs, id)
	return nil
}

func newTestHandler(feed service.Feed, auth Authenticator) http.Handler {
	return New(zap.NewNop(), &service.Service{Feed: feed}, auth).SetupRoutes()
}

func do(t *testing.T, h http.Handler, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	h := newTestHandler(&fakeFeed{}, &fakeAuth{err: errNoToken})

	rec := do(t, h, http.MethodGet, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestAdminMiddleware(t *testing.T) {
	tests := []struct {
		name string
		auth *fakeAuth
		code int
	}{
		{name: "no token", auth: &fakeAuth{err: errNoToken}, code: http.StatusUnauthorized},
		{name: "not admin", auth: &fakeAuth{user: &model.User{ID: uuid.New(), Role: "user"}}, code: http.StatusForbidden},
		{name: "admin", auth: adminAuth(), code: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(&fakeFeed{agg: model.EmptyAggregate(), state: service.FeedLive}, tt.auth)
			rec := do(t, h, http.MethodGet, "/api/v1/notifications")
			assert.Equal(t, tt.code, rec.Code)
		})
	}
}

func TestNotificationsGet(t *testing.T) {
	agg := model.Aggregate{
		Version: 3,
		Total:   2,
		ByCategory: map[model.Category]int{
			model.CategoryChat:      1,
			model.CategoryGetQuote:  1,
			model.CategoryContactUs: 0,
		},
		Ordered: []model.Notification{
			{ID: "b", Type: model.CategoryChat, Title: "hi", Unread: true, CreatedAt: 20},
			{ID: "a", Type: model.CategoryGetQuote, Title: "quote", Unread: true, CreatedAt: 10},
		},
	}
	h := newTestHandler(&fakeFeed{agg: agg, state: service.FeedLive}, adminAuth())

	rec := do(t, h, http.MethodGet, "/api/v1/notifications")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp dto.AggregateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "live", resp.State)
	assert.Equal(t, uint64(3), resp.Version)
	assert.Equal(t, 2, resp.Total)
	assert.Equal(t, 1, resp.ByCategory[model.CategoryChat])
	assert.Equal(t, 1, resp.Badges["Leads"])
	require.Len(t, resp.Ordered, 2)
	assert.Equal(t, "b", resp.Ordered[0].ID)
}

func TestNotificationsGetFailedFeed(t *testing.T) {
	h := newTestHandler(&fakeFeed{agg: model.EmptyAggregate(), state: service.FeedFailed}, adminAuth())

	rec := do(t, h, http.MethodGet, "/api/v1/notifications")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"error":"unable to load notifications"}`, rec.Body.String())
}

func TestNotificationsMarkAllRead(t *testing.T) {
	tests := []struct {
		name string
		feed *fakeFeed
		code int
		body string
	}{
		{name: "marked", feed: &fakeFeed{marked: 2}, code: http.StatusAccepted, body: `{"marked":2}`},
		{name: "nothing unread", feed: &fakeFeed{}, code: http.StatusNoContent},
		{
			name: "write failed",
			feed: &fakeFeed{markErr: &reconciler.WriteError{Paths: 1, Err: errors.New("down")}},
			code: http.StatusBadGateway,
			body: `{"error":"failed to mark notifications as read"}`,
		},
		{name: "unexpected", feed: &fakeFeed{markErr: errors.New("boom")}, code: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(tt.feed, adminAuth())
			rec := do(t, h, http.MethodPost, "/api/v1/notifications/read")
			assert.Equal(t, tt.code, rec.Code)
			if tt.body != "" {
				assert.JSONEq(t, tt.body, rec.Body.String())
			}
		})
	}
}

func TestNotificationsMarkRead(t *testing.T) {
	feed := &fakeFeed{}
	h := newTestHandler(feed, adminAuth())

	rec := do(t, h, http.MethodPost, "/api/v1/notifications/n1/read")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Empty(t, rec.Body.String())
	assert.Equal(t, []string{"n1"}, feed.markedIDs)
}

func TestNotificationsMarkReadInvalidID(t *testing.T) {
	h := newTestHandler(&fakeFeed{markErr: reconciler.ErrInvalidID}, adminAuth())

	rec := do(t, h, http.MethodPost, "/api/v1/notifications/a.b/read")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		token  string
		err    error
	}{
		{header: "", err: errNoToken},
		{header: "Basic abc", err: errNoToken},
		{header: "Bearer ", err: errNoToken},
		{header: "Bearer abc.def", token: "abc.def"},
	}

	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}

		token, err := bearerToken(req)
		if tt.err != nil {
			assert.ErrorIs(t, err, tt.err, tt.header)
			continue
		}
		require.NoError(t, err)
		assert.Equal(t, tt.token, token)
	}
}

func TestJWTAuthenticatorRejectsGarbage(t *testing.T) {
	auth := NewJWTAuthenticator("secret")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")

	_, err := auth.Authenticate(req)
	assert.ErrorIs(t, err, errInvalidJWT)
}

func TestJWTAuthenticator(t *testing.T) {
	secret := "secret"
	userID := uuid.New()
	token := signToken(t, secret, userID, "Admin")

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)

	user, err := NewJWTAuthenticator(secret).Authenticate(req)
	require.NoError(t, err)
	assert.Equal(t, userID, user.ID)
	assert.True(t, user.IsAdmin())

	_, err = NewJWTAuthenticator("other").Authenticate(req)
	assert.ErrorIs(t, err, errInvalidJWT)
}

func signToken(t *testing.T, secret string, userID uuid.UUID, role string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":   userID.String(),
		"role": role,
		"exp":  time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestRequestTokenFromQueryOnlyForUpgrades(t *testing.T) {
	upgrade := func(req *http.Request) {
		req.Header.Set("Connection", "Upgrade")
		req.Header.Set("Upgrade", "websocket")
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/notifications/ws?access_token=abc", nil)
	upgrade(req)
	token, err := requestToken(req)
	require.NoError(t, err)
	assert.Equal(t, "abc", token)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/notifications/ws?access_token=abc", nil)
	upgrade(req)
	req.Header.Set("Authorization", "Bearer from-header")
	token, err = requestToken(req)
	require.NoError(t, err)
	assert.Equal(t, "from-header", token)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/notifications/ws", nil)
	upgrade(req)
	_, err = requestToken(req)
	assert.ErrorIs(t, err, errNoToken)

	req = httptest.NewRequest(http.MethodGet, "/api/v1/notifications?access_token=abc", nil)
	_, err = requestToken(req)
	assert.ErrorIs(t, err, errNoToken)
}
