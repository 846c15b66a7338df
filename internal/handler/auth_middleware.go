package handler

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	jwtmanager "github.com/morf1lo/jwt-pair-manager"
	"github.com/taxpilot/dashboard-notifications/internal/model"
)

const WS_TOKEN_QUERY_PARAM = "access_token"

type Authenticator interface {
	Authenticate(r *http.Request) (*model.User, error)
}

type jwtAuthenticator struct {
	secret []byte
}

func NewJWTAuthenticator(secret string) Authenticator {
	return &jwtAuthenticator{
		secret: []byte(secret),
	}
}

func bearerToken(r *http.Request) (string, error) {
	bearerHeader := r.Header.Get("Authorization")

	if !strings.HasPrefix(bearerHeader, "Bearer ") {
		return "", errNoToken
	}

	token := strings.TrimSpace(strings.TrimPrefix(bearerHeader, "Bearer "))
	if token == "" {
		return "", errNoToken
	}

	return token, nil
}

// requestToken reads the bearer token. Browsers cannot set headers on a
// websocket handshake, so upgrade requests may carry it as ?access_token=.
func requestToken(r *http.Request) (string, error) {
	token, err := bearerToken(r)
	if err == nil || !websocket.IsWebSocketUpgrade(r) {
		return token, err
	}

	token = strings.TrimSpace(r.URL.Query().Get(WS_TOKEN_QUERY_PARAM))
	if token == "" {
		return "", errNoToken
	}
	return token, nil
}

func (a *jwtAuthenticator) Authenticate(r *http.Request) (*model.User, error) {
	token, err := requestToken(r)
	if err != nil {
		return nil, err
	}

	claims, err := jwtmanager.DecodeJWT(token, a.secret)
	if err != nil {
		return nil, errInvalidJWT
	}

	userIDString, ok := claims["id"].(string)
	if !ok {
		return nil, errInvalidJWT
	}
	userID, err := uuid.Parse(userIDString)
	if err != nil {
		return nil, errInvalidUserID
	}

	role, _ := claims["role"].(string)

	return &model.User{
		ID:   userID,
		Role: strings.ToLower(role),
	}, nil
}

type adminHandlerFunc func(admin *model.User, w http.ResponseWriter, r *http.Request)

// adminMiddleware lets only authenticated dashboard admins through.
func (h *Handler) adminMiddleware(next adminHandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := h.auth.Authenticate(r)
		if err != nil {
			h.Respond(w, Resp{"error": err.Error()}, http.StatusUnauthorized)
			return
		}

		if !user.IsAdmin() {
			h.Respond(w, Resp{"error": errNotAdmin.Error()}, http.StatusForbidden)
			return
		}

		next(user, w, r)
	}
}
