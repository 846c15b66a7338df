package handler

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/taxpilot/dashboard-notifications/internal/service"
	"go.uber.org/zap"
)

type Resp map[string]interface{}

type Handler struct {
	logger   *zap.Logger
	services *service.Service
	auth     Authenticator
	upgrader websocket.Upgrader
}

func New(logger *zap.Logger, services *service.Service, auth Authenticator) *Handler {
	return &Handler{
		logger:   logger,
		services: services,
		auth:     auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

func (h *Handler) SetupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		h.Respond(w, Resp{"status": "ok"}, http.StatusOK)
	})

	// GET
	mux.HandleFunc("GET /api/v1/notifications", h.adminMiddleware(h.notificationsGet))
	mux.HandleFunc("GET /api/v1/notifications/ws", h.adminMiddleware(h.notificationsWS))

	// POST
	mux.HandleFunc("POST /api/v1/notifications/read", h.adminMiddleware(h.notificationsMarkAllRead))
	mux.HandleFunc("POST /api/v1/notifications/{nId}/read", h.adminMiddleware(h.notificationsMarkRead))

	return mux
}

func (h *Handler) Respond(w http.ResponseWriter, resp any, statusCode int) {
	if resp == nil {
		w.WriteHeader(statusCode)
		return
	}

	respJSON, err := json.Marshal(resp)
	if err != nil {
		h.logger.Sugar().Errorf("failed to encode response: %s", err.Error())
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(respJSON)
}
