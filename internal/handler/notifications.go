package handler

import (
	"errors"
	"net/http"

	"github.com/taxpilot/dashboard-notifications/internal/dto"
	"github.com/taxpilot/dashboard-notifications/internal/model"
	"github.com/taxpilot/dashboard-notifications/internal/reconciler"
	"github.com/taxpilot/dashboard-notifications/internal/service"
)

func (h *Handler) notificationsGet(admin *model.User, w http.ResponseWriter, r *http.Request) {
	agg, state, _ := h.services.Feed.Current()
	if state == service.FeedFailed {
		h.Respond(w, Resp{"error": errUnableToLoad.Error()}, http.StatusServiceUnavailable)
		return
	}

	resp := dto.NewAggregateResponse(agg)
	resp.State = state.String()
	h.Respond(w, resp, http.StatusOK)
}

func (h *Handler) notificationsMarkAllRead(admin *model.User, w http.ResponseWriter, r *http.Request) {
	marked, err := h.services.Feed.RequestMarkAllRead(r.Context())
	if err != nil {
		h.respondMarkError(w, err)
		return
	}

	if marked == 0 {
		h.Respond(w, nil, http.StatusNoContent)
		return
	}

	h.Respond(w, dto.MarkedResponse{Marked: marked}, http.StatusAccepted)
}

func (h *Handler) notificationsMarkRead(admin *model.User, w http.ResponseWriter, r *http.Request) {
	notificationID := r.PathValue("nId")
	if notificationID == "" {
		h.Respond(w, Resp{"error": errInvalidNotificationID.Error()}, http.StatusBadRequest)
		return
	}

	if err := h.services.Feed.RequestMarkOneRead(r.Context(), notificationID); err != nil {
		h.respondMarkError(w, err)
		return
	}

	// The store skips ids it does not hold, so no count is reported.
	h.Respond(w, nil, http.StatusAccepted)
}

func (h *Handler) respondMarkError(w http.ResponseWriter, err error) {
	if errors.Is(err, reconciler.ErrInvalidID) {
		h.Respond(w, Resp{"error": err.Error()}, http.StatusBadRequest)
		return
	}

	var writeErr *reconciler.WriteError
	if errors.As(err, &writeErr) {
		h.Respond(w, Resp{"error": errMarkReadFailed.Error()}, http.StatusBadGateway)
		return
	}

	h.Respond(w, Resp{"error": service.ErrInternal.Error()}, http.StatusInternalServerError)
}
