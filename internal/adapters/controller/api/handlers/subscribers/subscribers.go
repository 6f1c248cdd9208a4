package subscribers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Badsnus/outage-alerts/cmd/app"
	"github.com/Badsnus/outage-alerts/internal/adapters/controller/api/response"
	"github.com/Badsnus/outage-alerts/internal/adapters/database/postgres"
	"github.com/Badsnus/outage-alerts/internal/domain/common/errorz"
	"github.com/Badsnus/outage-alerts/internal/domain/dto"
	"github.com/Badsnus/outage-alerts/internal/domain/service"
	"github.com/Badsnus/outage-alerts/pkg/logger/types"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 16

type subscriberService interface {
	Register(ctx context.Context, in dto.SubscriberCreate) (*dto.Subscriber, error)
	SetSubscribed(ctx context.Context, email string, subscribed bool) (*dto.Subscriber, error)
}

type Handler struct {
	logger            *types.Logger
	subscriberService subscriberService
}

func New(a *app.App) *Handler {
	return NewHandler(a.Logger, service.NewSubscriberService(postgres.NewSubscriberStorage(a.DB)))
}

func NewHandler(logger *types.Logger, subscriberService subscriberService) *Handler {
	return &Handler{
		logger:            logger,
		subscriberService: subscriberService,
	}
}

func (h Handler) Setup(r chi.Router) {
	r.Post("/subscribers", h.Register)
	r.Put("/subscribers/subscription", h.Subscription)
}

func (h Handler) Register(w http.ResponseWriter, r *http.Request) {
	var in dto.SubscriberCreate
	if !decode(w, r, &in) {
		return
	}

	subscriber, err := h.subscriberService.Register(r.Context(), in)
	switch {
	case errors.Is(err, errorz.ErrInvalidInput):
		response.BadRequest(w, err.Error())
	case errors.Is(err, errorz.ErrSubscriberExists):
		response.Error(w, http.StatusConflict, "conflict", err.Error())
	case err != nil:
		h.logger.Errorf("failed to register subscriber: %v", err)
		response.Internal(w)
	default:
		h.logger.Infof("Registered subscriber %d", subscriber.ID)
		response.Created(w, subscriber)
	}
}

type subscriptionRequest struct {
	Email      string `json:"email"`
	Subscribed bool   `json:"subscribed"`
}

func (h Handler) Subscription(w http.ResponseWriter, r *http.Request) {
	var in subscriptionRequest
	if !decode(w, r, &in) {
		return
	}
	if in.Email == "" {
		response.BadRequest(w, "email is required")
		return
	}

	subscriber, err := h.subscriberService.SetSubscribed(r.Context(), in.Email, in.Subscribed)
	if err != nil {
		h.logger.Errorf("failed to update subscription: %v", err)
		response.Internal(w)
		return
	}
	if subscriber == nil {
		response.NotFound(w, "subscriber not found")
		return
	}
	response.JSON(w, subscriber)
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		response.BadRequest(w, "invalid JSON body")
		return false
	}
	return true
}
