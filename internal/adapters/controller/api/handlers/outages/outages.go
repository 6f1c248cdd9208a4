package outages

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/Badsnus/outage-alerts/cmd/app"
	"github.com/Badsnus/outage-alerts/internal/adapters/controller/api/response"
	"github.com/Badsnus/outage-alerts/internal/adapters/database/postgres"
	"github.com/Badsnus/outage-alerts/internal/domain/common/errorz"
	"github.com/Badsnus/outage-alerts/internal/domain/dto"
	"github.com/Badsnus/outage-alerts/internal/domain/service"
	"github.com/Badsnus/outage-alerts/internal/domain/utils/geo"
	"github.com/Badsnus/outage-alerts/pkg/logger/types"
	"github.com/go-chi/chi/v5"
)

const (
	StatusAlert = "ALERT"
	StatusClear = "CLEAR"
	StatusError = "ERROR"
)

type outageService interface {
	List(ctx context.Context) ([]dto.Outage, error)
	CheckNearby(ctx context.Context, p geo.Point) ([]dto.NearbyOutage, error)
	ThresholdKm() float64
}

type Handler struct {
	logger        *types.Logger
	outageService outageService
}

func New(a *app.App) *Handler {
	return NewHandler(a.Logger, service.NewOutageService(
		postgres.NewOutageStorage(a.DB),
		postgres.NewRunStorage(a.DB),
		a.Settings.Pipeline.ThresholdKm,
	))
}

func NewHandler(logger *types.Logger, outageService outageService) *Handler {
	return &Handler{
		logger:        logger,
		outageService: outageService,
	}
}

func (h Handler) Setup(r chi.Router) {
	r.Get("/outages", h.List)
	r.Get("/check_outage", h.Check)
}

type checkResponse struct {
	Status  string             `json:"status"`
	Message string             `json:"message"`
	Outages []dto.NearbyOutage `json:"outages,omitempty"`
}

// List returns the stored outages as a bare array.
func (h Handler) List(w http.ResponseWriter, r *http.Request) {
	outages, err := h.outageService.List(r.Context())
	if err != nil {
		h.logger.Errorf("failed to list outages: %v", err)
		response.Raw(w, http.StatusInternalServerError, map[string]string{"error": "Couldn't retrieve outage data."})
		return
	}
	response.Raw(w, http.StatusOK, outages)
}

// Check reports the outages within the alert threshold of ?lat=&lon=.
func (h Handler) Check(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	rawLat, rawLon := strings.TrimSpace(query.Get("lat")), strings.TrimSpace(query.Get("lon"))
	if rawLat == "" || rawLon == "" {
		checkError(w, http.StatusBadRequest, "Missing latitude (lat) or longitude (lon) query parameters.")
		return
	}

	lat, errLat := strconv.ParseFloat(rawLat, 64)
	lon, errLon := strconv.ParseFloat(rawLon, 64)
	if errLat != nil || errLon != nil {
		checkError(w, http.StatusBadRequest, "Latitude and longitude must be valid numbers.")
		return
	}

	nearby, err := h.outageService.CheckNearby(r.Context(), geo.Point{Lat: lat, Lon: lon})
	if errors.Is(err, errorz.ErrInvalidPoint) {
		checkError(w, http.StatusBadRequest, "Latitude must be within [-90, 90] and longitude within [-180, 180].")
		return
	}
	if err != nil {
		h.logger.Errorf("failed to check outages near (%g, %g): %v", lat, lon, err)
		checkError(w, http.StatusInternalServerError, "Internal error during outage check.")
		return
	}

	threshold := strconv.FormatFloat(h.outageService.ThresholdKm(), 'f', -1, 64)
	if len(nearby) == 0 {
		response.Raw(w, http.StatusOK, checkResponse{
			Status:  StatusClear,
			Message: "No scheduled outages found near your location.",
		})
		return
	}
	response.Raw(w, http.StatusOK, checkResponse{
		Status:  StatusAlert,
		Message: fmt.Sprintf("Found %d scheduled outage(s) within %s km of your location.", len(nearby), threshold),
		Outages: nearby,
	})
}

func checkError(w http.ResponseWriter, status int, message string) {
	response.Raw(w, status, checkResponse{Status: StatusError, Message: message})
}
