package console

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/richxcame/scooter-ride/internal/ridehistory"
	"github.com/richxcame/scooter-ride/internal/rides"
	"github.com/richxcame/scooter-ride/internal/zones"
	"github.com/richxcame/scooter-ride/pkg/common"
	"github.com/richxcame/scooter-ride/pkg/models"
	"github.com/richxcame/scooter-ride/pkg/tracing"
	"github.com/richxcame/scooter-ride/pkg/validation"
)

// RideSession is the part of rides.Session the console drives.
type RideSession interface {
	StartRide(ctx context.Context, scooterID string) (*models.Ride, error)
	EndRide(ctx context.Context) (*models.Ride, error)
	ClearLastCompleted()
	State() rides.SessionState
}

// ZoneTracker is the part of zones.Tracker the console drives.
type ZoneTracker interface {
	State() zones.TrackerState
	ForceRefresh() bool
	OnLocationUpdate(coord models.Coordinate)
}

// HistoryFetcher lists past rides.
type HistoryFetcher interface {
	Fetch(ctx context.Context, filter ridehistory.Filter) ([]models.Ride, error)
}

// ZonesView is the tracker snapshot plus the local catalog's answer for the
// last known position.
type ZonesView struct {
	zones.TrackerState
	LocalZone *models.PolygonZone `json:"local_zone,omitempty"`
}

// Handler exposes ride and zone state to an inspection UI.
type Handler struct {
	session RideSession
	tracker ZoneTracker
	history HistoryFetcher
	catalog *zones.Catalog
}

// NewHandler creates a console handler. catalog may be nil.
func NewHandler(session RideSession, tracker ZoneTracker, history HistoryFetcher, catalog *zones.Catalog) *Handler {
	return &Handler{
		session: session,
		tracker: tracker,
		history: history,
		catalog: catalog,
	}
}

// GetRide returns the session snapshot.
func (h *Handler) GetRide(c *gin.Context) {
	common.SuccessResponse(c, h.session.State())
}

// StartRide unlocks the scooter in the path.
func (h *Handler) StartRide(c *gin.Context) {
	scooterID := strings.TrimSpace(c.Param("scooterId"))
	if !common.ValidateNotEmpty(c, scooterID, "scooter id") {
		return
	}

	ride, err := h.session.StartRide(c.Request.Context(), scooterID)
	if err != nil {
		_ = c.Error(err)
		common.HandleServiceError(c, err, common.MsgStartFailed)
		return
	}
	tracing.AddSpanAttributes(c.Request.Context(),
		tracing.RideIDKey.String(ride.ID),
		tracing.ScooterIDKey.String(ride.ScooterID),
	)

	c.JSON(http.StatusCreated, common.Response{Success: true, Data: ride})
}

// EndRide ends the active ride. Ending with no ride is not an error.
func (h *Handler) EndRide(c *gin.Context) {
	ride, err := h.session.EndRide(c.Request.Context())
	if err != nil {
		_ = c.Error(err)
		common.HandleServiceError(c, err, common.MsgEndFailed)
		return
	}
	if ride == nil {
		c.Status(http.StatusNoContent)
		return
	}
	tracing.AddSpanAttributes(c.Request.Context(),
		tracing.RideIDKey.String(ride.ID),
		tracing.ScooterIDKey.String(ride.ScooterID),
		tracing.FareAmountKey.Float64(ride.Cost),
		tracing.DurationKey.Int(ride.DurationSeconds),
	)

	common.SuccessResponse(c, ride)
}

// ClearLastCompleted dismisses the ride summary.
func (h *Handler) ClearLastCompleted(c *gin.Context) {
	h.session.ClearLastCompleted()
	c.Status(http.StatusNoContent)
}

// GetZones returns the tracker state.
func (h *Handler) GetZones(c *gin.Context) {
	view := ZonesView{TrackerState: h.tracker.State()}
	if h.catalog != nil && view.LastKnown != nil {
		view.LocalZone = h.catalog.Resolve(*view.LastKnown)
	}
	common.SuccessResponse(c, view)
}

// RefreshZones forces a zone check at the last known position.
func (h *Handler) RefreshZones(c *gin.Context) {
	if !h.tracker.ForceRefresh() {
		common.ErrorResponse(c, http.StatusConflict, "no known location yet")
		return
	}
	c.Status(http.StatusAccepted)
}

type locationRequest struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// ReportLocation feeds a manual fix to the tracker, as a GPS update would.
func (h *Handler) ReportLocation(c *gin.Context) {
	var req locationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.AppErrorResponse(c, common.NewInvalidInputError("invalid location body"))
		return
	}

	coord := models.Coordinate{Latitude: req.Latitude, Longitude: req.Longitude}
	if err := validation.ValidateCoordinate(coord); err != nil {
		common.AppErrorResponse(c, common.NewInvalidInputError(err.Error()))
		return
	}

	h.tracker.OnLocationUpdate(coord)
	c.Status(http.StatusAccepted)
}

// GetHistory lists past rides, optionally filtered by status.
func (h *Handler) GetHistory(c *gin.Context) {
	var filter ridehistory.Filter

	if raw := c.Query("status"); raw != "" {
		status, ok := models.ParseRideStatus(raw)
		if !ok {
			common.AppErrorResponse(c, common.NewInvalidInputError("unknown ride status"))
			return
		}
		filter.Status = status
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			common.AppErrorResponse(c, common.NewInvalidInputError("limit must be a positive integer"))
			return
		}
		filter.Limit = limit
	}

	list, err := h.history.Fetch(c.Request.Context(), filter)
	if err != nil {
		_ = c.Error(err)
		common.HandleServiceError(c, err, "failed to fetch ride history")
		return
	}

	common.SuccessResponseWithMeta(c, list, &common.Meta{Limit: filter.Limit, Total: len(list)})
}

// Health reports liveness together with the current phase.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"phase":    h.session.State().Phase,
		"watching": h.tracker.State().Watching,
	})
}

// RegisterRoutes registers console routes
func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", h.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api/v1")
	{
		api.GET("/ride", h.GetRide)
		api.POST("/ride/start/:scooterId", h.StartRide)
		api.POST("/ride/end", h.EndRide)
		api.DELETE("/ride/last", h.ClearLastCompleted)

		api.GET("/zones", h.GetZones)
		api.POST("/zones/refresh", h.RefreshZones)
		api.POST("/zones/location", h.ReportLocation)

		api.GET("/history", h.GetHistory)
	}
}
