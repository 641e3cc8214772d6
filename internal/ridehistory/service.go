package ridehistory

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/richxcame/scooter-ride/pkg/common"
	"github.com/richxcame/scooter-ride/pkg/config"
	"github.com/richxcame/scooter-ride/pkg/httpclient"
	"github.com/richxcame/scooter-ride/pkg/logger"
	"github.com/richxcame/scooter-ride/pkg/models"
	"github.com/richxcame/scooter-ride/pkg/validation"
)

// Service handles ride history reads and reconciliation
type Service struct {
	repo         *Repository
	defaultLimit int
}

// NewService creates a new ride history service. defaultLimit applies when a
// filter carries no limit.
func NewService(repo *Repository, defaultLimit int) *Service {
	if defaultLimit <= 0 {
		defaultLimit = config.DefaultHistoryLimit
	}
	return &Service{repo: repo, defaultLimit: defaultLimit}
}

// Fetch returns normalized rides, newest first as delivered by the backend.
// A 403 means the account has no history access and yields an empty list.
func (s *Service) Fetch(ctx context.Context, filter Filter) ([]models.Ride, error) {
	if filter.Limit == 0 {
		filter.Limit = s.defaultLimit
	}
	if err := validation.ValidateStruct(validation.HistoryQuery{
		Status: string(filter.Status),
		Limit:  filter.Limit,
	}); err != nil {
		return nil, common.NewInvalidInputError(err.Error())
	}

	body, err := s.repo.FetchRaw(ctx, filter)
	if err != nil {
		if httpclient.StatusCode(err) == http.StatusForbidden {
			return []models.Ride{}, nil
		}
		if errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, common.NewNetworkError("failed to fetch ride history", err)
	}

	rides, report := Decode(body)
	log := logger.WithContext(ctx).Named("ridehistory")
	if !report.Recognized {
		log.Warn("unrecognized ride history response", zap.Int("bytes", len(body)))
	}
	for _, skipped := range report.Skipped {
		log.Warn("skipping malformed history record",
			zap.String("envelope", report.Envelope),
			zap.Int("index", skipped.Index),
			zap.String("reason", skipped.Reason),
		)
	}
	return rides, nil
}

// Active returns the user's active ride, or nil when there is none. The
// status filter is re-checked locally since backends may ignore it.
func (s *Service) Active(ctx context.Context) (*models.Ride, error) {
	rides, err := s.Fetch(ctx, Filter{Status: models.RideStatusActive, Limit: 1})
	if err != nil {
		return nil, err
	}
	for i := range rides {
		if rides[i].IsActive() {
			return rides[i].Clone(), nil
		}
	}
	return nil, nil
}
