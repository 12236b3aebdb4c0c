package activities

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/veridianhq/carbonledger/internal/emissions"
	"github.com/veridianhq/carbonledger/internal/engine"
	"github.com/veridianhq/carbonledger/internal/ledger"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingEngine     = errors.New("engine is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

// IDProvider issues activity identifiers.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig wires the activity service's dependencies.
type ServiceConfig struct {
	Database   *gorm.DB
	Engine     *engine.Service
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service persists activity records and drives calculation on create and
// edit. The activity write always succeeds independently of calculation:
// a failed calculation presents as "not yet calculated", never as a
// rejected entry.
type Service struct {
	db         *gorm.DB
	engine     *engine.Service
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewService constructs the activity service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	if cfg.Engine == nil {
		return nil, errMissingEngine
	}
	if cfg.IDProvider == nil {
		return nil, errMissingIDProvider
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{
		db:         cfg.Database,
		engine:     cfg.Engine,
		clock:      clock,
		idProvider: cfg.IDProvider,
		logger:     logger,
	}, nil
}

// RecordRequest carries a new activity entry.
type RecordRequest struct {
	CompanyID         string
	ReportingPeriodID string
	UserID            string
	ActivityType      string
	Payload           json.RawMessage
	CompanyCountry    string
}

func (r RecordRequest) validate() (emissions.ActivityType, error) {
	if r.CompanyID == "" {
		return "", fmt.Errorf("%w: company id is required", ErrInvalidActivity)
	}
	if r.ReportingPeriodID == "" {
		return "", fmt.Errorf("%w: reporting period id is required", ErrInvalidActivity)
	}
	if r.UserID == "" {
		return "", fmt.Errorf("%w: user id is required", ErrInvalidActivity)
	}
	activityType, err := emissions.NewActivityType(r.ActivityType)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidActivity, err)
	}
	if len(r.Payload) == 0 {
		return "", fmt.Errorf("%w: payload is required", ErrInvalidActivity)
	}
	return activityType, nil
}

// Record persists a new activity and calculates its emissions. The
// returned ledger row is nil when calculation failed.
func (s *Service) Record(ctx context.Context, req RecordRequest) (Activity, *ledger.Row, error) {
	activityType, err := req.validate()
	if err != nil {
		return Activity{}, nil, err
	}

	activityID, err := s.idProvider.NewID()
	if err != nil {
		return Activity{}, nil, err
	}

	now := s.clock().UTC().Unix()
	activity := Activity{
		ActivityID:        activityID,
		CompanyID:         req.CompanyID,
		ReportingPeriodID: req.ReportingPeriodID,
		ActivityType:      string(activityType),
		PayloadJSON:       datatypes.JSON(req.Payload),
		EnteredBy:         req.UserID,
		CreatedAtSeconds:  now,
		UpdatedAtSeconds:  now,
	}
	if err := s.db.WithContext(ctx).Create(&activity).Error; err != nil {
		s.logger.Error("activity insert failed",
			zap.String("company_id", req.CompanyID),
			zap.Error(err))
		return Activity{}, nil, err
	}

	row := s.calculate(ctx, activity, req.UserID, req.CompanyCountry)
	return activity, row, nil
}

// Amend replaces the payload of an existing activity and recalculates. A
// new ledger row is appended; prior rows are untouched.
func (s *Service) Amend(ctx context.Context, activityID, companyID, userID string, payload json.RawMessage, companyCountry string) (Activity, *ledger.Row, error) {
	if activityID == "" || companyID == "" || userID == "" {
		return Activity{}, nil, fmt.Errorf("%w: identifiers are required", ErrInvalidActivity)
	}
	if len(payload) == 0 {
		return Activity{}, nil, fmt.Errorf("%w: payload is required", ErrInvalidActivity)
	}

	var activity Activity
	err := s.db.WithContext(ctx).
		Where("activity_id = ? AND company_id = ?", activityID, companyID).
		Take(&activity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Activity{}, nil, fmt.Errorf("%w: %s", ErrActivityNotFound, activityID)
	}
	if err != nil {
		return Activity{}, nil, err
	}

	activity.PayloadJSON = datatypes.JSON(payload)
	activity.UpdatedAtSeconds = s.clock().UTC().Unix()
	if err := s.db.WithContext(ctx).Save(&activity).Error; err != nil {
		s.logger.Error("activity update failed",
			zap.String("activity_id", activityID),
			zap.Error(err))
		return Activity{}, nil, err
	}

	row := s.calculate(ctx, activity, userID, companyCountry)
	return activity, row, nil
}

// Get returns one activity scoped to its owning company.
func (s *Service) Get(ctx context.Context, activityID, companyID string) (Activity, error) {
	var activity Activity
	err := s.db.WithContext(ctx).
		Where("activity_id = ? AND company_id = ?", activityID, companyID).
		Take(&activity).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Activity{}, fmt.Errorf("%w: %s", ErrActivityNotFound, activityID)
	}
	if err != nil {
		return Activity{}, err
	}
	return activity, nil
}

func (s *Service) calculate(ctx context.Context, activity Activity, userID, companyCountry string) *ledger.Row {
	row, err := s.engine.CalculateAndStore(ctx, engine.CalculateRequest{
		ActivityID:        activity.ActivityID,
		CompanyID:         activity.CompanyID,
		ReportingPeriodID: activity.ReportingPeriodID,
		UserID:            userID,
		ActivityType:      emissions.ActivityType(activity.ActivityType),
		Payload:           json.RawMessage(activity.PayloadJSON),
		CompanyCountry:    companyCountry,
	})
	if err != nil {
		// Storage fault in the ledger; the activity row stands regardless.
		s.logger.Error("calculation store failed",
			zap.String("activity_id", activity.ActivityID),
			zap.String("activity_type", activity.ActivityType),
			zap.Error(err))
		return nil
	}
	return row
}
