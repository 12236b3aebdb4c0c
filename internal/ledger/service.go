package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/veridianhq/carbonledger/internal/emissions"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var (
	errMissingDatabase   = errors.New("database handle is required")
	errMissingIDProvider = errors.New("id provider is required")
	noOpLogger           = zap.NewNop()
)

const (
	opAppend  = "ledger.append"
	opLatest  = "ledger.latest"
	opHistory = "ledger.history"
	opPurge   = "ledger.purge"
)

// ServiceError carries a dotted operation code alongside the cause.
type ServiceError struct {
	code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err == nil {
		return e.code
	}
	return fmt.Sprintf("%s: %v", e.code, e.err)
}

func (e *ServiceError) Unwrap() error {
	return e.err
}

// Code returns the dotted operation code.
func (e *ServiceError) Code() string {
	return e.code
}

func newServiceError(operation, reason string, cause error) error {
	return &ServiceError{code: fmt.Sprintf("%s.%s", operation, reason), err: cause}
}

// IDProvider issues ledger row identifiers.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig wires the ledger's dependencies.
type ServiceConfig struct {
	Database   *gorm.DB
	Clock      func() time.Time
	IDProvider IDProvider
	Logger     *zap.Logger
}

// Service is the append-only calculation ledger. Append is the only write
// in the normal flow; PurgeActivity exists as a separately authorized
// cleanup operation and is never invoked as a side effect of recalculation.
type Service struct {
	db         *gorm.DB
	clock      func() time.Time
	idProvider IDProvider
	logger     *zap.Logger
}

// NewService constructs the ledger service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, newServiceError("ledger.service.new", "missing_database", errMissingDatabase)
	}
	if cfg.IDProvider == nil {
		return nil, newServiceError("ledger.service.new", "missing_id_provider", errMissingIDProvider)
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{db: cfg.Database, clock: clock, idProvider: cfg.IDProvider, logger: logger}, nil
}

// AppendRequest carries one calculation result into the ledger.
type AppendRequest struct {
	ActivityID        string
	CompanyID         string
	ReportingPeriodID string
	CalculatedBy      string
	Result            emissions.Result
}

func (r AppendRequest) validate() error {
	if r.ActivityID == "" {
		return fmt.Errorf("%w: activity id is required", ErrInvalidAppend)
	}
	if r.CompanyID == "" {
		return fmt.Errorf("%w: company id is required", ErrInvalidAppend)
	}
	if r.ReportingPeriodID == "" {
		return fmt.Errorf("%w: reporting period id is required", ErrInvalidAppend)
	}
	if r.CalculatedBy == "" {
		return fmt.Errorf("%w: calculated-by user is required", ErrInvalidAppend)
	}
	return nil
}

// Append inserts one immutable row and returns it. Existing rows are never
// touched; a storage constraint violation fails this append alone.
func (s *Service) Append(ctx context.Context, req AppendRequest) (Row, error) {
	if err := req.validate(); err != nil {
		s.logError(opAppend, "invalid_request", err, zap.String("activity_id", req.ActivityID))
		return Row{}, newServiceError(opAppend, "invalid_request", err)
	}

	rowID, err := s.idProvider.NewID()
	if err != nil {
		s.logError(opAppend, "id_generation_failed", err, zap.String("activity_id", req.ActivityID))
		return Row{}, newServiceError(opAppend, "id_generation_failed", err)
	}

	breakdownJSON, err := json.Marshal(req.Result.Breakdown)
	if err != nil {
		s.logError(opAppend, "breakdown_marshal_failed", err, zap.String("activity_id", req.ActivityID))
		return Row{}, newServiceError(opAppend, "breakdown_marshal_failed", err)
	}

	row := Row{
		RowID:             rowID,
		ActivityID:        req.ActivityID,
		CompanyID:         req.CompanyID,
		ReportingPeriodID: req.ReportingPeriodID,
		ActivityType:      string(req.Result.ActivityType),
		Method:            req.Result.Method,
		Standard:          req.Result.Standard,
		CO2Kg:             req.Result.CO2Kg,
		CH4G:              req.Result.CH4G,
		N2OG:              req.Result.N2OG,
		TotalCO2eMt:       req.Result.TotalCO2eMt,
		LocationCO2eMt:    req.Result.LocationCO2eMt,
		MarketCO2eMt:      req.Result.MarketCO2eMt,
		MarketIsFallback:  req.Result.MarketIsFallback,
		BreakdownJSON:     datatypes.JSON(breakdownJSON),
		CalculatedBy:      req.CalculatedBy,
		CalculatedAtNs:    s.clock().UTC().UnixNano(),
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		s.logError(opAppend, "insert_failed", err, zap.String("activity_id", req.ActivityID))
		return Row{}, newServiceError(opAppend, "insert_failed", err)
	}
	return row, nil
}

// Latest returns the row with the maximum calculated-at for the activity.
func (s *Service) Latest(ctx context.Context, activityID string) (Row, error) {
	if activityID == "" {
		return Row{}, newServiceError(opLatest, "missing_activity_id", ErrInvalidAppend)
	}
	var row Row
	err := s.db.WithContext(ctx).
		Where("activity_id = ?", activityID).
		Order("calculated_at_ns DESC, row_id DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Row{}, fmt.Errorf("%w: %s", ErrNoCalculation, activityID)
	}
	if err != nil {
		s.logError(opLatest, "query_failed", err, zap.String("activity_id", activityID))
		return Row{}, newServiceError(opLatest, "query_failed", err)
	}
	return row, nil
}

// History returns up to limit rows for the activity, newest first.
func (s *Service) History(ctx context.Context, activityID string, limit int) ([]Row, error) {
	if activityID == "" {
		return nil, newServiceError(opHistory, "missing_activity_id", ErrInvalidAppend)
	}
	query := s.db.WithContext(ctx).
		Where("activity_id = ?", activityID).
		Order("calculated_at_ns DESC, row_id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	var rows []Row
	if err := query.Find(&rows).Error; err != nil {
		s.logError(opHistory, "query_failed", err, zap.String("activity_id", activityID))
		return nil, newServiceError(opHistory, "query_failed", err)
	}
	return rows, nil
}

// PurgeActivity deletes every ledger row for an activity. This is an
// explicit, separately authorized operation for data-removal requests; the
// recalculation flow never calls it.
func (s *Service) PurgeActivity(ctx context.Context, activityID string) (int64, error) {
	if activityID == "" {
		return 0, newServiceError(opPurge, "missing_activity_id", ErrInvalidAppend)
	}
	result := s.db.WithContext(ctx).Where("activity_id = ?", activityID).Delete(&Row{})
	if result.Error != nil {
		s.logError(opPurge, "delete_failed", result.Error, zap.String("activity_id", activityID))
		return 0, newServiceError(opPurge, "delete_failed", result.Error)
	}
	return result.RowsAffected, nil
}

func (s *Service) logError(operation, reason string, err error, fields ...zap.Field) {
	attrs := []zap.Field{
		zap.String("operation", operation),
		zap.String("reason", reason),
	}
	if err != nil {
		attrs = append(attrs, zap.Error(err))
	}
	attrs = append(attrs, fields...)
	s.logger.Error("ledger service error", attrs...)
}
