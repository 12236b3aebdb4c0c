package engine

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/veridianhq/carbonledger/internal/emissions"
	"github.com/veridianhq/carbonledger/internal/ledger"
	"github.com/veridianhq/carbonledger/internal/summary"
	"go.uber.org/zap"
)

var (
	errMissingDispatcher = errors.New("engine: dispatcher is required")
	errMissingLedger     = errors.New("engine: ledger is required")
	errMissingAggregator = errors.New("engine: aggregator is required")
	noOpLogger           = zap.NewNop()
)

// ServiceConfig wires the engine facade.
type ServiceConfig struct {
	Dispatcher *emissions.Dispatcher
	Ledger     *ledger.Service
	Aggregator *summary.Service
	Logger     *zap.Logger
}

// Service is the outermost engine boundary consumed by activity flows and
// report views. It is the only layer that decides whether a failure
// surfaces to the caller: calculation failures degrade to a nil result so
// data entry is never blocked.
type Service struct {
	dispatcher *emissions.Dispatcher
	ledger     *ledger.Service
	aggregator *summary.Service
	logger     *zap.Logger
}

// NewService constructs the engine facade.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Dispatcher == nil {
		return nil, errMissingDispatcher
	}
	if cfg.Ledger == nil {
		return nil, errMissingLedger
	}
	if cfg.Aggregator == nil {
		return nil, errMissingAggregator
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Service{
		dispatcher: cfg.Dispatcher,
		ledger:     cfg.Ledger,
		aggregator: cfg.Aggregator,
		logger:     logger,
	}, nil
}

// CalculateRequest carries one activity's calculation input.
type CalculateRequest struct {
	ActivityID        string
	CompanyID         string
	ReportingPeriodID string
	UserID            string
	ActivityType      emissions.ActivityType
	Payload           json.RawMessage
	CompanyCountry    string
	AsOf              time.Time
}

// CalculateAndStore runs the formula for the activity, appends the result
// to the ledger and synchronously recomputes the period summary. A
// calculation failure returns (nil, nil): the activity record persists
// with no result attached. Only storage faults surface as errors.
func (s *Service) CalculateAndStore(ctx context.Context, req CalculateRequest) (*ledger.Row, error) {
	result, err := s.dispatcher.Calculate(ctx, emissions.Request{
		ActivityType:   req.ActivityType,
		Payload:        req.Payload,
		CompanyCountry: req.CompanyCountry,
		AsOf:           req.AsOf,
	})
	if err != nil {
		if errors.Is(err, emissions.ErrCalculationFailed) || errors.Is(err, emissions.ErrUnknownActivityType) {
			s.logger.Warn("emissions not calculated for activity",
				zap.String("activity_id", req.ActivityID),
				zap.String("activity_type", string(req.ActivityType)),
				zap.Error(err))
			return nil, nil
		}
		return nil, err
	}

	row, err := s.ledger.Append(ctx, ledger.AppendRequest{
		ActivityID:        req.ActivityID,
		CompanyID:         req.CompanyID,
		ReportingPeriodID: req.ReportingPeriodID,
		CalculatedBy:      req.UserID,
		Result:            result,
	})
	if err != nil {
		return nil, err
	}

	// Aggregation failure leaves the previous summary stale until the next
	// successful recompute; it never rolls back the append.
	if _, err := s.aggregator.Recompute(ctx, req.CompanyID, req.ReportingPeriodID); err != nil {
		s.logger.Error("aggregation failed after ledger append",
			zap.String("company_id", req.CompanyID),
			zap.String("reporting_period_id", req.ReportingPeriodID),
			zap.Error(err))
	}

	return &row, nil
}

// GetLatest returns the current ledger row for an activity, or nil when no
// calculation exists yet.
func (s *Service) GetLatest(ctx context.Context, activityID string) (*ledger.Row, error) {
	row, err := s.ledger.Latest(ctx, activityID)
	if errors.Is(err, ledger.ErrNoCalculation) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// GetHistory returns up to limit ledger rows for an activity, newest first.
func (s *Service) GetHistory(ctx context.Context, activityID string, limit int) ([]ledger.Row, error) {
	return s.ledger.History(ctx, activityID, limit)
}

// GetPeriodSummary returns the stored summary for the company and period.
func (s *Service) GetPeriodSummary(ctx context.Context, companyID, reportingPeriodID string) (summary.PeriodSummary, error) {
	return s.aggregator.Get(ctx, companyID, reportingPeriodID)
}

// Aggregate recomputes the period summary on demand, for callers such as
// bulk-delete flows that bypass CalculateAndStore.
func (s *Service) Aggregate(ctx context.Context, companyID, reportingPeriodID string) (summary.PeriodSummary, error) {
	return s.aggregator.Recompute(ctx, companyID, reportingPeriodID)
}
