package emissions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/veridianhq/carbonledger/internal/factors"
	"go.uber.org/zap"
)

var (
	errMissingResolver = errors.New("factor resolver is required")
	noOpLogger         = zap.NewNop()
)

// FactorResolver is the slice of the factors resolver the dispatcher needs.
type FactorResolver interface {
	Resolve(ctx context.Context, lookup factors.Lookup) (factors.Resolved, error)
}

// DispatcherConfig wires the dispatcher's dependencies.
type DispatcherConfig struct {
	Resolver FactorResolver
	Standard string
	Clock    func() time.Time
	Logger   *zap.Logger
}

// Dispatcher selects the formula for an activity type and applies it.
// Dispatch is a pure lookup table; there is no shared default formula.
type Dispatcher struct {
	resolver FactorResolver
	standard string
	clock    func() time.Time
	logger   *zap.Logger
}

// NewDispatcher constructs a Dispatcher with sane defaults.
func NewDispatcher(cfg DispatcherConfig) (*Dispatcher, error) {
	if cfg.Resolver == nil {
		return nil, errMissingResolver
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = noOpLogger
	}
	return &Dispatcher{
		resolver: cfg.Resolver,
		standard: cfg.Standard,
		clock:    clock,
		logger:   logger,
	}, nil
}

// Request carries one calculation input to the dispatcher.
type Request struct {
	ActivityType ActivityType
	Payload      json.RawMessage
	// CompanyCountry enables country-level grid refinement for Scope 2 types.
	CompanyCountry string
	// AsOf bounds factor effective dates; the zero value means "now".
	AsOf time.Time
}

// Calculate runs the formula registered for the activity type. Formula
// panics and payload defects surface as ErrCalculationFailed; the caller
// treats that as non-fatal for the owning activity record.
func (d *Dispatcher) Calculate(ctx context.Context, req Request) (result Result, err error) {
	entry, ok := formulaRegistry[req.ActivityType]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownActivityType, req.ActivityType)
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			d.logger.Error("formula panicked",
				zap.String("activity_type", string(req.ActivityType)),
				zap.Any("panic", recovered))
			result = Result{}
			err = fmt.Errorf("%w: %s: panic: %v", ErrCalculationFailed, req.ActivityType, recovered)
		}
	}()

	asOf := req.AsOf
	if asOf.IsZero() {
		asOf = d.clock()
	}

	env := &formulaEnv{
		resolver: d.resolver,
		standard: d.standard,
		country:  req.CompanyCountry,
		asOf:     asOf,
		breakdown: Breakdown{
			Method:       entry.name,
			Intermediate: make(map[string]float64),
		},
	}

	result, err = entry.compute(ctx, env, req.Payload)
	if err != nil {
		d.logger.Warn("calculation failed",
			zap.String("activity_type", string(req.ActivityType)),
			zap.Error(err))
		return Result{}, fmt.Errorf("%w: %s: %v", ErrCalculationFailed, req.ActivityType, err)
	}

	result.ActivityType = req.ActivityType
	result.Method = entry.name
	result.Standard = d.standard
	result.Breakdown = env.breakdown
	return result, nil
}

// RequiredFields exposes the payload fields a type's formula consumes,
// for request validation layers.
func RequiredFields(activityType ActivityType) ([]string, error) {
	entry, ok := formulaRegistry[activityType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownActivityType, activityType)
	}
	return append([]string(nil), entry.requiredFields...), nil
}

// formulaEnv carries per-calculation state shared by formula helpers.
type formulaEnv struct {
	resolver  FactorResolver
	standard  string
	country   string
	asOf      time.Time
	breakdown Breakdown
}

func (e *formulaEnv) note(format string, args ...interface{}) {
	e.breakdown.Notes = append(e.breakdown.Notes, fmt.Sprintf(format, args...))
}

func (e *formulaEnv) setIntermediate(name string, value float64) {
	e.breakdown.Intermediate[name] = value
}

func (e *formulaEnv) recordFactor(role string, resolved factors.Resolved) {
	factor := resolved.Factor
	e.breakdown.Factors = append(e.breakdown.Factors, FactorUsage{
		Role:         role,
		FactorID:     factor.FactorID,
		Origin:       string(resolved.Origin),
		Standard:     factor.Standard,
		Unit:         factor.Unit,
		CO2KgPerUnit: factor.CO2KgPerUnit,
		CH4GPerUnit:  factor.CH4GPerUnit,
		N2OGPerUnit:  factor.N2OGPerUnit,
		GWP:          factor.GWP,
		Source:       factor.Source,
	})
}

// resolveFactor walks the resolver chain. An exhausted chain yields a zero
// factor plus a note annotation rather than a hard failure, so a single
// missing factor never aborts the calculation.
func (e *formulaEnv) resolveFactor(ctx context.Context, role string, category factors.Category, key factors.Key) (factors.EmissionFactor, bool) {
	resolved, err := e.resolver.Resolve(ctx, factors.Lookup{
		Category:    category,
		Key:         key,
		Standard:    e.standard,
		AsOf:        e.asOf,
		CountryCode: e.country,
	})
	if err != nil {
		e.note("no %s factor for %s/%s; contribution recorded as zero", role, category, key)
		return factors.EmissionFactor{}, false
	}
	e.recordFactor(role, resolved)
	return resolved.Factor, true
}

// resolveGWP returns the warming potential of a specific gas, or zero with
// a note when no factor exists.
func (e *formulaEnv) resolveGWP(ctx context.Context, category factors.Category, gasType string) (float64, bool) {
	key, err := factors.NewKey(gasType, "", 0)
	if err != nil {
		e.note("invalid gas type %q; contribution recorded as zero", gasType)
		return 0, false
	}
	factor, ok := e.resolveFactor(ctx, "gwp", category, key)
	if !ok {
		return 0, false
	}
	return factor.GWP, true
}
