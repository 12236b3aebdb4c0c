package integration

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/veridianhq/carbonledger/internal/activities"
	"github.com/veridianhq/carbonledger/internal/auth"
	"github.com/veridianhq/carbonledger/internal/database"
	"github.com/veridianhq/carbonledger/internal/emissions"
	"github.com/veridianhq/carbonledger/internal/engine"
	"github.com/veridianhq/carbonledger/internal/factors"
	"github.com/veridianhq/carbonledger/internal/ledger"
	"github.com/veridianhq/carbonledger/internal/server"
	"github.com/veridianhq/carbonledger/internal/summary"
	"go.uber.org/zap"
)

const (
	testIssuer = "carbonledger-auth"
	testSecret = "integration-test-secret"
)

func newTestStack(t *testing.T) http.Handler {
	t.Helper()
	logger := zap.NewNop()

	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "integration.db"), logger)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	claimsValidator, err := auth.NewClaimsValidator(auth.ClaimsValidatorConfig{
		SigningSecret: []byte(testSecret),
		Issuer:        testIssuer,
	})
	if err != nil {
		t.Fatalf("failed to build validator: %v", err)
	}

	store, err := factors.NewStore(db)
	if err != nil {
		t.Fatalf("failed to build store: %v", err)
	}
	resolver, err := factors.NewResolver(factors.ResolverConfig{
		Store:  store,
		TTL:    time.Hour,
		Logger: logger,
	})
	if err != nil {
		t.Fatalf("failed to build resolver: %v", err)
	}
	dispatcher, err := emissions.NewDispatcher(emissions.DispatcherConfig{
		Resolver: resolver,
		Standard: "GHG_PROTOCOL",
		Logger:   logger,
	})
	if err != nil {
		t.Fatalf("failed to build dispatcher: %v", err)
	}
	ledgerService, err := ledger.NewService(ledger.ServiceConfig{
		Database:   db,
		IDProvider: ledger.NewUUIDProvider(),
		Logger:     logger,
	})
	if err != nil {
		t.Fatalf("failed to build ledger: %v", err)
	}
	aggregator, err := summary.NewService(summary.ServiceConfig{Database: db, Logger: logger})
	if err != nil {
		t.Fatalf("failed to build aggregator: %v", err)
	}
	engineService, err := engine.NewService(engine.ServiceConfig{
		Dispatcher: dispatcher,
		Ledger:     ledgerService,
		Aggregator: aggregator,
		Logger:     logger,
	})
	if err != nil {
		t.Fatalf("failed to build engine: %v", err)
	}
	activitiesService, err := activities.NewService(activities.ServiceConfig{
		Database:   db,
		Engine:     engineService,
		IDProvider: ledger.NewUUIDProvider(),
		Logger:     logger,
	})
	if err != nil {
		t.Fatalf("failed to build activities service: %v", err)
	}

	handler, err := server.NewHTTPHandler(server.Dependencies{
		TokenValidator:    claimsValidator,
		ActivitiesService: activitiesService,
		EngineService:     engineService,
		CacheClearer:      resolver,
		Logger:            logger,
	})
	if err != nil {
		t.Fatalf("failed to build handler: %v", err)
	}
	return handler
}

func signToken(t *testing.T, companyCountry string) string {
	t.Helper()
	claims := auth.Claims{
		UserID:         "user-1",
		CompanyID:      "company-1",
		CompanyCountry: companyCountry,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func doJSON(t *testing.T, handler http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer "+token)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)
	return recorder
}

type activityEnvelope struct {
	ActivityID  string `json:"activity_id"`
	Calculation *struct {
		TotalCO2eMt      float64  `json:"total_co2e_mt"`
		LocationCO2eMt   *float64 `json:"location_co2e_mt"`
		MarketCO2eMt     *float64 `json:"market_co2e_mt"`
		MarketIsFallback bool     `json:"market_is_fallback"`
	} `json:"calculation"`
}

func recordActivity(t *testing.T, handler http.Handler, token, activityType, payload string) activityEnvelope {
	t.Helper()
	body := fmt.Sprintf(`{"reporting_period_id":"2026-q1","activity_type":%q,"payload":%s}`, activityType, payload)
	recorder := doJSON(t, handler, http.MethodPost, "/activities", token, body)
	if recorder.Code != http.StatusCreated {
		t.Fatalf("record %s failed with %d: %s", activityType, recorder.Code, recorder.Body.String())
	}
	var envelope activityEnvelope
	if err := json.Unmarshal(recorder.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	return envelope
}

func closeTo(a, b float64) bool {
	return math.Abs(a-b) < 1e-6
}

func TestFullReportingFlow(t *testing.T) {
	handler := newTestStack(t)
	token := signToken(t, "US")

	// Stationary combustion against the seeded natural gas factor.
	stationary := recordActivity(t, handler, token, "stationary_combustion",
		`{"fuel_type":"natural_gas","quantity":1000,"unit":"therm"}`)
	if stationary.Calculation == nil {
		t.Fatal("expected a stationary calculation")
	}
	if !closeTo(stationary.Calculation.TotalCO2eMt, 5.30745) {
		t.Fatalf("expected 5.30745 mt, got %v", stationary.Calculation.TotalCO2eMt)
	}

	// Electricity refines the regional grid factor to the company's country.
	electricity := recordActivity(t, handler, token, "electricity",
		`{"kwh":10000,"grid_region":"north_america"}`)
	if electricity.Calculation == nil {
		t.Fatal("expected an electricity calculation")
	}
	// 10000 kWh at the US intensity of 0.368 kg/kWh plus trace gases.
	if !closeTo(*electricity.Calculation.LocationCO2eMt, 3.699) {
		t.Fatalf("expected 3.699 mt location, got %v", *electricity.Calculation.LocationCO2eMt)
	}
	if !electricity.Calculation.MarketIsFallback {
		t.Fatal("expected market fallback without supplier data")
	}

	// An offset credit lands as a negative contribution.
	offset := recordActivity(t, handler, token, "carbon_offset",
		`{"co2e_mt":2,"registry":"verra"}`)
	if offset.Calculation == nil || !closeTo(offset.Calculation.TotalCO2eMt, -2) {
		t.Fatalf("expected -2 mt offset, got %+v", offset.Calculation)
	}

	// The period summary reflects every recorded activity.
	recorder := doJSON(t, handler, http.MethodGet, "/periods/2026-q1/summary", token, "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("summary lookup failed with %d: %s", recorder.Code, recorder.Body.String())
	}
	var periodSummary summary.PeriodSummary
	if err := json.Unmarshal(recorder.Body.Bytes(), &periodSummary); err != nil {
		t.Fatalf("failed to decode summary: %v", err)
	}
	if !closeTo(periodSummary.Scope1StationaryMt, 5.30745) {
		t.Fatalf("expected 5.30745 mt stationary, got %v", periodSummary.Scope1StationaryMt)
	}
	if !closeTo(periodSummary.Scope2LocationMt, 3.699) {
		t.Fatalf("expected 3.699 mt scope 2 location, got %v", periodSummary.Scope2LocationMt)
	}
	if !closeTo(periodSummary.OffsetsMt, -2) {
		t.Fatalf("expected -2 mt offsets, got %v", periodSummary.OffsetsMt)
	}
	if !closeTo(periodSummary.Scope12LocationNetMt, 5.30745+3.699-2) {
		t.Fatalf("expected %v mt net, got %v", 5.30745+3.699-2, periodSummary.Scope12LocationNetMt)
	}

	// Amending the stationary entry appends a new calculation and overwrites
	// the summary with the latest figure.
	amendBody := `{"payload":{"fuel_type":"natural_gas","quantity":500,"unit":"therm"}}`
	recorder = doJSON(t, handler, http.MethodPut, "/activities/"+stationary.ActivityID, token, amendBody)
	if recorder.Code != http.StatusOK {
		t.Fatalf("amend failed with %d: %s", recorder.Code, recorder.Body.String())
	}

	recorder = doJSON(t, handler, http.MethodGet, "/activities/"+stationary.ActivityID+"/calculation", token, "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("latest lookup failed with %d", recorder.Code)
	}
	var latest struct {
		Calculation *struct {
			TotalCO2eMt float64 `json:"total_co2e_mt"`
		} `json:"calculation"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &latest); err != nil {
		t.Fatalf("failed to decode latest: %v", err)
	}
	if latest.Calculation == nil || !closeTo(latest.Calculation.TotalCO2eMt, 2.653725) {
		t.Fatalf("expected amended figure 2.653725, got %+v", latest.Calculation)
	}

	recorder = doJSON(t, handler, http.MethodGet, "/activities/"+stationary.ActivityID+"/calculations", token, "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("history lookup failed with %d", recorder.Code)
	}
	var history struct {
		Calculations []json.RawMessage `json:"calculations"`
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &history); err != nil {
		t.Fatalf("failed to decode history: %v", err)
	}
	if len(history.Calculations) != 2 {
		t.Fatalf("expected 2 history entries, got %d", len(history.Calculations))
	}

	recorder = doJSON(t, handler, http.MethodGet, "/periods/2026-q1/summary", token, "")
	if recorder.Code != http.StatusOK {
		t.Fatalf("summary lookup failed with %d", recorder.Code)
	}
	if err := json.Unmarshal(recorder.Body.Bytes(), &periodSummary); err != nil {
		t.Fatalf("failed to decode summary: %v", err)
	}
	if !closeTo(periodSummary.Scope1StationaryMt, 2.653725) {
		t.Fatalf("expected amended 2.653725 mt stationary, got %v", periodSummary.Scope1StationaryMt)
	}
}

func TestUnresolvableFactorDegradesToZero(t *testing.T) {
	handler := newTestStack(t)
	token := signToken(t, "US")

	envelope := recordActivity(t, handler, token, "business_travel",
		`{"mode":"airship","distance":1000,"distance_unit":"km"}`)
	if envelope.Calculation == nil {
		t.Fatal("expected a calculation despite the missing factor")
	}
	if envelope.Calculation.TotalCO2eMt != 0 {
		t.Fatalf("expected zero total, got %v", envelope.Calculation.TotalCO2eMt)
	}
}

func TestCrossCompanyAccessDenied(t *testing.T) {
	handler := newTestStack(t)
	ownerToken := signToken(t, "US")

	envelope := recordActivity(t, handler, ownerToken, "stationary_combustion",
		`{"fuel_type":"diesel","quantity":100,"unit":"gallon"}`)

	otherClaims := auth.Claims{
		UserID:    "user-9",
		CompanyID: "company-9",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    testIssuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	otherToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, otherClaims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	recorder := doJSON(t, handler, http.MethodGet, "/activities/"+envelope.ActivityID+"/calculation", otherToken, "")
	if recorder.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for foreign company, got %d", recorder.Code)
	}
}
