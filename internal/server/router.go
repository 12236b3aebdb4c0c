package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/veridianhq/carbonledger/internal/activities"
	"github.com/veridianhq/carbonledger/internal/auth"
	"github.com/veridianhq/carbonledger/internal/engine"
	"go.uber.org/zap"
)

const claimsContextKey = "carbonledger_claims"

const defaultHistoryLimit = 50

var (
	errMissingTokenValidator = errors.New("token validator dependency required")
	errMissingActivities     = errors.New("activities service dependency required")
	errMissingEngine         = errors.New("engine service dependency required")
	errMissingCacheClearer   = errors.New("cache clearer dependency required")
	errInvalidAuthorization  = errors.New("authorization header missing or invalid")
)

// TokenValidator validates bearer tokens into caller claims.
type TokenValidator interface {
	ValidateToken(token string) (auth.Claims, error)
}

// CacheClearer resets the process-local factor cache.
type CacheClearer interface {
	ClearCache()
}

// Dependencies wires the HTTP layer.
type Dependencies struct {
	TokenValidator    TokenValidator
	ActivitiesService *activities.Service
	EngineService     *engine.Service
	CacheClearer      CacheClearer
	Logger            *zap.Logger
}

// NewHTTPHandler builds the gin router with the full route table.
func NewHTTPHandler(deps Dependencies) (http.Handler, error) {
	if deps.TokenValidator == nil {
		return nil, errMissingTokenValidator
	}
	if deps.ActivitiesService == nil {
		return nil, errMissingActivities
	}
	if deps.EngineService == nil {
		return nil, errMissingEngine
	}
	if deps.CacheClearer == nil {
		return nil, errMissingCacheClearer
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	handler := &httpHandler{
		validator:  deps.TokenValidator,
		activities: deps.ActivitiesService,
		engine:     deps.EngineService,
		cache:      deps.CacheClearer,
		logger:     logger,
	}

	protected := router.Group("/")
	protected.Use(handler.authorizeRequest)
	protected.POST("/activities", handler.handleRecordActivity)
	protected.PUT("/activities/:id", handler.handleAmendActivity)
	protected.GET("/activities/:id/calculation", handler.handleLatestCalculation)
	protected.GET("/activities/:id/calculations", handler.handleCalculationHistory)
	protected.GET("/periods/:id/summary", handler.handlePeriodSummary)
	protected.POST("/periods/:id/aggregate", handler.handleAggregate)
	protected.POST("/admin/factor-cache/clear", handler.handleClearFactorCache)

	return router, nil
}

type httpHandler struct {
	validator  TokenValidator
	activities *activities.Service
	engine     *engine.Service
	cache      CacheClearer
	logger     *zap.Logger
}

func (h *httpHandler) authorizeRequest(c *gin.Context) {
	header := c.GetHeader("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || strings.TrimSpace(token) == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": errInvalidAuthorization.Error()})
		return
	}

	claims, err := h.validator.ValidateToken(token)
	if err != nil {
		h.logger.Warn("token validation failed", zap.Error(err))
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	c.Set(claimsContextKey, claims)
	c.Next()
}

func requestClaims(c *gin.Context) (auth.Claims, bool) {
	value, ok := c.Get(claimsContextKey)
	if !ok {
		return auth.Claims{}, false
	}
	claims, ok := value.(auth.Claims)
	return claims, ok
}

func parseLimit(c *gin.Context) int {
	raw := c.Query("limit")
	if raw == "" {
		return defaultHistoryLimit
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit <= 0 {
		return defaultHistoryLimit
	}
	return limit
}
