package provisioning

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-redis/cache/v8"
	"github.com/ispadmin-io/ispadmin/services/subscription/api/entities"
	"github.com/ispadmin-io/ispadmin/services/subscription/db"
	"github.com/ispadmin-io/ispadmin/services/subscription/saga"
	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const readCacheTTL = 30 * time.Second

type API struct {
	tracer       trace.Tracer
	logger       *zap.Logger
	db           db.Database
	orchestrator *saga.Orchestrator
	cache        *cache.Cache

	mu     sync.Mutex
	recent map[string]*saga.Result
}

func New(
	logger *zap.Logger,
	db db.Database,
	orchestrator *saga.Orchestrator,
	cache *cache.Cache,
) *API {
	return &API{
		tracer:       otel.GetTracerProvider().Tracer("subscription.http.provisioning"),
		logger:       logger.Named("provisioning"),
		db:           db,
		orchestrator: orchestrator,
		cache:        cache,
		recent:       make(map[string]*saga.Result),
	}
}

// Provision godoc
//
//	@Summary	Provision or change a subscription
//	@Tags		subscription
//	@Accept		json
//	@Produce	json
//	@Param		request	body		entities.ChangeRequest	true	"Target state"
//	@Success	200		{object}	entities.ProvisionResponse
//	@Router		/api/v1/subscriptions [post]
func (h *API) Provision(c echo.Context) error {
	ctx := otel.GetTextMapPropagator().Extract(c.Request().Context(), propagation.HeaderCarrier(c.Request().Header))

	ctx, span := h.tracer.Start(ctx, "provision")
	defer span.End()

	var req entities.ChangeRequest
	if err := c.Bind(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := c.Validate(&req); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	existing, err := h.db.GetActiveSubscriptionByCustomer(req.CustomerID)
	if err != nil {
		h.logger.Error("looking up existing subscription", zap.Error(err))
		return err
	}

	result, err := h.orchestrator.Provision(ctx, existing, req)
	if result != nil {
		h.remember(result)
		h.invalidate(ctx, req.CustomerID)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return provisionError(err)
	}

	status := http.StatusOK
	if result.Operation == saga.Operation_CreateNew {
		status = http.StatusCreated
	}
	return c.JSON(status, toProvisionResponse(result))
}

// GetSubscription godoc
//
//	@Summary	Get a customer's current subscription
//	@Tags		subscription
//	@Produce	json
//	@Success	200	{object}	entities.SubscriptionResponse
//	@Router		/api/v1/subscriptions/{customer_id} [get]
func (h *API) GetSubscription(c echo.Context) error {
	ctx, span := h.tracer.Start(c.Request().Context(), "get-subscription")
	defer span.End()

	customerID, err := strconv.ParseUint(c.Param("customer_id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid customer id")
	}

	var resp entities.SubscriptionResponse
	err = h.cache.Once(&cache.Item{
		Ctx:   ctx,
		Key:   subscriptionCacheKey(uint(customerID)),
		Value: &resp,
		TTL:   readCacheTTL,
		Do: func(*cache.Item) (any, error) {
			sub, err := h.db.GetActiveSubscriptionByCustomer(uint(customerID))
			if err != nil {
				return nil, err
			}
			if sub == nil {
				return nil, echo.NewHTTPError(http.StatusNotFound, "no subscription for customer")
			}
			return sub.ToAPI(), nil
		},
	})
	if err != nil {
		var httpErr *echo.HTTPError
		if errors.As(err, &httpErr) {
			return httpErr
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// GetNetworkConfig godoc
//
//	@Summary	Get the network configuration behind a customer's subscription
//	@Tags		subscription
//	@Produce	json
//	@Success	200	{object}	entities.NetworkConfigResponse
//	@Router		/api/v1/subscriptions/{customer_id}/network [get]
func (h *API) GetNetworkConfig(c echo.Context) error {
	_, span := h.tracer.Start(c.Request().Context(), "get-network-config")
	defer span.End()

	customerID, err := strconv.ParseUint(c.Param("customer_id"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid customer id")
	}

	sub, err := h.db.GetActiveSubscriptionByCustomer(uint(customerID))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if sub == nil {
		return echo.NewHTTPError(http.StatusNotFound, "no subscription for customer")
	}

	cfg, err := h.db.GetNetworkConfig(sub.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	if cfg == nil {
		return echo.NewHTTPError(http.StatusNotFound, "subscription has no network config")
	}
	return c.JSON(http.StatusOK, cfg.ToAPI())
}

// ListPackages godoc
//
//	@Summary	List the service package catalog
//	@Tags		subscription
//	@Produce	json
//	@Success	200	{object}	[]entities.ServicePackageResponse
//	@Router		/api/v1/packages [get]
func (h *API) ListPackages(c echo.Context) error {
	ctx, span := h.tracer.Start(c.Request().Context(), "list-packages")
	defer span.End()

	var resp []entities.ServicePackageResponse
	err := h.cache.Once(&cache.Item{
		Ctx:   ctx,
		Key:   "service-packages",
		Value: &resp,
		TTL:   readCacheTTL,
		Do: func(*cache.Item) (any, error) {
			pkgs, err := h.db.ListServicePackages()
			if err != nil {
				return nil, err
			}
			out := make([]entities.ServicePackageResponse, 0, len(pkgs))
			for _, pkg := range pkgs {
				out = append(out, pkg.ToAPI())
			}
			return out, nil
		},
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

// GetSaga godoc
//
//	@Summary	Get the step records of a recent saga run
//	@Tags		subscription
//	@Produce	json
//	@Success	200	{object}	entities.ProvisionResponse
//	@Router		/api/v1/sagas/{saga_id} [get]
func (h *API) GetSaga(c echo.Context) error {
	h.mu.Lock()
	result, ok := h.recent[c.Param("saga_id")]
	h.mu.Unlock()
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown saga id")
	}
	return c.JSON(http.StatusOK, toProvisionResponse(result))
}

func (h *API) Register(g *echo.Group) {
	g.POST("", h.Provision)
	g.GET("/:customer_id", h.GetSubscription)
	g.GET("/:customer_id/network", h.GetNetworkConfig)
}

func (h *API) RegisterCatalog(g *echo.Group) {
	g.GET("", h.ListPackages)
}

func (h *API) RegisterSagas(g *echo.Group) {
	g.GET("/:saga_id", h.GetSaga)
}

func (h *API) remember(result *saga.Result) {
	h.mu.Lock()
	h.recent[result.SagaID] = result
	h.mu.Unlock()
}

func (h *API) invalidate(ctx context.Context, customerID uint) {
	if err := h.cache.Delete(ctx, subscriptionCacheKey(customerID)); err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		h.logger.Warn("invalidating subscription cache", zap.Error(err))
	}
}

func subscriptionCacheKey(customerID uint) string {
	return "subscription:" + strconv.FormatUint(uint64(customerID), 10)
}

func provisionError(err error) error {
	var verr *saga.ValidationError
	if errors.As(err, &verr) {
		return echo.NewHTTPError(http.StatusBadRequest, verr.Message)
	}

	var cerr *saga.CriticalStepError
	if errors.As(err, &cerr) {
		if cerr.Outcome.Recovered() {
			return echo.NewHTTPError(http.StatusBadGateway, cerr.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, cerr.Error())
	}

	var nerr *saga.NonCriticalStepError
	if errors.As(err, &nerr) {
		return echo.NewHTTPError(http.StatusInternalServerError, nerr.Error())
	}
	return err
}

func toProvisionResponse(result *saga.Result) entities.ProvisionResponse {
	resp := entities.ProvisionResponse{
		SagaID:    result.SagaID,
		Operation: string(result.Operation),
	}
	if result.Subscription != nil {
		sub := result.Subscription.ToAPI()
		resp.Subscription = &sub
	}
	if result.NetworkConfig != nil {
		cfg := result.NetworkConfig.ToAPI()
		resp.NetworkConfig = &cfg
	}
	if result.Assignment != nil {
		resp.AssignedIP = result.Assignment.Address
	}
	for _, step := range result.Steps {
		resp.Steps = append(resp.Steps, entities.StepView{
			ID:          string(step.ID),
			Description: step.Description,
			Status:      string(step.Status),
			Message:     step.Message,
		})
	}
	return resp
}
