package api

import (
	"github.com/ispadmin-io/ispadmin/services/subscription/api/provisioning"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *HttpServer) Register(e *echo.Echo) {
	prov := provisioning.New(s.logger, s.db, s.orchestrator, s.cache)

	prov.Register(e.Group("/api/v1/subscriptions"))
	prov.RegisterCatalog(e.Group("/api/v1/packages"))
	prov.RegisterSagas(e.Group("/api/v1/sagas"))

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}
