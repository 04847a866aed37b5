package web

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"homecore/auth"
	"homecore/internal/web/api"
	"homecore/internal/web/middleware"
)

type WebServer struct {
	router *gin.Engine
	srv    *http.Server
}

// NewWebServer wires the HTTP API. A nil authModule leaves the API open;
// a nil gatherer disables /metrics.
func NewWebServer(deps api.Dependencies, authModule *auth.AuthModule, hub *Hub, gatherer prometheus.Gatherer) *WebServer {
	router := gin.New()

	middlewareManager := middleware.NewMiddlewareManager(authModule)
	router.Use(gin.Recovery(), middlewareManager.RequestLogger())

	api.RegisterCommandRoutes(router, middlewareManager, deps)
	if deps.Notifications != nil {
		api.RegisterNotificationRoutes(router, middlewareManager, deps)
	}
	if hub != nil {
		router.GET("/notifications/ws", middlewareManager.RequireAuth(), hub.ServeWS)
	}
	if gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}
	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return &WebServer{router: router, srv: &http.Server{Handler: router}}
}

func (ws *WebServer) Handler() http.Handler {
	return ws.router
}

// Start serves until Shutdown is called
func (ws *WebServer) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	if err := ws.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (ws *WebServer) Shutdown(ctx context.Context) error {
	return ws.srv.Shutdown(ctx)
}
