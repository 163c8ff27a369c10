package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

type Controller struct {
	Handler *Handler

	router *gin.Engine
	server *http.Server
}

// NewController socket может быть nil, тогда /ws не регистрируется
func NewController(handler *Handler, socket http.Handler) *Controller {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", handler.Health)

	location := router.Group("/api/location")
	{
		location.POST("/update-location", handler.UpdateLocation)
		location.GET("/get-location", handler.GetLocation)
		location.GET("/all", handler.GetAllLocations)
		location.GET("/gtfs-rt", handler.GetGTFSRealtime)
	}

	if socket != nil {
		router.GET("/ws", gin.WrapH(socket))
	}

	return &Controller{
		Handler: handler,
		router:  router,
		server:  &http.Server{Handler: router},
	}
}

func (c *Controller) Router() *gin.Engine {
	return c.router
}

func (c *Controller) Run(addr string) error {
	c.server.Addr = addr

	log.WithField("addr", addr).Info("Запущен HTTP API")
	if err := c.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (c *Controller) Shutdown(ctx context.Context) error {
	return c.server.Shutdown(ctx)
}
