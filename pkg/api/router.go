package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/urmzd/pillbox/pkg/api/handlers"
	"github.com/urmzd/pillbox/pkg/db"
	"github.com/urmzd/pillbox/pkg/device"
	"github.com/urmzd/pillbox/pkg/device/schema"
)

// Router holds the Gin engine and dependencies
type Router struct {
	engine     *gin.Engine
	controller device.Controller
	subscriber device.EventSubscriber
	validator  *schema.Validator
	history    db.CommandLogStore
	profileID  int64
}

// NewRouter creates a new API router
func NewRouter(controller device.Controller, subscriber device.EventSubscriber, validator *schema.Validator, history db.CommandLogStore, profileID int64) *Router {
	gin.SetMode(gin.ReleaseMode)

	engine := gin.New()
	SetupMiddleware(engine)

	router := &Router{
		engine:     engine,
		controller: controller,
		subscriber: subscriber,
		validator:  validator,
		history:    history,
		profileID:  profileID,
	}

	router.setupRoutes()

	return router
}

// setupRoutes configures all API routes
func (r *Router) setupRoutes() {
	// Swagger UI
	r.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.engine.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})

	healthHandler := handlers.NewHealthHandler(r.controller)
	r.engine.GET("/health", healthHandler.Health)

	v1 := r.engine.Group("/api/v1")
	{
		v1.GET("/health", healthHandler.Health)

		dispenserHandler := handlers.NewDispenserHandler(r.controller, r.validator)
		historyHandler := handlers.NewHistoryHandler(r.history, r.profileID, r.validator)
		eventsHandler := handlers.NewEventsHandler(r.subscriber)

		dispenser := v1.Group("/dispenser")
		{
			dispenser.GET("/status", dispenserHandler.Status)
			dispenser.POST("/control", dispenserHandler.Control)
			dispenser.POST("/auto-close/check", dispenserHandler.CheckAutoClose)
			dispenser.GET("/history", historyHandler.History)
			dispenser.GET("/events", eventsHandler.Events)
		}
	}
}

// Handler exposes the engine, mainly for tests and custom servers
func (r *Router) Handler() http.Handler {
	return r.engine
}
