package api

import (
	"github.com/gin-gonic/gin"
)

// RouterConfig carries the per-environment rate-limit knobs SetupRouter
// needs beyond Deps itself.
type RouterConfig struct {
	RateLimitPerMinute int
	RateLimitBurst     int
}

// SetupRouter wires the gin engine: public routes, session-authenticated
// routes, and the websocket upgrade, all behind CORS and per-IP rate
// limiting (spec §6.1).
func SetupRouter(deps *Deps, cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(corsMiddleware())

	limiter := newRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst)
	r.Use(limiter.Middleware())

	r.GET("/health", deps.handleHealth)
	r.GET("/ws", deps.handleWebsocketUpgrade)

	v1 := r.Group("/api/v1")

	public := v1.Group("/auth")
	public.POST("/challenge", deps.handleAuthChallenge)
	public.POST("/authenticate", deps.handleAuthenticate)

	authed := v1.Group("")
	authed.Use(sessionAuthMiddleware(deps.Sessions))

	authed.GET("/map/titans", deps.handleMapTitans)
	authed.GET("/map/pois", deps.handleMapPOIs)
	authed.POST("/map/location", deps.handleMapLocation)

	authed.POST("/capture/request", deps.handleCaptureRequest)
	authed.POST("/capture/build-transaction", deps.handleCaptureBuildTransaction)
	authed.POST("/capture/submit-transaction", deps.handleCaptureSubmitTransaction)

	authed.POST("/pvp/queue", deps.handlePvpQueue)
	authed.GET("/pvp/match/:id", deps.handlePvpMatchState)
	authed.POST("/pvp/action", deps.handlePvpAction)

	return r
}
