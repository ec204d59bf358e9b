package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/geocoder89/gymlog/internal/auth"
	"github.com/geocoder89/gymlog/internal/config"
	"github.com/geocoder89/gymlog/internal/domain/gymclass"
	"github.com/geocoder89/gymlog/internal/domain/user"
	"github.com/geocoder89/gymlog/internal/http/handlers"
	"github.com/geocoder89/gymlog/internal/http/middlewares"
	"github.com/geocoder89/gymlog/internal/observability"
	"github.com/geocoder89/gymlog/internal/ratelimit"
	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const sessionCookieName = "gymlog_session"

// Deps is everything the router needs; stores are constructed once in main and injected here.
type Deps struct {
	Config     config.Config
	Logger     *slog.Logger
	GymClasses gymclass.Store
	Users      user.Store

	JWT *auth.Manager
	// OIDC is nil when browser login is not configured.
	OIDC handlers.IdentityProvider

	Prom        *observability.Prom
	Gatherer    prometheus.Gatherer
	RateCounter ratelimit.Counter
	Checks      map[string]handlers.Check
}

func NewRouter(d Deps) *gin.Engine {
	cfg := d.Config

	if cfg.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()

	// middleware
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("gymlog-api"))
	r.Use(middlewares.RequestID())
	if d.Prom != nil {
		r.Use(d.Prom.GinHandleMiddleware())
	}
	r.Use(middlewares.RequestLogger(d.Logger))
	r.Use(middlewares.SecurityHeaders(cfg.Env == "prod"))
	r.Use(middlewares.CORSMiddleware(cfg.AllowedOrigins))

	// health
	h := handlers.NewHealthHandler(d.Checks)
	r.GET("/healthz", h.Healthz)
	r.GET("/readyz", h.Readyz)

	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	}

	store := cookie.NewStore([]byte(cfg.SessionSecret))
	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   int((7 * 24 * time.Hour).Seconds()),
		HttpOnly: true,
		Secure:   cfg.Env == "prod",
		SameSite: http.SameSiteLaxMode,
	})

	api := r.Group("/api")
	api.Use(sessions.Sessions(sessionCookieName, store))
	api.Use(middlewares.MaxBodyBytes(cfg.MaxBodyBytes))
	api.Use(middlewares.RequireJSON())

	// wire up services
	userService := user.NewService(d.Users)
	gymClassService := gymclass.NewService(d.GymClasses)

	var verifier middlewares.TokenVerifier
	if d.JWT != nil {
		verifier = d.JWT
	}
	authMiddleware := middlewares.NewAuthMiddleware(verifier)

	counter := d.RateCounter
	if counter == nil {
		counter = ratelimit.NewMemoryCounter()
	}
	limiter := middlewares.NewRateLimiter(counter, cfg.RateLimitPerMinute, time.Minute)

	authHandler := handlers.NewAuthHandler(d.OIDC, userService, d.JWT, d.Prom, cfg.PostLogoutRedirect)
	gymClassesHandler := handlers.NewGymClassesHandler(gymClassService)

	// auth collaborator
	if d.OIDC != nil {
		api.GET("/login", limiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.Login)
		api.GET("/callback", limiter.RateLimiterMiddleware(middlewares.KeyByIP), authHandler.Callback)
	}
	api.GET("/logout", authHandler.Logout)

	if d.JWT != nil {
		api.POST("/auth/token",
			authMiddleware.RequireSession(),
			limiter.RateLimiterMiddleware(middlewares.KeyByUserOrIP),
			authHandler.IssueToken,
		)
	}

	protected := api.Group("")
	protected.Use(authMiddleware.RequireAuth())
	protected.Use(limiter.RateLimiterMiddleware(middlewares.KeyByUserOrIP))

	protected.GET("/auth/user", authHandler.CurrentUser)

	protected.GET("/gym-classes", gymClassesHandler.ListGymClasses)
	protected.GET("/gym-classes/:id", gymClassesHandler.GetGymClass)
	protected.POST("/gym-classes", gymClassesHandler.CreateGymClass)
	protected.PATCH("/gym-classes/:id", gymClassesHandler.UpdateGymClass)
	protected.DELETE("/gym-classes/:id", gymClassesHandler.DeleteGymClass)

	return r
}
