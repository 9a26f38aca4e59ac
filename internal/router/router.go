package router

import (
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	govalidator "github.com/go-playground/validator/v10"

	"github.com/jwalitptl/quickserve-api/internal/config"
	"github.com/jwalitptl/quickserve-api/internal/handler"
	authhandler "github.com/jwalitptl/quickserve-api/internal/handler/auth"
	bookinghandler "github.com/jwalitptl/quickserve-api/internal/handler/booking"
	categoryhandler "github.com/jwalitptl/quickserve-api/internal/handler/category"
	paymenthandler "github.com/jwalitptl/quickserve-api/internal/handler/payment"
	providerhandler "github.com/jwalitptl/quickserve-api/internal/handler/provider"
	"github.com/jwalitptl/quickserve-api/internal/middleware"
	"github.com/jwalitptl/quickserve-api/internal/model"
	"github.com/jwalitptl/quickserve-api/pkg/metrics"
	"github.com/jwalitptl/quickserve-api/pkg/validator"
)

type Router struct {
	engine    *gin.Engine
	auth      *middleware.AuthMiddleware
	authH     *authhandler.Handler
	bookingH  *bookinghandler.Handler
	providerH *providerhandler.Handler
	categoryH *categoryhandler.Handler
	paymentH  *paymenthandler.Handler
	h         *handler.Handler
}

func NewRouter(
	auth *middleware.AuthMiddleware,
	authH *authhandler.Handler,
	bookingH *bookinghandler.Handler,
	providerH *providerhandler.Handler,
	categoryH *categoryhandler.Handler,
	paymentH *paymenthandler.Handler,
	h *handler.Handler,
	m *metrics.Metrics,
	cfg config.RateLimitConfig,
) *Router {
	gin.SetMode(gin.ReleaseMode)

	// Have binding errors name fields by their json tag.
	if v, ok := binding.Validator.Engine().(*govalidator.Validate); ok {
		validator.RegisterTagNames(v)
	}

	engine := gin.New()
	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(),
		middleware.Logger(),
		middleware.ErrorHandler(),
		middleware.Metrics(m),
		middleware.CORS(middleware.DefaultCORSConfig()),
	)

	if cfg.Enabled {
		limiter := middleware.NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst)
		engine.Use(limiter.RateLimit())
	}

	return &Router{
		engine:    engine,
		auth:      auth,
		authH:     authH,
		bookingH:  bookingH,
		providerH: providerH,
		categoryH: categoryH,
		paymentH:  paymentH,
		h:         h,
	}
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")

	r.setupHealthCheck(api)
	r.setupPublicRoutes(api)

	protected := api.Group("")
	protected.Use(r.auth.Authenticate())
	r.setupProtectedRoutes(protected)
}

func (r *Router) setupHealthCheck(rg *gin.RouterGroup) {
	health := rg.Group("/health")
	{
		health.GET("/live", r.h.LivenessCheck)
		health.GET("/ready", r.h.ReadinessCheck)
		health.GET("/metrics", r.h.MetricsHandler)
	}
}

func (r *Router) setupPublicRoutes(rg *gin.RouterGroup) {
	auth := rg.Group("/auth")
	{
		auth.POST("/register", r.authH.Register)
		auth.POST("/login", r.authH.Login)
		auth.POST("/refresh", r.authH.Refresh)
	}

	rg.GET("/categories", r.categoryH.ListCategories)
	rg.GET("/categories/:id", r.categoryH.GetCategory)

	rg.GET("/providers", r.providerH.ListProviders)
	rg.GET("/providers/:id", r.providerH.GetProvider)
}

func (r *Router) setupProtectedRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", r.authH.Me)
	rg.GET("/me/bookings", r.bookingH.ListMyBookings)
	rg.GET("/me/provider", r.providerH.GetMyProfile)

	bookings := rg.Group("/bookings")
	{
		bookings.POST("", r.bookingH.CreateBooking)
		bookings.GET("/:id", r.bookingH.GetBooking)
		bookings.POST("/:id/respond", r.bookingH.RespondBooking)
		bookings.POST("/:id/start", r.bookingH.StartBooking)
		bookings.POST("/:id/complete", r.bookingH.CompleteBooking)
		bookings.POST("/:id/cancel", r.bookingH.CancelBooking)
		bookings.POST("/:id/review", r.bookingH.ReviewBooking)
		bookings.GET("/:id/payment", r.paymentH.GetBookingPayment)
	}

	providers := rg.Group("/providers")
	{
		providers.POST("", r.providerH.CreateProfile)
		providers.PATCH("/:id", r.providerH.UpdateProvider)
		providers.GET("/:id/bookings", r.bookingH.ListProviderBookings)
		providers.GET("/:id/bookings/pending", r.bookingH.ListPendingBookings)
		providers.GET("/:id/bookings/upcoming", r.bookingH.ListUpcomingBookings)
	}

	payments := rg.Group("/payments")
	{
		payments.POST("", r.paymentH.InitiatePayment)
		payments.POST("/:id/callback", r.paymentH.GatewayCallback)
	}

	admin := rg.Group("/admin")
	admin.Use(r.auth.RequireRole(model.RoleAdmin))
	{
		admin.POST("/categories", r.categoryH.CreateCategory)
		admin.PATCH("/categories/:id", r.categoryH.UpdateCategory)
		admin.POST("/providers/:id/verify", r.providerH.VerifyProvider)
		admin.POST("/payments/:id/refund", r.paymentH.RefundPayment)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}
