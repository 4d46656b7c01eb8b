package router

import (
	"log/slog"
	"time"

	"humrah/config"
	"humrah/internal/handler"
	"humrah/internal/middleware"
	"humrah/internal/repository"
	"humrah/internal/service"
	"humrah/internal/ws"
	"humrah/pkg/cloudinary"
	"humrah/pkg/rtctoken"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"
)

// App wires every component and owns the long-lived pieces main needs to
// start and stop.
type App struct {
	Engine  *gin.Engine
	Janitor *service.Janitor
	Hub     *ws.Hub
}

// New builds the whole dependency graph from config and the open DB.
func New(cfg *config.Config, db *gorm.DB) *App {
	bookingRepo := repository.NewBookingRepository(db)
	usageRepo := repository.NewUsageRepository(db)
	chatRepo := repository.NewChatRepository(db)
	callRepo := repository.NewCallRepository(db)
	keyRepo := repository.NewKeyRepository(db)
	userRepo := repository.NewUserRepository(db)
	safetyRepo := repository.NewSafetyRepository(db)

	vault, err := service.NewKeyVault(cfg.Vault.MasterKey, keyRepo)
	if err != nil {
		// Only possible with a broken cipher registration; unrecoverable.
		panic(err)
	}
	quotaSvc := service.NewQuotaService(usageRepo)
	chatSvc := service.NewChatService(chatRepo, safetyRepo, vault)
	bookingSvc := service.NewBookingService(db, bookingRepo, userRepo, quotaSvc, chatSvc, cfg.Booking.GeoRadiusKm)

	hub := ws.NewHub()
	rooms := ws.NewRoomSet()

	var issuer rtctoken.Issuer
	if cfg.RTC.Provider == "stub" || cfg.RTC.AppCertificate == "" {
		slog.Warn("rtc token issuer running in stub mode")
		issuer = rtctoken.StubIssuer{}
	} else {
		issuer = rtctoken.NewHMACIssuer(cfg.RTC.AppID, cfg.RTC.AppCertificate)
	}
	callSvc := service.NewCallService(callRepo, bookingRepo, chatRepo, userRepo, hub, issuer, cfg.RTC.TokenExpiry)

	var uploads cloudinary.Client
	if cfg.Cloudinary.CloudName != "" {
		uploads, err = cloudinary.NewClientFromParams(cfg.Cloudinary.CloudName, cfg.Cloudinary.APIKey, cfg.Cloudinary.APISecret)
		if err != nil {
			slog.Warn("cloudinary init failed, uploads disabled", "err", err)
		}
	}

	bookingHandler := handler.NewBookingHandler(bookingSvc, quotaSvc, chatSvc)
	chatHandler := handler.NewChatHandler(chatSvc, hub, rooms)
	callHandler := handler.NewCallHandler(callSvc)
	uploadHandler := handler.NewUploadHandler(chatSvc, uploads)
	gatewayHandler := handler.NewGatewayHandler(&cfg.JWT, &cfg.Realtime, hub, rooms, chatSvc)

	janitor := service.NewJanitor(bookingRepo, callRepo, chatSvc, vault, quotaSvc)

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RateLimit(middleware.NewSlidingWindowLimiter(300, time.Minute)))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"success": true, "status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/ws", gatewayHandler.Serve)

	authed := r.Group("/", middleware.AuthRequired(&cfg.JWT))

	booking := authed.Group("/random-booking")
	{
		booking.POST("/create", bookingHandler.Create)
		booking.GET("/eligible", bookingHandler.Eligible)
		booking.GET("/mine", bookingHandler.Mine)
		booking.GET("/usage", bookingHandler.Usage)
		booking.GET("/chats", bookingHandler.Chats)
		booking.POST("/:id/accept", bookingHandler.Accept)
		booking.POST("/:id/cancel", bookingHandler.Cancel)
		booking.POST("/:id/complete", bookingHandler.Complete)
	}

	chats := authed.Group("/chats")
	{
		chats.GET("/:id/messages", chatHandler.History)
		chats.POST("/:id/messages", chatHandler.Send)
		chats.POST("/:id/report", chatHandler.Report)
		chats.POST("/:id/attachments", uploadHandler.Attachment)
	}

	calls := authed.Group("/voice-call")
	{
		calls.POST("/initiate", callHandler.Initiate)
		calls.POST("/accept/:id", callHandler.Accept)
		calls.POST("/reject/:id", callHandler.Reject)
		calls.POST("/end/:id", callHandler.End)
		calls.PATCH("/status/:id", callHandler.Status)
		calls.GET("/active", callHandler.Active)
	}

	return &App{Engine: r, Janitor: janitor, Hub: hub}
}
