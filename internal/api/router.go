package api

import (
	"parking_billing/internal/api/handler"
	"parking_billing/internal/api/middleware"
	"parking_billing/internal/service"

	"github.com/gin-gonic/gin"
)

func SetupRouter(
	authService *service.AuthService,
	lotService *service.LotService,
	sessionQueries *service.SessionQueryService,
	intake *service.RecognitionIntake,
	lprService *service.LPRService,
	authMw *middleware.AuthMiddleware,
	wsManager *handler.WebSocketManager,
) *gin.Engine {
	r := gin.Default()

	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// Availability feed needs no auth, it only ever carries counters.
	wsHandler := handler.NewWebSocketHandler(wsManager)
	r.GET("/ws", wsHandler.HandleWebSocket)

	authHandler := handler.NewAuthHandler(authService)
	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
	}

	v1 := r.Group("/api/v1")
	v1.Use(authMw.Authenticate())
	{
		lotH := handler.NewParkingLotHandler(lotService)
		eventH := handler.NewRecognitionEventHandler(intake)
		sessionH := handler.NewParkingSessionHandler(sessionQueries)

		lotRoutes := v1.Group("/parking-lots")
		{
			lotRoutes.POST("", authMw.AuthorizeRole("admin"), lotH.CreateParkingLot)
			lotRoutes.GET("", lotH.GetAllParkingLots)
			lotRoutes.GET("/:id", lotH.GetParkingLotByID)
			lotRoutes.PUT("/:id/config", authMw.AuthorizeRole("admin"), lotH.UpdateParkingLotConfig)
			lotRoutes.DELETE("/:id", authMw.AuthorizeRole("admin"), lotH.DeleteParkingLot)

			lotRoutes.POST("/:id/events", eventH.SubmitEvent)
			lotRoutes.GET("/:id/active-sessions", sessionH.GetOpenSessionsByLot)
		}

		sessionRoutes := v1.Group("/parking-sessions")
		{
			sessionRoutes.GET("", sessionH.FindSessions)
			sessionRoutes.GET("/:id", sessionH.GetSessionByID)
		}

		if lprService != nil {
			lprH := handler.NewLPRHandler(lprService, intake)
			lprRoutes := v1.Group("/lpr")
			lprRoutes.Use(authMw.AuthorizeRole("admin", "operator"))
			{
				lprRoutes.POST("/process-image", lprH.ProcessImage)
			}
		}
	}
	return r
}
