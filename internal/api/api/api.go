package api

import (
	"github.com/gin-contrib/cors"
	"github.com/wb-go/wbf/ginext"

	"alumnihub/cmd/middleware"
	"alumnihub/internal/service"
)

type Routers struct {
	Service   service.Service
	JWTSecret string
}

func NewRouters(r *Routers) *ginext.Engine {
	app := ginext.New("release")

	app.Use(middleware.LoggingMiddleware())
	app.Use(cors.Default())
	apiGroup := app.Group("/v1")

	authed := middleware.Auth(r.JWTSecret)
	admin := middleware.AdminOnly()

	apiGroup.GET("/events", r.Service.GetAllEvents)
	apiGroup.GET("/events/:id", middleware.OptionalAuth(r.JWTSecret), r.Service.GetEvent)
	apiGroup.POST("/events", authed, admin, r.Service.CreateEvent)
	apiGroup.PATCH("/events/:id/status", authed, admin, r.Service.UpdateEventStatus)
	apiGroup.GET("/events/:id/report", authed, admin, r.Service.EventReport)

	apiGroup.POST("/events/:id/register", authed, r.Service.Register)
	apiGroup.POST("/events/:id/register/confirm", authed, r.Service.ConfirmPayment)
	apiGroup.POST("/registrations/:id/cancel", authed, r.Service.CancelRegistration)

	apiGroup.POST("/events/:id/qr/generate", authed, admin, r.Service.GenerateQR)
	apiGroup.POST("/events/:id/qr/deactivate", authed, admin, r.Service.DeactivateQR)

	// the verify probe is public: it backs the scanned QR landing page
	apiGroup.GET("/attendance/:eventID/status", authed, r.Service.AttendanceStatus)
	apiGroup.GET("/attendance/:eventID/:token", r.Service.VerifyAttendance)
	apiGroup.POST("/attendance/:eventID/:token/mark", authed, r.Service.MarkAttendance)

	return app
}
