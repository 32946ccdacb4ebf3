package handler

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sumire/issuemail/internal/service"
)

// RouterDeps collects what the HTTP API is built from.
type RouterDeps struct {
	Auth          *service.AuthService
	Users         service.UserFinder
	Notifications NotificationSender
	Deliveries    DeliveryLister
	FrontendURL   string
	Logger        *slog.Logger
}

// NewRouter builds the echo instance serving the API.
func NewRouter(deps RouterDeps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = NewAppValidator()
	e.HTTPErrorHandler = HTTPErrorHandler

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(RequestLogger(deps.Logger))
	e.Use(middleware.Recover())
	if deps.FrontendURL != "" {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     []string{deps.FrontendURL},
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:     []string{echo.HeaderAccept, echo.HeaderAuthorization, echo.HeaderContentType},
			ExposeHeaders:    []string{echo.HeaderXRequestID},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	e.GET("/health", func(c echo.Context) error {
		return JSON(c, http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	authHandler := NewAuthHandler(deps.Auth, deps.Users)
	notificationHandler := NewNotificationHandler(deps.Notifications)
	deliveryHandler := NewDeliveryHandler(deps.Deliveries)

	api := e.Group("/api/v1")
	api.POST("/auth/refresh", authHandler.Refresh)

	protected := api.Group("", JWTAuth(deps.Auth))
	protected.GET("/auth/me", authHandler.Me)

	n := protected.Group("/notifications")
	n.POST("/issues/:id/created", notificationHandler.IssueCreated)
	n.POST("/issues/:id/closed", notificationHandler.IssueClosed)
	n.POST("/users/:id/activation-request", notificationHandler.ActivationRequest)
	n.POST("/users/:id/activated", notificationHandler.Activated)
	n.POST("/test", notificationHandler.Test)

	protected.GET("/deliveries", deliveryHandler.List)

	return e
}
