package router

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/psds-microservice/helpy/paths"
	"github.com/psds-microservice/mentor-queue/api"
	"github.com/psds-microservice/mentor-queue/internal/handler"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Deps: обработчики и проверки маршрутизатора.
type Deps struct {
	Sessions handler.Sessions
	Session  *handler.SessionHandler
	Tickets  *handler.TicketHandler
	Presence *handler.PresenceHandler
	Stream   *handler.StreamHandler
	Settings *handler.SettingsHandler
	Ready    func(ctx context.Context) error
}

func New(d Deps) http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.GET(paths.PathHealth, handler.Health)
	r.GET(paths.PathReady, handler.Ready(d.Ready))
	r.GET(paths.PathSwagger, func(c *gin.Context) { c.Redirect(http.StatusFound, paths.PathSwagger+"/") })
	r.GET(paths.PathSwagger+"/*any", func(c *gin.Context) {
		if strings.TrimPrefix(c.Param("any"), "/") == "openapi.json" {
			c.Data(http.StatusOK, "application/json", api.OpenAPISpec)
			return
		}
		if strings.TrimPrefix(c.Param("any"), "/") == "" {
			c.Request.URL.Path = paths.PathSwagger + "/index.html"
			c.Request.RequestURI = paths.PathSwagger + "/index.html"
		}
		ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/openapi.json"))(c)
	})

	v1 := r.Group("/api/v1")
	v1.Use(handler.WithSession(d.Sessions))
	{
		v1.GET("/session", d.Session.Current)
		v1.POST("/session/anonymous", d.Session.Anonymous)
		v1.POST("/session/login", d.Session.Login)
		v1.POST("/session/logout", d.Session.Logout)

		v1.GET("/tickets", d.Tickets.List)
		v1.POST("/tickets", d.Tickets.Create)
		v1.DELETE("/tickets/history", d.Tickets.ClearHistory)
		v1.PATCH("/tickets/:id/availability", d.Tickets.EditAvailability)
		v1.POST("/tickets/:id/discard", d.Tickets.Discard)
		v1.POST("/tickets/:id/status", d.Tickets.ChangeStatus)
		v1.GET("/categories", d.Tickets.Categories)

		v1.GET("/presence", d.Presence.Get)
		v1.PUT("/presence/me", d.Presence.SetMine)
		v1.GET("/mentors", d.Presence.Mentors)

		v1.GET("/stream", d.Stream.Stream)

		v1.GET("/system", d.Settings.System)
		v1.PUT("/settings/telegram/:chatID", d.Settings.RegisterTelegram)
		v1.POST("/settings/telegram/test", d.Settings.TestTelegram)
		v1.GET("/settings/telegram/discover", d.Settings.DiscoverChat)
		v1.PUT("/settings/email", d.Settings.SaveEmail)
		v1.POST("/settings/email/test", d.Settings.TestEmail)
	}

	return r
}
