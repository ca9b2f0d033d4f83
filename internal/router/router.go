package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/openstatus-dev/openstatus/internal/handlers"
	"github.com/openstatus-dev/openstatus/internal/middleware"
	"github.com/openstatus-dev/openstatus/internal/types"
	"github.com/openstatus-dev/openstatus/internal/ws"
)

func NewRouter() *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     types.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Accept", "X-Requested-With", types.APIKeyHeader},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	api := r.Group("/api")
	{
		api.GET("/health", handlers.HealthCheck)
		api.GET("/ws", middleware.AuthMiddleware(), ws.Serve)
	}

	// Connect-style RPC surface: every method is a POST with a JSON body.
	rpc := r.Group("/rpc", middleware.AuthMiddleware())
	{
		monitors := rpc.Group("/MonitorService")
		{
			monitors.POST("/ListMonitors", handlers.ListMonitors)
			monitors.POST("/CreateHTTPMonitor", handlers.CreateHTTPMonitor)
			monitors.POST("/CreateTCPMonitor", handlers.CreateTCPMonitor)
			monitors.POST("/CreateDNSMonitor", handlers.CreateDNSMonitor)
			monitors.POST("/DeleteMonitor", handlers.DeleteMonitor)
			monitors.POST("/ListMonitorChecks", handlers.ListMonitorChecks)
		}

		notifications := rpc.Group("/NotificationService")
		{
			notifications.POST("/CreateNotifier", handlers.CreateNotifier)
			notifications.POST("/DeleteNotifier", handlers.DeleteNotifier)
			notifications.POST("/ListNotifiers", handlers.ListNotifiers)
			notifications.POST("/SendTestNotification", handlers.SendTestNotification)
		}

		statusReports := rpc.Group("/StatusReportService")
		{
			statusReports.POST("/CreateStatusReport", handlers.CreateStatusReport)
			statusReports.POST("/AddStatusReportUpdate", handlers.AddStatusReportUpdate)
			statusReports.POST("/GetStatusReport", handlers.GetStatusReport)
			statusReports.POST("/ListStatusReports", handlers.ListStatusReports)
			statusReports.POST("/UpdateStatusReport", handlers.UpdateStatusReport)
		}
	}

	return r
}
