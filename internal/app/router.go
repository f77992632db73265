package app

import (
	"ppe_inspection/docs"
	"ppe_inspection/internal/config"
	"ppe_inspection/internal/controller"
	"ppe_inspection/internal/middleware"
	"ppe_inspection/internal/util"
	"ppe_inspection/pkg/monitoring"
	"ppe_inspection/pkg/security"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, s *services, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/api"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	if cfg.Storage.Type == util.StorageLocal {
		router.Static("/uploads", cfg.Storage.LocalPath)
	}

	api := router.Group("/api")
	api.GET("/health", c.health.HealthCheck)

	// 1. 技术员表单（凭分享链接访问）
	a.registerFormRoutes(api, c, s)

	// 2. 管理接口（无鉴权）
	a.registerAdminRoutes(api, c)
}

func (a *App) registerFormRoutes(api *gin.RouterGroup, c *controllers, s *services) {
	forms := api.Group("/forms/:token")
	forms.Use(middleware.FormSession(s.session, controller.RespondError))
	{
		forms.GET("", c.form.GetForm)
		forms.PATCH("", c.form.PatchForm)
		forms.POST("/next", c.form.Next)
		forms.POST("/previous", c.form.Previous)
		forms.POST("/submit", c.form.Submit)

		photos := forms.Group("/photos")
		photos.Use(security.BodyLimit(a.Config.Upload.MaxBytes + 1<<20))
		photos.POST("", c.form.UploadPhoto)
		photos.POST("/:photoId/retry", c.form.RetryPhoto)
		photos.DELETE("/:photoId", c.form.DeletePhoto)
	}
}

func (a *App) registerAdminRoutes(api *gin.RouterGroup, c *controllers) {
	admin := api.Group("/admin/inspections")
	{
		admin.POST("", c.admin.CreateInspection)
		admin.GET("", c.admin.ListInspections)
		admin.GET("/export.xlsx", c.admin.ExportXLSX)
		admin.GET("/:id", c.admin.GetInspection)
		admin.DELETE("/:id", c.admin.DeleteInspection)
		admin.GET("/:id/report.pdf", c.admin.DownloadReport)
	}
}
