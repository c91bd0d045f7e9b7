package routes

import (
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"devis-backend/controllers"
	"devis-backend/middleware"
)

func parseCorsOrigins() []string {
	raw := strings.TrimSpace(os.Getenv("CORS_ORIGINS"))
	if raw == "" {
		return []string{"*"}
	}

	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, part := range parts {
		origin := strings.TrimSpace(part)
		if origin != "" {
			origins = append(origins, origin)
		}
	}
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

// SetupRouter reçoit les controllers et monte toutes les routes.
func SetupRouter(
	ac *controllers.AuthController,
	ec *controllers.EstimationController,
	qc *controllers.QuotationController,
	pc *controllers.PDFController,
	jwtSecret string,
) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Logger(), gin.Recovery())

	origins := parseCorsOrigins()
	allowCredentials := true
	for _, origin := range origins {
		if origin == "*" {
			allowCredentials = false
			break
		}
	}

	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: allowCredentials,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api")
	{
		// Routes publiques: lien client, catalogues et simulation
		api.GET("/pdf/:token", pc.GetPublicPDF)
		api.GET("/quotations/options", ec.GetOptions)
		api.POST("/quotations/simulate", ec.Simulate)

		api.POST("/register", ac.Register)
		api.POST("/login", ac.Login)
		api.GET("/me", middleware.RequireAuth(jwtSecret), ac.Me)

		quotations := api.Group("/quotations", middleware.RequireAuth(jwtSecret))
		{
			quotations.GET("", qc.List)
			quotations.POST("", qc.Create)
			quotations.GET("/stats", qc.Stats)

			quotations.GET("/:id", qc.Get)
			quotations.PUT("/:id", qc.Update)
			quotations.DELETE("/:id", qc.Delete)
			quotations.POST("/:id/duplicate", qc.Duplicate)
			quotations.PATCH("/:id/status", qc.UpdateStatus)
			quotations.GET("/:id/pdf", qc.ExportPDF)

			quotations.PATCH("/:id/items/:itemId", qc.AdjustItem)
			quotations.POST("/:id/items/:itemId/reset", qc.ResetItem)
		}
	}

	return r
}
