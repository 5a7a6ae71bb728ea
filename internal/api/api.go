// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/andresuchdata/replenish/backend-go/internal/api/handlers"
	"github.com/andresuchdata/replenish/backend-go/internal/api/middleware"
	"github.com/andresuchdata/replenish/backend-go/internal/service"
)

type Services struct {
	Policies  *service.PolicyService
	Catalog   *service.CatalogService
	Proposals *service.ProposalService
	Archive   *service.ArchiveService
	Exports   *service.ExportService

	// Metrics serves /metrics when set.
	Metrics http.Handler
}

func NewRouter(services *Services, allowedOrigins []string) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger())
	router.Use(middleware.Recovery())
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.SessionHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.SessionHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if services != nil && services.Metrics != nil {
		router.GET("/metrics", gin.WrapH(services.Metrics))
	}

	apiGroup := router.Group("/api/v1")
	apiGroup.Use(middleware.Session())

	if services == nil {
		return router
	}

	if services.Policies != nil {
		policyHandler := handlers.NewPolicyHandler(services.Policies)
		policyGroup := apiGroup.Group("/policies")
		{
			policyGroup.GET("", policyHandler.List)
			policyGroup.GET("/active", policyHandler.GetActive)
			policyGroup.GET("/:id", policyHandler.Get)
			policyGroup.POST("", policyHandler.Create)
			policyGroup.PUT("/:id", policyHandler.Update)
			policyGroup.POST("/:id/activate", policyHandler.Activate)
		}
	}

	if services.Catalog != nil {
		itemHandler := handlers.NewItemHandler(services.Catalog)
		itemGroup := apiGroup.Group("/items")
		{
			itemGroup.GET("", itemHandler.GetAll)
			itemGroup.GET("/summary", itemHandler.Summary)
			itemGroup.GET("/by-key", itemHandler.GetByKey)
			itemGroup.GET("/:id", itemHandler.Get)
			itemGroup.POST("/lookup", itemHandler.Lookup)
			itemGroup.POST("/match", itemHandler.Match)
			itemGroup.PATCH("/:id", itemHandler.UpdatePurchasing)
		}
		apiGroup.POST("/import", itemHandler.Import)
	}

	if services.Proposals != nil && services.Exports != nil {
		proposalHandler := handlers.NewProposalHandler(services.Proposals, services.Exports)
		proposalGroup := apiGroup.Group("/proposal")
		{
			proposalGroup.GET("", proposalHandler.Get)
			proposalGroup.DELETE("", proposalHandler.Clear)
			proposalGroup.POST("/generate", proposalHandler.Generate)
			proposalGroup.PUT("/lines/:itemId", proposalHandler.UpdateQty)
			proposalGroup.DELETE("/lines/:itemId", proposalHandler.Remove)
			proposalGroup.POST("/approve", proposalHandler.Approve)
			proposalGroup.GET("/export", proposalHandler.Export)
			proposalGroup.POST("/export/publish", proposalHandler.Publish)
			proposalGroup.GET("/exports", proposalHandler.ListPublished)
		}
	}

	if services.Archive != nil && services.Exports != nil {
		archiveHandler := handlers.NewArchiveHandler(services.Archive, services.Exports)
		archiveGroup := apiGroup.Group("/archive")
		{
			archiveGroup.GET("", archiveHandler.List)
			archiveGroup.GET("/:id", archiveHandler.Get)
			archiveGroup.GET("/:id/export", archiveHandler.Export)
		}
	}

	return router
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
