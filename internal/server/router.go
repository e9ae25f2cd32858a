package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/LeshegoT/the-hive-backend/internal/handlers"
	"github.com/LeshegoT/the-hive-backend/internal/middleware"
)

type RouterConfig struct {
	AllowOrigins         []string
	RequestLogger        *middleware.RequestLogger
	AttributeHandler     *handlers.AttributeHandler
	CanonicalNameHandler *handlers.CanonicalNameHandler
	InstitutionHandler   *handlers.InstitutionHandler
	UserSkillHandler     *handlers.UserSkillHandler
	AdminHandler         *handlers.AdminHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))
	if cfg.RequestLogger != nil {
		router.Use(cfg.RequestLogger.Handler())
	}

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")

	// Attributes
	api.POST("/attributes", cfg.AttributeHandler.Propose)
	api.POST("/attributes/search", cfg.AttributeHandler.Search)
	api.GET("/attributes/types", cfg.AttributeHandler.Types)
	api.GET("/attributes/:guid/skill-path", cfg.AttributeHandler.SkillPath)
	api.PATCH("/attributes/:standardizedName/name", cfg.AttributeHandler.Rename)
	api.POST("/attributes/merge", cfg.AttributeHandler.Merge)
	api.POST("/attributes/:standardizedName/reject", cfg.AttributeHandler.Reject)
	api.POST("/attributes/:standardizedName/ratify", cfg.AttributeHandler.Ratify)
	api.POST("/ratification/attributes", cfg.AttributeHandler.UnratifiedQueue)
	api.POST("/ratification/offerings", cfg.AttributeHandler.UnratifiedOfferQueue)

	// Canonical names
	api.GET("/canonical-names/:standardizedName", cfg.CanonicalNameHandler.Details)
	api.PATCH("/canonical-names/:id/name", cfg.CanonicalNameHandler.Rename)
	api.POST("/canonical-names/merge", cfg.CanonicalNameHandler.Merge)
	api.POST("/canonical-names/:id/aliases", cfg.CanonicalNameHandler.AddAlias)
	api.PATCH("/canonical-names/guids", cfg.CanonicalNameHandler.UpdateGuids)
	api.GET("/search-text-exceptions", cfg.CanonicalNameHandler.SearchTextExceptions)
	api.POST("/search-text-exceptions", cfg.CanonicalNameHandler.AddSearchTextException)

	// Institutions
	api.POST("/institutions", cfg.InstitutionHandler.AddOrUpdate)
	api.POST("/institutions/search", cfg.InstitutionHandler.Search)
	api.GET("/institutions/types", cfg.InstitutionHandler.Types)
	api.POST("/institutions/types", cfg.InstitutionHandler.AddType)
	api.GET("/institutions/:standardizedName", cfg.InstitutionHandler.Get)
	api.PATCH("/institutions/:standardizedName", cfg.InstitutionHandler.Update)
	api.DELETE("/institutions/:standardizedName", cfg.InstitutionHandler.Delete)
	api.POST("/institutions/merge", cfg.InstitutionHandler.Merge)
	api.POST("/institutions/:standardizedName/ratify", cfg.InstitutionHandler.Ratify)
	api.POST("/offerings/ratify", cfg.InstitutionHandler.RatifyOffering)

	// User skills
	api.GET("/people/:personGuid/attributes", cfg.UserSkillHandler.List)
	api.POST("/people/:personGuid/attributes", cfg.UserSkillHandler.Add)
	api.PATCH("/user-attributes/:edgeGuid", cfg.UserSkillHandler.Update)
	api.DELETE("/user-attributes/:edgeGuid", cfg.UserSkillHandler.Remove)
	api.PUT("/user-attributes/:edgeGuid/proof", cfg.UserSkillHandler.SetProof)
	api.POST("/user-attributes/:edgeGuid/proof/verify", cfg.UserSkillHandler.VerifyProof)
	api.GET("/people/:personGuid/core-tech", cfg.UserSkillHandler.CoreTech)
	api.PUT("/people/:personGuid/core-tech", cfg.UserSkillHandler.ReplaceCoreTech)

	// Operations
	api.POST("/admin/reconcile", cfg.AdminHandler.Sweep)
	api.POST("/admin/export", cfg.AdminHandler.Export)

	return router
}
