package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LeshegoT/the-hive-backend/internal/services"
)

// AdminHandler exposes the operational surface: the write-intent sweep and
// the taxonomy export.
type AdminHandler struct {
	reconcileService services.ReconcileService
	exportService    services.GraphExportService
}

func NewAdminHandler(reconcileService services.ReconcileService, exportService services.GraphExportService) *AdminHandler {
	return &AdminHandler{reconcileService: reconcileService, exportService: exportService}
}

func (ah *AdminHandler) Sweep(c *gin.Context) {
	report, err := ah.reconcileService.Sweep(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (ah *AdminHandler) Export(c *gin.Context) {
	if ah.exportService == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "export bucket is not configured"})
		return
	}
	result, err := ah.exportService.Export(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}
