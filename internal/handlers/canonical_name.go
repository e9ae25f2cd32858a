package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/LeshegoT/the-hive-backend/internal/services"
)

type CanonicalNameHandler struct {
	canonicalNameService services.CanonicalNameService
}

func NewCanonicalNameHandler(canonicalNameService services.CanonicalNameService) *CanonicalNameHandler {
	return &CanonicalNameHandler{canonicalNameService: canonicalNameService}
}

func (cnh *CanonicalNameHandler) Details(c *gin.Context) {
	details, err := cnh.canonicalNameService.RetrieveDetails(c.Request.Context(), c.Param("standardizedName"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

func (cnh *CanonicalNameHandler) Rename(c *gin.Context) {
	var req struct {
		NewName string `json:"new_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid canonical name id"})
		return
	}
	row, err := cnh.canonicalNameService.Rename(c.Request.Context(), nil, id, req.NewName)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, row)
}

func (cnh *CanonicalNameHandler) Merge(c *gin.Context) {
	var req struct {
		FromID uuid.UUID `json:"from_id"`
		IntoID uuid.UUID `json:"into_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := cnh.canonicalNameService.MergeInto(c.Request.Context(), nil, req.FromID, req.IntoID); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": "true"})
}

func (cnh *CanonicalNameHandler) AddAlias(c *gin.Context) {
	var req struct {
		Alias string `json:"alias"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid canonical name id"})
		return
	}
	alias, err := cnh.canonicalNameService.AddAlias(c.Request.Context(), nil, id, req.Alias)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, alias)
}

func (cnh *CanonicalNameHandler) UpdateGuids(c *gin.Context) {
	var req struct {
		Updates []services.GuidUpdate `json:"updates"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	result, err := cnh.canonicalNameService.UpdateGuidsByStandardizedNames(c.Request.Context(), req.Updates)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (cnh *CanonicalNameHandler) AddSearchTextException(c *gin.Context) {
	var req struct {
		SearchText string `json:"search_text"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := cnh.canonicalNameService.AddSearchTextException(c.Request.Context(), nil, req.SearchText); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": "true"})
}

func (cnh *CanonicalNameHandler) SearchTextExceptions(c *gin.Context) {
	exceptions, err := cnh.canonicalNameService.RetrieveSearchTextExceptions(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"search_text_exceptions": exceptions})
}
