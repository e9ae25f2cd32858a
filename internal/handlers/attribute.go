package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LeshegoT/the-hive-backend/internal/domain"
	"github.com/LeshegoT/the-hive-backend/internal/services"
)

type AttributeHandler struct {
	attributeService services.AttributeService
}

func NewAttributeHandler(attributeService services.AttributeService) *AttributeHandler {
	return &AttributeHandler{attributeService: attributeService}
}

func (ah *AttributeHandler) Propose(c *gin.Context) {
	var req struct {
		CanonicalName string `json:"canonical_name"`
		AttributeType string `json:"attribute_type"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	attr, err := ah.attributeService.AddNewAttribute(c.Request.Context(), nil, services.NewAttribute{
		CanonicalName: req.CanonicalName,
		AttributeType: req.AttributeType,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, attr)
}

func (ah *AttributeHandler) Rename(c *gin.Context) {
	var req struct {
		NewName string `json:"new_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	attr, err := ah.attributeService.RenameAttribute(c.Request.Context(), nil, c.Param("standardizedName"), req.NewName)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, attr)
}

func (ah *AttributeHandler) Merge(c *gin.Context) {
	var req struct {
		ToMerge string `json:"to_merge"`
		ToKeep  string `json:"to_keep"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	attr, err := ah.attributeService.MergeAttributes(c.Request.Context(), nil, req.ToMerge, req.ToKeep)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, attr)
}

func (ah *AttributeHandler) Reject(c *gin.Context) {
	var req struct {
		RejectedBy string `json:"rejected_by"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := ah.attributeService.RejectAttribute(c.Request.Context(), nil, c.Param("standardizedName"), req.RejectedBy); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": "true"})
}

func (ah *AttributeHandler) Ratify(c *gin.Context) {
	var req struct {
		ParentStandardizedName string `json:"parent_standardized_name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	attr, err := ah.attributeService.RatifyAttribute(c.Request.Context(), c.Param("standardizedName"), req.ParentStandardizedName)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, attr)
}

func (ah *AttributeHandler) Search(c *gin.Context) {
	var req struct {
		SearchText     string      `json:"search_text"`
		AttributeTypes []string    `json:"attribute_types"`
		Ratified       *bool       `json:"ratified"`
		Page           domain.Page `json:"page"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	results, err := ah.attributeService.Search(c.Request.Context(), services.AttributeSearchParams{
		Text:     req.SearchText,
		Types:    req.AttributeTypes,
		Ratified: req.Ratified,
		Page:     req.Page,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (ah *AttributeHandler) SkillPath(c *gin.Context) {
	path, err := ah.attributeService.SkillPathWithRelatedTags(c.Request.Context(), c.Param("guid"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"skill_path": path})
}

func (ah *AttributeHandler) UnratifiedQueue(c *gin.Context) {
	var req struct {
		AttributeType string      `json:"attribute_type"`
		SearchText    string      `json:"search_text"`
		Page          domain.Page `json:"page"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	page, err := ah.attributeService.UnratifiedSkills(c.Request.Context(), req.AttributeType, req.Page, req.SearchText)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (ah *AttributeHandler) UnratifiedOfferQueue(c *gin.Context) {
	var req struct {
		SearchText string      `json:"search_text"`
		Page       domain.Page `json:"page"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	page, err := ah.attributeService.AttributesWithUnratifiedOfferings(c.Request.Context(), req.Page, req.SearchText)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (ah *AttributeHandler) Types(c *gin.Context) {
	types, err := ah.attributeService.LiveAttributeTypes(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"attribute_types": types})
}
