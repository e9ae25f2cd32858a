package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LeshegoT/the-hive-backend/internal/services"
)

type InstitutionHandler struct {
	institutionService services.InstitutionService
}

func NewInstitutionHandler(institutionService services.InstitutionService) *InstitutionHandler {
	return &InstitutionHandler{institutionService: institutionService}
}

func (ih *InstitutionHandler) AddOrUpdate(c *gin.Context) {
	var req services.NewInstitution
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	inst, err := ih.institutionService.AddOrUpdateInstitution(c.Request.Context(), nil, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, inst)
}

func (ih *InstitutionHandler) Update(c *gin.Context) {
	var req services.InstitutionUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	inst, err := ih.institutionService.UpdateInstitution(c.Request.Context(), nil, c.Param("standardizedName"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, inst)
}

func (ih *InstitutionHandler) Merge(c *gin.Context) {
	var req struct {
		ToMerge string `json:"to_merge"`
		ToKeep  string `json:"to_keep"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	inst, err := ih.institutionService.MergeInstitutions(c.Request.Context(), nil, req.ToMerge, req.ToKeep)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, inst)
}

func (ih *InstitutionHandler) Ratify(c *gin.Context) {
	inst, err := ih.institutionService.RatifyInstitution(c.Request.Context(), c.Param("standardizedName"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, inst)
}

func (ih *InstitutionHandler) Delete(c *gin.Context) {
	if err := ih.institutionService.DeleteInstitution(c.Request.Context(), nil, c.Param("standardizedName")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": "true"})
}

func (ih *InstitutionHandler) RatifyOffering(c *gin.Context) {
	var req struct {
		Attribute   string `json:"attribute"`
		Institution string `json:"institution"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := ih.institutionService.RatifyOffering(c.Request.Context(), req.Attribute, req.Institution); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": "true"})
}

func (ih *InstitutionHandler) Search(c *gin.Context) {
	var req services.InstitutionSearchParams
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	institutions, err := ih.institutionService.Search(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"institutions": institutions})
}

func (ih *InstitutionHandler) Get(c *gin.Context) {
	inst, err := ih.institutionService.Get(c.Request.Context(), c.Param("standardizedName"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, inst)
}

func (ih *InstitutionHandler) Types(c *gin.Context) {
	types, err := ih.institutionService.InstitutionTypes(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"institution_types": types})
}

func (ih *InstitutionHandler) AddType(c *gin.Context) {
	var req struct {
		Name string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := ih.institutionService.AddInstitutionType(c.Request.Context(), req.Name); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": "true"})
}
