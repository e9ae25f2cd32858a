package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LeshegoT/the-hive-backend/internal/services"
)

type UserSkillHandler struct {
	userSkillService services.UserSkillService
}

func NewUserSkillHandler(userSkillService services.UserSkillService) *UserSkillHandler {
	return &UserSkillHandler{userSkillService: userSkillService}
}

func (ush *UserSkillHandler) Add(c *gin.Context) {
	var req services.NewUserAttribute
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	req.PersonGuid = c.Param("personGuid")
	ua, err := ush.userSkillService.AddUserAttribute(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ua)
}

func (ush *UserSkillHandler) Update(c *gin.Context) {
	var req struct {
		Fields map[string]any `json:"fields"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	ua, err := ush.userSkillService.UpdateUserAttribute(c.Request.Context(), c.Param("edgeGuid"), req.Fields)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, ua)
}

func (ush *UserSkillHandler) Remove(c *gin.Context) {
	if err := ush.userSkillService.RemoveUserAttribute(c.Request.Context(), c.Param("edgeGuid")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": "true"})
}

func (ush *UserSkillHandler) List(c *gin.Context) {
	attrs, err := ush.userSkillService.ListUserAttributes(c.Request.Context(), c.Param("personGuid"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_attributes": attrs})
}

func (ush *UserSkillHandler) ReplaceCoreTech(c *gin.Context) {
	var req struct {
		EdgeGuids []string `json:"edge_guids"`
		AddedBy   string   `json:"added_by"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	selection, err := ush.userSkillService.ReplaceCoreTech(c.Request.Context(), c.Param("personGuid"), req.EdgeGuids, req.AddedBy)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"core_tech": selection})
}

func (ush *UserSkillHandler) CoreTech(c *gin.Context) {
	selection, err := ush.userSkillService.CoreTech(c.Request.Context(), c.Param("personGuid"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"core_tech": selection})
}

func (ush *UserSkillHandler) SetProof(c *gin.Context) {
	var req struct {
		Proof string `json:"proof"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := ush.userSkillService.SetProof(c.Request.Context(), c.Param("edgeGuid"), req.Proof); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": "true"})
}

func (ush *UserSkillHandler) VerifyProof(c *gin.Context) {
	var req struct {
		VerifiedBy string `json:"verified_by"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if err := ush.userSkillService.VerifyProof(c.Request.Context(), c.Param("edgeGuid"), req.VerifiedBy); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": "true"})
}
