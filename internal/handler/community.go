package handler

import (
	"net/http"

	"community-backend/internal/model"
	"community-backend/internal/service"
	"community-backend/internal/storage"

	"github.com/gin-gonic/gin"
)

type CommunityHandler struct {
	communityService *service.CommunityService
}

func NewCommunityHandler(communityService *service.CommunityService) *CommunityHandler {
	return &CommunityHandler{communityService: communityService}
}

// List 支持 q、category、member 查询参数
func (h *CommunityHandler) List(c *gin.Context) {
	communities, err := h.communityService.List(storage.CommunityFilter{
		Query:    c.Query("q"),
		Category: c.Query("category"),
		MemberID: c.Query("member"),
	})
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"communities": communities})
}

func (h *CommunityHandler) Get(c *gin.Context) {
	community, err := h.communityService.Get(c.Param("community_id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, community)
}

func (h *CommunityHandler) Create(c *gin.Context) {
	var req model.CreateCommunityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	community, err := h.communityService.Create(req)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, community)
}

func (h *CommunityHandler) Join(c *gin.Context) {
	h.membership(c, h.communityService.Join)
}

func (h *CommunityHandler) Leave(c *gin.Context) {
	h.membership(c, h.communityService.Leave)
}

func (h *CommunityHandler) membership(c *gin.Context, op func(communityID, userID string) (model.Community, error)) {
	var req model.MembershipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	community, err := op(c.Param("community_id"), req.UserID)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, community)
}

func (h *CommunityHandler) Announce(c *gin.Context) {
	var req model.AnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	announcement, err := h.communityService.Announce(c.Param("community_id"), req)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, announcement)
}

func (h *CommunityHandler) Announcements(c *gin.Context) {
	announcements, err := h.communityService.Announcements(c.Param("community_id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"announcements": announcements})
}
