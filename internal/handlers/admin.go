package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"wheeldeals/internal/middleware"
	"wheeldeals/internal/models"
	"wheeldeals/internal/service"
)

func (h HandlerSet) AdminListUsers(c *gin.Context) {
	filter := models.UserFilter{Role: models.Role(c.Query("role"))}
	filter.Limit, filter.Offset = paging(c, 50)

	users, err := h.admin.ListUsers(c.Request.Context(), middleware.Actor(c), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	items := make([]userResponse, 0, len(users))
	for _, u := range users {
		items = append(items, toUser(u))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

type roleRequest struct {
	Role string `json:"role" binding:"required"`
}

func (h HandlerSet) AdminChangeRole(c *gin.Context) {
	var req roleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	user, err := h.admin.ChangeRole(c.Request.Context(), middleware.Actor(c), c.Param("id"), models.Role(req.Role))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": toUser(user)})
}

func (h HandlerSet) AdminDeleteUser(c *gin.Context) {
	if err := h.admin.DeleteUser(c.Request.Context(), middleware.Actor(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) AdminListCars(c *gin.Context) {
	cars, err := h.admin.ListListings(c.Request.Context(), middleware.Actor(c), carFilter(c, 50))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": toCars(cars)})
}

type moderateRequest struct {
	Decision string `json:"decision" binding:"required"`
	Reason   string `json:"reason"`
}

func (h HandlerSet) AdminModerateCar(c *gin.Context) {
	var req moderateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	car, err := h.admin.ModerateListing(c.Request.Context(), middleware.Actor(c), c.Param("id"), service.Decision(req.Decision), req.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"car": toCar(car)})
}

func (h HandlerSet) AdminDeleteCar(c *gin.Context) {
	if err := h.admin.DeleteListing(c.Request.Context(), middleware.Actor(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) AdminListInspections(c *gin.Context) {
	filter := models.InspectionFilter{
		Status:      models.InspectionStatus(c.Query("status")),
		CarID:       c.Query("carId"),
		InspectorID: c.Query("inspectorId"),
	}
	filter.Limit, filter.Offset = paging(c, 50)

	reqs, err := h.admin.ListInspections(c.Request.Context(), middleware.Actor(c), filter)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": toInspections(reqs)})
}

type reassignRequest struct {
	InspectorID string `json:"inspectorId" binding:"required"`
}

func (h HandlerSet) AdminReassign(c *gin.Context) {
	var req reassignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	out, err := h.admin.Reassign(c.Request.Context(), middleware.Actor(c), c.Param("id"), req.InspectorID)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"inspection": toInspection(out)})
}
