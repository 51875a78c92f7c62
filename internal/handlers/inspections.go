package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"wheeldeals/internal/middleware"
	"wheeldeals/internal/models"
)

func (h HandlerSet) MyInspections(c *gin.Context) {
	reqs, err := h.inspections.ListMine(c.Request.Context(), middleware.Actor(c), models.InspectionStatus(c.Query("status")))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": toInspections(reqs)})
}

func (h HandlerSet) InspectionPool(c *gin.Context) {
	reqs, err := h.inspections.ListPool(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": toInspections(reqs)})
}

func (h HandlerSet) GetInspection(c *gin.Context) {
	req, err := h.inspections.Get(c.Request.Context(), middleware.Actor(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"inspection": toInspection(req)})
}

type acceptRequest struct {
	// ScheduledDate is a calendar day, YYYY-MM-DD.
	ScheduledDate string `json:"scheduledDate" binding:"required"`
	TimeSlot      string `json:"timeSlot" binding:"required"`
}

func (h HandlerSet) AcceptInspection(c *gin.Context) {
	var body acceptRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		badRequest(c, err)
		return
	}
	date, err := time.ParseInLocation(time.DateOnly, body.ScheduledDate, time.UTC)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_error", "message": "scheduledDate must be YYYY-MM-DD"})
		return
	}

	req, err := h.inspections.Accept(c.Request.Context(), middleware.Actor(c), c.Param("id"), date, models.TimeSlot(body.TimeSlot))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"inspection": toInspection(req)})
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (h HandlerSet) RejectInspection(c *gin.Context) {
	var body rejectRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			badRequest(c, err)
			return
		}
	}
	req, err := h.inspections.Reject(c.Request.Context(), middleware.Actor(c), c.Param("id"), body.Reason)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"inspection": toInspection(req)})
}

func (h HandlerSet) AssignInspection(c *gin.Context) {
	req, err := h.inspections.SelfAssign(c.Request.Context(), middleware.Actor(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"inspection": toInspection(req)})
}

func (h HandlerSet) StartInspection(c *gin.Context) {
	req, err := h.inspections.Start(c.Request.Context(), middleware.Actor(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"inspection": toInspection(req)})
}
