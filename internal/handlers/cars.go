package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"wheeldeals/internal/middleware"
	"wheeldeals/internal/models"
	"wheeldeals/internal/service"
)

type carRequest struct {
	Make         string `json:"make"`
	Model        string `json:"model"`
	Year         int    `json:"year"`
	PriceCents   int64  `json:"priceCents"`
	Mileage      *int   `json:"mileage"`
	Color        string `json:"color"`
	Transmission string `json:"transmission"`
	FuelType     string `json:"fuelType"`
	Description  string `json:"description"`
	IsSold       bool   `json:"isSold"`
}

func (r carRequest) input() service.ListingInput {
	return service.ListingInput{
		Make:         r.Make,
		Model:        r.Model,
		Year:         r.Year,
		PriceCents:   r.PriceCents,
		Mileage:      r.Mileage,
		Color:        r.Color,
		Transmission: models.Transmission(strings.ToLower(r.Transmission)),
		FuelType:     models.FuelType(strings.ToLower(r.FuelType)),
		Description:  r.Description,
		IsSold:       r.IsSold,
	}
}

// carFilter reads the catalogue query parameters: q, minPrice, maxPrice
// (cents), transmission, fuelType, page and perPage.
func carFilter(c *gin.Context, defaultLimit int) models.CarFilter {
	f := models.CarFilter{
		Query:        strings.TrimSpace(c.Query("q")),
		Transmission: models.Transmission(c.Query("transmission")),
		FuelType:     models.FuelType(c.Query("fuelType")),
		Status:       models.ListingStatus(c.Query("status")),
	}
	if v, err := strconv.ParseInt(c.Query("minPrice"), 10, 64); err == nil {
		f.MinPriceCents = v
	}
	if v, err := strconv.ParseInt(c.Query("maxPrice"), 10, 64); err == nil {
		f.MaxPriceCents = v
	}
	f.Limit, f.Offset = paging(c, defaultLimit)
	return f
}

func (h HandlerSet) BrowseCars(c *gin.Context) {
	cars, err := h.listings.Browse(c.Request.Context(), carFilter(c, service.BrowsePageSize))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": toCars(cars)})
}

// GetCar returns the listing and counts the caller as a viewer.
func (h HandlerSet) GetCar(c *gin.Context) {
	actor := middleware.Actor(c)
	ctx := c.Request.Context()

	car, err := h.listings.View(ctx, actor, c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}

	resp := gin.H{"car": toCar(car)}
	if actor.Is(models.RoleBuyer) {
		ok, err := h.inspections.CanRequest(ctx, actor, car.ID)
		if err != nil {
			h.respondError(c, err)
			return
		}
		resp["canRequestInspection"] = ok
	}
	c.JSON(http.StatusOK, resp)
}

func (h HandlerSet) MyCars(c *gin.Context) {
	cars, err := h.listings.ListMine(c.Request.Context(), middleware.Actor(c), models.ListingStatus(c.Query("status")))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": toCars(cars)})
}

func (h HandlerSet) SubmitCar(c *gin.Context) {
	var req carRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	car, err := h.listings.Submit(c.Request.Context(), middleware.Actor(c), req.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"car": toCar(car)})
}

func (h HandlerSet) UpdateCar(c *gin.Context) {
	var req carRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	car, err := h.listings.Update(c.Request.Context(), middleware.Actor(c), c.Param("id"), req.input())
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"car": toCar(car)})
}

func (h HandlerSet) DeleteCar(c *gin.Context) {
	if err := h.listings.Delete(c.Request.Context(), middleware.Actor(c), c.Param("id")); err != nil {
		h.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h HandlerSet) Eligibility(c *gin.Context) {
	ok, err := h.inspections.CanRequest(c.Request.Context(), middleware.Actor(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"canRequest": ok})
}

func (h HandlerSet) RequestInspection(c *gin.Context) {
	req, err := h.inspections.Request(c.Request.Context(), middleware.Actor(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"inspection": toInspection(req)})
}

func (h HandlerSet) CompletedInspections(c *gin.Context) {
	reqs, err := h.inspections.CompletedForCar(c.Request.Context(), middleware.Actor(c), c.Param("id"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": toInspections(reqs)})
}
