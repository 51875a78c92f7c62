package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"wheeldeals/internal/models"
)

type userResponse struct {
	ID          string     `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email,omitempty"`
	DisplayName string     `json:"displayName"`
	FirstName   string     `json:"firstName,omitempty"`
	LastName    string     `json:"lastName,omitempty"`
	Phone       string     `json:"phone,omitempty"`
	City        string     `json:"city,omitempty"`
	Role        string     `json:"role"`
	IsGuest     bool       `json:"isGuest"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func toUser(u models.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		DisplayName: u.DisplayName(),
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Phone:       u.Phone,
		City:        u.City,
		Role:        string(u.Role),
		IsGuest:     u.IsGuest,
		LastLoginAt: u.LastLoginAt,
		CreatedAt:   u.CreatedAt,
	}
}

type carResponse struct {
	ID             string    `json:"id"`
	SellerID       string    `json:"sellerId"`
	Make           string    `json:"make"`
	Model          string    `json:"model"`
	Year           int       `json:"year"`
	PriceCents     int64     `json:"priceCents"`
	Mileage        *int      `json:"mileage,omitempty"`
	Color          string    `json:"color,omitempty"`
	Transmission   string    `json:"transmission"`
	FuelType       string    `json:"fuelType"`
	Description    string    `json:"description,omitempty"`
	Status         string    `json:"status"`
	DeclinedReason string    `json:"declinedReason,omitempty"`
	IsSold         bool      `json:"isSold"`
	Views          int       `json:"views"`
	PostedAt       time.Time `json:"postedAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

func toCar(c models.Car) carResponse {
	return carResponse{
		ID:             c.ID,
		SellerID:       c.SellerID,
		Make:           c.Make,
		Model:          c.Model,
		Year:           c.Year,
		PriceCents:     c.PriceCents,
		Mileage:        c.Mileage,
		Color:          c.Color,
		Transmission:   string(c.Transmission),
		FuelType:       string(c.FuelType),
		Description:    c.Description,
		Status:         string(c.Status),
		DeclinedReason: c.DeclinedReason,
		IsSold:         c.IsSold,
		Views:          c.Views,
		PostedAt:       c.PostedAt,
		UpdatedAt:      c.UpdatedAt,
	}
}

func toCars(cars []models.Car) []carResponse {
	out := make([]carResponse, 0, len(cars))
	for _, c := range cars {
		out = append(out, toCar(c))
	}
	return out
}

type inspectionResponse struct {
	ID              string    `json:"id"`
	CarID           string    `json:"carId"`
	BuyerID         string    `json:"buyerId"`
	SellerID        string    `json:"sellerId"`
	InspectorID     *string   `json:"inspectorId"`
	Status          string    `json:"status"`
	RequestedAt     time.Time `json:"requestedAt"`
	ScheduledDate   string    `json:"scheduledDate,omitempty"`
	TimeSlot        string    `json:"timeSlot,omitempty"`
	TimeSlotLabel   string    `json:"timeSlotLabel,omitempty"`
	CostCents       int64     `json:"costCents"`
	PaymentMethod   string    `json:"paymentMethod"`
	RejectionReason string    `json:"rejectionReason,omitempty"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

func toInspection(r models.InspectionRequest) inspectionResponse {
	out := inspectionResponse{
		ID:              r.ID,
		CarID:           r.CarID,
		BuyerID:         r.BuyerID,
		SellerID:        r.SellerID,
		InspectorID:     r.InspectorID,
		Status:          string(r.Status),
		RequestedAt:     r.RequestedAt,
		TimeSlot:        string(r.TimeSlot),
		TimeSlotLabel:   r.TimeSlot.Label(),
		CostCents:       r.CostCents,
		PaymentMethod:   r.PaymentMethod,
		RejectionReason: r.RejectionReason,
		UpdatedAt:       r.UpdatedAt,
	}
	if r.ScheduledDate != nil {
		out.ScheduledDate = r.ScheduledDate.Format(time.DateOnly)
	}
	return out
}

func toInspections(reqs []models.InspectionRequest) []inspectionResponse {
	out := make([]inspectionResponse, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, toInspection(r))
	}
	return out
}

type photoResponse struct {
	ID          string    `json:"id"`
	Caption     string    `json:"caption,omitempty"`
	ContentType string    `json:"contentType"`
	UploadedAt  time.Time `json:"uploadedAt"`
	URL         string    `json:"url"`
}

type reportResponse struct {
	ID              string          `json:"id"`
	InspectionID    string          `json:"inspectionId"`
	Ratings         models.Ratings  `json:"ratings"`
	AverageRating   float64         `json:"averageRating"`
	OverallComments string          `json:"overallComments,omitempty"`
	Photos          []photoResponse `json:"photos"`
	CompletedAt     time.Time       `json:"completedAt"`
}

func toReport(r models.InspectionReport) reportResponse {
	photos := make([]photoResponse, 0, len(r.Photos))
	for _, p := range r.Photos {
		photos = append(photos, photoResponse{
			ID:          p.ID,
			Caption:     p.Caption,
			ContentType: p.ContentType,
			UploadedAt:  p.UploadedAt,
			URL:         "/api/v1/inspections/" + r.InspectionID + "/report/photos/" + p.ID,
		})
	}
	return reportResponse{
		ID:              r.ID,
		InspectionID:    r.InspectionID,
		Ratings:         r.Ratings,
		AverageRating:   r.AverageRating(),
		OverallComments: r.OverallComments,
		Photos:          photos,
		CompletedAt:     r.CompletedAt,
	}
}

// maxPage bounds the page parameter so the offset cannot overflow.
const maxPage = 100_000

// paging reads page/perPage query parameters. Pages past maxPage are
// clamped to it.
func paging(c *gin.Context, defaultLimit int) (limit, offset int) {
	limit = defaultLimit
	if perPage := c.Query("perPage"); perPage != "" {
		if v, err := strconv.Atoi(perPage); err == nil && v > 0 && v <= 200 {
			limit = v
		}
	}
	if page := c.Query("page"); page != "" {
		if v, err := strconv.Atoi(page); err == nil && v > 1 {
			offset = (min(v, maxPage) - 1) * limit
		}
	}
	return limit, offset
}
