package models

import "time"

type ListingStatus string

const (
	ListingPending   ListingStatus = "pending"
	ListingPublished ListingStatus = "published"
	ListingDeclined  ListingStatus = "declined"
)

func (s ListingStatus) Valid() bool {
	switch s {
	case ListingPending, ListingPublished, ListingDeclined:
		return true
	}
	return false
}

type Transmission string

const (
	TransmissionAutomatic Transmission = "automatic"
	TransmissionManual    Transmission = "manual"
)

type FuelType string

const (
	FuelPetrol   FuelType = "petrol"
	FuelDiesel   FuelType = "diesel"
	FuelElectric FuelType = "electric"
	FuelHybrid   FuelType = "hybrid"
)

type Car struct {
	ID             string
	SellerID       string
	Make           string
	Model          string
	Year           int
	PriceCents     int64
	Mileage        *int
	Color          string
	Transmission   Transmission
	FuelType       FuelType
	Description    string
	Status         ListingStatus
	DeclinedReason string
	IsSold         bool
	Views          int
	PostedAt       time.Time
	UpdatedAt      time.Time
}

func (c Car) Published() bool {
	return c.Status == ListingPublished
}

// CarFilter narrows listing queries. Zero fields are ignored.
type CarFilter struct {
	SellerID      string
	Status        ListingStatus
	PublicOnly    bool
	Query         string
	MinPriceCents int64
	MaxPriceCents int64
	Transmission  Transmission
	FuelType      FuelType
	Limit         int
	Offset        int
}
