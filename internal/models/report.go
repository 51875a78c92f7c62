package models

import (
	"fmt"
	"time"
)

// RatingCount is the number of vehicle components every report rates.
const RatingCount = 14

const (
	MinRating = 1
	MaxRating = 5
)

type Ratings struct {
	PaintCondition    int `json:"paintCondition"`
	BodyCondition     int `json:"bodyCondition"`
	GlassWindows      int `json:"glassWindows"`
	LightsSignals     int `json:"lightsSignals"`
	TireCondition     int `json:"tireCondition"`
	WheelCondition    int `json:"wheelCondition"`
	EngineCondition   int `json:"engineCondition"`
	Transmission      int `json:"transmission"`
	Brakes            int `json:"brakes"`
	Suspension        int `json:"suspension"`
	InteriorCondition int `json:"interiorCondition"`
	SeatsUpholstery   int `json:"seatsUpholstery"`
	DashboardControls int `json:"dashboardControls"`
	Electronics       int `json:"electronics"`
}

type NamedRating struct {
	Name  string
	Value int
}

// Named returns the ratings in their fixed component order.
func (r Ratings) Named() [RatingCount]NamedRating {
	return [RatingCount]NamedRating{
		{"paint_condition", r.PaintCondition},
		{"body_condition", r.BodyCondition},
		{"glass_windows", r.GlassWindows},
		{"lights_signals", r.LightsSignals},
		{"tire_condition", r.TireCondition},
		{"wheel_condition", r.WheelCondition},
		{"engine_condition", r.EngineCondition},
		{"transmission", r.Transmission},
		{"brakes", r.Brakes},
		{"suspension", r.Suspension},
		{"interior_condition", r.InteriorCondition},
		{"seats_upholstery", r.SeatsUpholstery},
		{"dashboard_controls", r.DashboardControls},
		{"electronics", r.Electronics},
	}
}

// Validate checks that every component is rated within [MinRating, MaxRating].
// A zero value means the rating was not supplied.
func (r Ratings) Validate() error {
	for _, nr := range r.Named() {
		if nr.Value == 0 {
			return fmt.Errorf("%s is required", nr.Name)
		}
		if nr.Value < MinRating || nr.Value > MaxRating {
			return fmt.Errorf("%s must be between %d and %d, got %d", nr.Name, MinRating, MaxRating, nr.Value)
		}
	}
	return nil
}

func (r Ratings) Average() float64 {
	sum := 0
	for _, nr := range r.Named() {
		sum += nr.Value
	}
	return float64(sum) / RatingCount
}

func RatingsFrom(values [RatingCount]int) Ratings {
	return Ratings{
		PaintCondition:    values[0],
		BodyCondition:     values[1],
		GlassWindows:      values[2],
		LightsSignals:     values[3],
		TireCondition:     values[4],
		WheelCondition:    values[5],
		EngineCondition:   values[6],
		Transmission:      values[7],
		Brakes:            values[8],
		Suspension:        values[9],
		InteriorCondition: values[10],
		SeatsUpholstery:   values[11],
		DashboardControls: values[12],
		Electronics:       values[13],
	}
}

type InspectionReport struct {
	ID              string
	InspectionID    string
	Ratings         Ratings
	OverallComments string
	Photos          []Photo
	CompletedAt     time.Time
	UpdatedAt       time.Time
}

func (r InspectionReport) AverageRating() float64 {
	return r.Ratings.Average()
}

// MaxCaptionLength bounds a photo caption in characters.
const MaxCaptionLength = 200

type Photo struct {
	ID          string
	ReportID    string
	ObjectKey   string
	ContentType string
	Caption     string
	UploadedAt  time.Time
}
