package models

import (
	"time"

	"github.com/google/uuid"
)

type CommissionType string

const (
	CommissionTypePercentage CommissionType = "PERCENTAGE"
	CommissionTypeFixed      CommissionType = "FIXED"
)

// PropertySummary is the slice of property data embedded in every
// assignment notification so the desk renders in one round trip.
type PropertySummary struct {
	Title        string   `json:"title"`
	PropertyType string   `json:"property_type"`
	Price        *float64 `json:"price,omitempty"`
	MonthlyRent  *float64 `json:"monthly_rent,omitempty"`
	City         string   `json:"city"`
	State        string   `json:"state"`
	Pincode      string   `json:"pincode"`
	Images       []string `json:"images,omitempty"`
}

// BaseAmount returns the sale price for sale listings, the monthly rent
// for rentals, and 0 when neither is set.
func (p PropertySummary) BaseAmount() float64 {
	if p.Price != nil {
		return *p.Price
	}
	if p.MonthlyRent != nil {
		return *p.MonthlyRent
	}
	return 0
}

type Property struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	PropertyType string    `json:"property_type"`
	Price        *float64  `json:"price,omitempty"`
	MonthlyRent  *float64  `json:"monthly_rent,omitempty"`
	Address      string    `json:"address"`
	City         string    `json:"city"`
	State        string    `json:"state"`
	Pincode      string    `json:"pincode"`
	Images       []string  `json:"images,omitempty"`

	// Commission configuration. AgentID stays nil until an agent accepts.
	CommissionRate float64        `json:"commission_rate"`
	CommissionType CommissionType `json:"commission_type"`
	AgentID        *uuid.UUID     `json:"agent_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CommissionAmount computes the displayed commission: base*rate/100 for
// percentage commissions, the configured rate verbatim for fixed ones.
func (p *Property) CommissionAmount() float64 {
	if p.CommissionType == CommissionTypeFixed {
		return p.CommissionRate
	}
	return p.Summary().BaseAmount() * p.CommissionRate / 100
}

func (p *Property) Summary() PropertySummary {
	return PropertySummary{
		Title:        p.Title,
		PropertyType: p.PropertyType,
		Price:        p.Price,
		MonthlyRent:  p.MonthlyRent,
		City:         p.City,
		State:        p.State,
		Pincode:      p.Pincode,
		Images:       p.Images,
	}
}
