package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Client struct {
	ID         int64           `json:"id"`
	UserID     int64           `json:"userId"`
	Name       string          `json:"name"`
	Email      string          `json:"email,omitempty"`
	Phone      string          `json:"phone,omitempty"`
	Company    string          `json:"company,omitempty"`
	Address    string          `json:"address,omitempty"`
	TaxNumber  string          `json:"taxNumber,omitempty"`
	HourlyRate decimal.Decimal `json:"hourlyRate"`
	Notes      string          `json:"notes,omitempty"`
	IsArchived bool            `json:"isArchived"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// NewClient creates a new client with required fields
func NewClient(userID int64, name string, hourlyRate decimal.Decimal, now time.Time) *Client {
	return &Client{
		UserID:     userID,
		Name:       strings.TrimSpace(name),
		HourlyRate: hourlyRate,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Validate returns a *ValidationError if the client is invalid
func (c *Client) Validate() error {
	v := NewValidationError()
	if strings.TrimSpace(c.Name) == "" {
		v.Add("name", "client name is required")
	}
	if c.HourlyRate.IsNegative() {
		v.Add("hourlyRate", "hourly rate cannot be negative")
	}
	return v.Err()
}
