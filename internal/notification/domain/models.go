package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/buildingbills/pkg/db/pagination"
)

type DeliveryStatus string

const (
	StatusSent   DeliveryStatus = "sent"
	StatusFailed DeliveryStatus = "failed"
)

const NoRecipientsMessage = "No recipients found for this cycle."

// Record is one delivery attempt. Resends add new rows with a new
// dispatch id; nothing is deduplicated.
type Record struct {
	ID               snowflake.ID   `json:"id" gorm:"primaryKey"`
	DispatchID       string         `json:"dispatch_id" gorm:"type:char(26);not null;index"`
	CycleID          snowflake.ID   `json:"cycle_id" gorm:"not null;index"`
	UnitID           snowflake.ID   `json:"unit_id" gorm:"not null"`
	Email            string         `json:"email" gorm:"type:text;not null"`
	Status           DeliveryStatus `json:"status" gorm:"type:text;not null"`
	Provider         string         `json:"provider" gorm:"type:text;not null"`
	ProviderResponse string         `json:"provider_response" gorm:"type:text;not null;default:''"`
	CreatedAt        time.Time      `json:"created_at" gorm:"not null"`
}

func (Record) TableName() string { return "notification_records" }

type Recipient struct {
	UnitID   snowflake.ID
	UnitCode string
	Email    string
}

type Summary struct {
	DispatchID   string       `json:"dispatch_id"`
	CycleID      snowflake.ID `json:"cycle_id"`
	Period       string       `json:"period"`
	Attempted    int          `json:"attempted"`
	Sent         int          `json:"sent"`
	Failed       int          `json:"failed"`
	NoRecipients bool         `json:"no_recipients"`
	Message      string       `json:"message,omitempty"`
}

type HistoryRequest struct {
	pagination.Pagination
	CycleID snowflake.ID
}

type HistoryResponse struct {
	pagination.PageInfo
	Records []Record `json:"records"`
}
