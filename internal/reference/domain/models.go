package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

type ChargeKind string

const (
	KindCommon     ChargeKind = "common"
	KindIndividual ChargeKind = "individual"
)

func (k ChargeKind) Valid() bool {
	return k == KindCommon || k == KindIndividual
}

// Unit is a flat in the building. Units are deactivated, never deleted.
type Unit struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	Code      string       `json:"unit_code" gorm:"column:unit_code;type:text;not null;uniqueIndex"`
	Email     string       `json:"email" gorm:"type:text;not null;default:''"`
	IsActive  bool         `json:"is_active" gorm:"not null;default:true"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null"`
}

func (Unit) TableName() string { return "units" }

type Category struct {
	ID        snowflake.ID `json:"id" gorm:"primaryKey"`
	Name      string       `json:"name" gorm:"type:text;not null"`
	Slug      string       `json:"slug" gorm:"type:text;not null;uniqueIndex"`
	Kind      ChargeKind   `json:"kind" gorm:"type:text;not null"`
	IsActive  bool         `json:"is_active" gorm:"not null;default:true"`
	CreatedAt time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time    `json:"updated_at" gorm:"not null"`
}

func (Category) TableName() string { return "charge_categories" }
