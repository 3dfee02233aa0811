package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	billingcycledomain "github.com/smallbiznis/buildingbills/internal/billingcycle/domain"
	"github.com/smallbiznis/buildingbills/internal/notification/domain"
	"gorm.io/gorm"
)

type statementRecipients struct {
	db *gorm.DB
}

// NewRecipientLookup returns the active units that have a statement in the
// cycle and an email on file.
func NewRecipientLookup(db *gorm.DB) domain.RecipientLookup {
	return &statementRecipients{db: db}
}

func (l *statementRecipients) Recipients(ctx context.Context, cycle billingcycledomain.BillingCycle) ([]domain.Recipient, error) {
	var rows []struct {
		UnitID   snowflake.ID
		UnitCode string
		Email    string
	}
	err := l.db.WithContext(ctx).
		Table("statements AS s").
		Select("u.id AS unit_id, u.unit_code AS unit_code, u.email AS email").
		Joins("JOIN units AS u ON u.id = s.unit_id").
		Where("s.cycle_id = ? AND u.is_active = ? AND u.email <> ''", cycle.ID, true).
		Order("u.unit_code asc").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]domain.Recipient, 0, len(rows))
	for _, row := range rows {
		email := strings.TrimSpace(row.Email)
		if email == "" {
			continue
		}
		out = append(out, domain.Recipient{UnitID: row.UnitID, UnitCode: row.UnitCode, Email: email})
	}
	return out, nil
}
