package migration

import (
	auditdomain "github.com/smallbiznis/buildingbills/internal/audit/domain"
	billingcycledomain "github.com/smallbiznis/buildingbills/internal/billingcycle/domain"
	chargedomain "github.com/smallbiznis/buildingbills/internal/charge/domain"
	notificationdomain "github.com/smallbiznis/buildingbills/internal/notification/domain"
	paymentdomain "github.com/smallbiznis/buildingbills/internal/payment/domain"
	referencedomain "github.com/smallbiznis/buildingbills/internal/reference/domain"
	snapshotdomain "github.com/smallbiznis/buildingbills/internal/snapshot/domain"
	statementdomain "github.com/smallbiznis/buildingbills/internal/statement/domain"
	"gorm.io/gorm"
)

// Models lists every persisted model in dependency order.
func Models() []any {
	return []any{
		&referencedomain.Unit{},
		&referencedomain.Category{},
		&billingcycledomain.BillingCycle{},
		&chargedomain.CommonCharge{},
		&chargedomain.IndividualCharge{},
		&paymentdomain.Payment{},
		&statementdomain.Statement{},
		&snapshotdomain.StatementSnapshot{},
		&auditdomain.Entry{},
		&notificationdomain.Record{},
	}
}

// AutoMigrate creates the schema from the models. Used for sqlite and
// mysql, where the embedded SQL migrations do not apply.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
