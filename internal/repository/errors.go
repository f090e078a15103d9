package repository

import (
	"errors"

	"github.com/khatape/khata-ledger/pkg/apperr"
	"gorm.io/gorm"
)

// mapError translates gorm errors into the application taxonomy.
func mapError(op, resource string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return apperr.NotFound(op, resource)
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return apperr.Conflict(op, "%s already exists", resource)
	default:
		return apperr.Storage(op, err)
	}
}

// Entities lists every table owned by this package, in dependency order.
func Entities() []interface{} {
	return []interface{}{
		&UserEntity{},
		&BusinessEntity{},
		&CustomerEntity{},
		&CustomerCreditEntity{},
		&TransactionEntity{},
		&PendingPaymentEntity{},
	}
}

// AutoMigrate creates the schema through gorm. Production uses the goose migrations instead.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Entities()...)
}
