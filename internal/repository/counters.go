package repository

import (
	"fmt"

	"gorm.io/gorm"
)

// increment bumps a denormalized counter in one UPDATE so concurrent writers
// never lose an update.
func increment(tx *gorm.DB, model interface{}, column string, query string, args ...interface{}) error {
	return tx.Model(model).Where(query, args...).
		UpdateColumn(column, gorm.Expr(fmt.Sprintf("%s + 1", column))).Error
}

// decrement is the floored counterpart of increment: counters never go below zero.
func decrement(tx *gorm.DB, model interface{}, column string, query string, args ...interface{}) error {
	return tx.Model(model).Where(query, args...).
		UpdateColumn(column, gorm.Expr(fmt.Sprintf("CASE WHEN %s > 0 THEN %s - 1 ELSE 0 END", column, column))).Error
}
