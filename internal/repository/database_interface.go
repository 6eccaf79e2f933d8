package repository

import (
	"gorm.io/gorm"
)

// DatabaseProvider abstracts the SQL backend so the same repositories run
// against PostgreSQL in production and SQLite for single-node installs.
type DatabaseProvider interface {
	GetDB() *gorm.DB
	Migrate(models ...interface{}) error
	Close() error
	Ping() error
}

// SQLiteProvider implements DatabaseProvider for SQLite
type SQLiteProvider struct {
	db *gorm.DB
}

// NewSQLiteProvider wraps an already opened SQLite handle
func NewSQLiteProvider(db *gorm.DB) *SQLiteProvider {
	return &SQLiteProvider{db: db}
}

func (p *SQLiteProvider) GetDB() *gorm.DB {
	return p.db
}

func (p *SQLiteProvider) Migrate(models ...interface{}) error {
	return p.db.AutoMigrate(models...)
}

func (p *SQLiteProvider) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (p *SQLiteProvider) Ping() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// PostgreSQLProvider implements DatabaseProvider for PostgreSQL
type PostgreSQLProvider struct {
	db *gorm.DB
}

func (p *PostgreSQLProvider) GetDB() *gorm.DB {
	return p.db
}

func (p *PostgreSQLProvider) Migrate(models ...interface{}) error {
	return p.db.AutoMigrate(models...)
}

func (p *PostgreSQLProvider) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (p *PostgreSQLProvider) Ping() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}
