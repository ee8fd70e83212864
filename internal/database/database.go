package database

import (
	"errors"

	"daoverse-backend/internal/domain"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Open opens a GORM DB from DSN (Postgres pooler URL).
// PreferSimpleProtocol disables prepared statement caching to avoid 42P05
// ("prepared statement already exists") when using connection poolers (e.g. PgBouncer, Supabase, Render).
func Open(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{})
}

// AutoMigrate runs migrations for all chain-state models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Room{},
		&domain.RegistryState{},
		&domain.Operator{},
		&domain.RentalListing{},
		&domain.SaleListing{},
		&domain.MarketState{},
		&domain.ProceedsEntry{},
		&domain.ChainEvent{},
		&domain.Wallet{},
		&domain.Proposal{},
		&domain.VoteReceipt{},
		&domain.Delegation{},
		&domain.VoteCheckpoint{},
	)
}

// Seed creates the marketplace state rows if missing: deployer as Ownable
// owner, configured platform fee. Idempotent; the deployment scripts' analog.
func Seed(db *gorm.DB, deployer string, feePercentage uint64) error {
	var reg domain.RegistryState
	if err := db.Where("id = ?", 1).First(&reg).Error; err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		reg = domain.RegistryState{ID: 1, Owner: deployer}
		if err := db.Create(&reg).Error; err != nil {
			return err
		}
	}
	for _, market := range []string{domain.MarketRenting, domain.MarketSale} {
		var state domain.MarketState
		err := db.Where("market = ?", market).First(&state).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		state = domain.MarketState{
			Market:        market,
			Owner:         deployer,
			FeePercentage: feePercentage,
		}
		if err := db.Create(&state).Error; err != nil {
			return err
		}
	}
	return nil
}
