package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store bundles the repositories over one connection or one transaction
type Store struct {
	db *gorm.DB

	Users   UserRepository
	Targets TargetRepository
	Records RecordRepository
	Catalog CatalogRepository
	Shop    ShopRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:      db,
		Users:   NewUserRepository(db),
		Targets: NewTargetRepository(db),
		Records: NewRecordRepository(db),
		Catalog: NewCatalogRepository(db),
		Shop:    NewShopRepository(db),
	}
}

// Transaction runs fn with repositories bound to a single transaction.
// Any error returned by fn rolls everything back.
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// DB underlying handle
func (s *Store) DB() *gorm.DB {
	return s.db
}

func forUpdate() clause.Locking {
	return clause.Locking{Strength: "UPDATE"}
}

func doNothingOn(cols ...string) clause.OnConflict {
	return clause.OnConflict{Columns: columns(cols), DoNothing: true}
}

func updateOn(cols []string, update ...string) clause.OnConflict {
	return clause.OnConflict{Columns: columns(cols), DoUpdates: clause.AssignmentColumns(update)}
}

func columns(names []string) []clause.Column {
	out := make([]clause.Column, len(names))
	for i, n := range names {
		out[i] = clause.Column{Name: n}
	}
	return out
}
