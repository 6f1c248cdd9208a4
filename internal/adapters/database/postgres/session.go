package postgres

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// Factory opens a database handle that the caller owns.
type Factory func(ctx context.Context) (*gorm.DB, error)

// Session tells a pipeline run which database handle to use and who closes it.
// Build one with ExternalSession or OwnedSessionFactory.
type Session struct {
	db      *gorm.DB
	factory Factory
}

// ExternalSession runs on db; ownership stays with the caller and nothing is closed.
func ExternalSession(db *gorm.DB) Session {
	return Session{db: db}
}

// OwnedSessionFactory makes the run open its own handle with factory and close it afterwards.
func OwnedSessionFactory(factory Factory) Session {
	return Session{factory: factory}
}

// Owned reports whether the run owns (and closes) the handle.
func (s Session) Owned() bool {
	return s.factory != nil
}

// Open returns the handle for one run plus the release function the run must call.
func (s Session) Open(ctx context.Context) (*gorm.DB, func() error, error) {
	if s.factory == nil {
		if s.db == nil {
			return nil, nil, errors.New("session has neither a database nor a factory")
		}
		return s.db.WithContext(ctx), func() error { return nil }, nil
	}

	db, err := s.factory(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("open owned session: %w", err)
	}
	release := func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}
	return db.WithContext(ctx), release, nil
}
