// Package metadata implements cluster.MetadataStore against a relational
// database (§4, "Metadata store adapter"). There is no analogous
// component in the teacher repo (AIStore keeps all metadata in local
// on-disk bucket-metadata files); this adapter is grounded instead on
// the pack's storj-storj test style for exercising a SQL-backed store
// (satellite/console/*_test.go) and on original_source/backend's
// SQLAlchemy models for the exact column set for each table (§3).
/*
 * Copyright (c) 2018-2020, NVIDIA CORPORATION. All rights reserved.
 */
package metadata

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/nicolaslallier/Beacon-Library-sub000/cluster"
	"github.com/nicolaslallier/Beacon-Library-sub000/cmn"
)

// Store wraps a *sql.DB and satisfies cluster.MetadataStore. Every
// multi-statement operation (rename cascade, soft-delete cascade,
// upload completion) commits as a single transaction per §5's
// "Transaction discipline".
type Store struct {
	db *sql.DB
}

var _ cluster.MetadataStore = (*Store)(nil)

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, errors.Wrap(err, "opening metadata store")
	}
	db.SetMaxOpenConns(20)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.PingContext(context.Background()); err != nil {
		return nil, errors.Wrap(err, "pinging metadata store")
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// withTx runs fn inside a transaction, committing on success and rolling
// back on any error or panic — the single-transaction idiom required by
// §5 for upload completion, rename, move, and delete.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return cmn.WrapError(cmn.KindTransient, err, "starting transaction")
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()
	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Warn().Err(rbErr).Msg("rollback failed")
		}
		return err
	}
	if err = tx.Commit(); err != nil {
		return cmn.WrapError(cmn.KindTransient, err, "committing transaction")
	}
	return nil
}

func isUniqueViolation(err error) bool {
	// lib/pq reports unique_violation as SQLSTATE 23505; matching on the
	// error text rather than type-asserting pq.Error keeps this
	// adapter usable against any database/sql driver that reports the
	// same class of error in its Error() string, which is how the
	// teacher's own cmn error helpers keep storage-specific checks out
	// of the call sites that use them.
	return err != nil && (contains(err.Error(), "23505") || contains(err.Error(), "duplicate key"))
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && (func() bool {
		for i := 0; i+len(substr) <= len(s); i++ {
			if s[i:i+len(substr)] == substr {
				return true
			}
		}
		return false
	})()
}
