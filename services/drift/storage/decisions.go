// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"

	"github.com/AleutianAI/DocDrift/services/drift/decision"
)

// StoredDecision is one persisted verdict for a file at a revision pair.
type StoredDecision struct {
	ID             string           `json:"id"`
	FilePath       string           `json:"file_path"`
	BaseRevision   string           `json:"base_revision,omitempty"`
	TargetRevision string           `json:"target_revision,omitempty"`
	Result         *decision.Result `json:"result"`
	DecidedAtMilli int64            `json:"decided_at_milli"`
}

// DecidedAt returns the decision time.
func (d *StoredDecision) DecidedAt() time.Time {
	return time.UnixMilli(d.DecidedAtMilli)
}

// DecisionStore reads and writes StoredDecision records.
//
// Keys: `rec:<id>` holds the record; `hist:<path>\x00<inverted-ms>:<id>`
// indexes it so a forward prefix scan yields newest-first history.
//
// # Thread Safety
//
// Safe for concurrent use.
type DecisionStore struct {
	db *DB
}

// NewDecisionStore creates a store over an open database.
func NewDecisionStore(db *DB) (*DecisionStore, error) {
	if db == nil {
		return nil, errors.New("db must not be nil")
	}
	return &DecisionStore{db: db}, nil
}

// Save persists a decision record.
//
// # Inputs
//
//   - ctx: Context for cancellation. Must not be nil.
//   - rec: Record to store. FilePath and Result are required. A missing
//     ID gets a fresh UUID; a zero DecidedAtMilli gets the current time.
//
// # Outputs
//
//   - error: ErrInvalidRecord for incomplete records, otherwise the
//     wrapped write failure.
func (s *DecisionStore) Save(ctx context.Context, rec *StoredDecision) error {
	if rec == nil || rec.FilePath == "" || rec.Result == nil {
		return fmt.Errorf("%w: file path and result are required", ErrInvalidRecord)
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.DecidedAtMilli == 0 {
		rec.DecidedAtMilli = time.Now().UnixMilli()
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode decision %s: %w", rec.ID, err)
	}

	err = s.db.WithTxn(ctx, func(txn *badger.Txn) error {
		if err := txn.Set(recordKey(rec.ID), data); err != nil {
			return err
		}
		return txn.Set(historyKey(rec.FilePath, rec.DecidedAtMilli, rec.ID), []byte(rec.ID))
	})
	if err != nil {
		return fmt.Errorf("write decision %s: %w", rec.ID, err)
	}
	return nil
}

// Get loads one record by ID.
//
// # Outputs
//
//   - *StoredDecision: The stored record.
//   - error: ErrNotFound if no record has that ID.
func (s *DecisionStore) Get(ctx context.Context, id string) (*StoredDecision, error) {
	var rec *StoredDecision
	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		var err error
		rec, err = readRecord(txn, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// History returns stored decisions for a file, newest first.
//
// # Inputs
//
//   - ctx: Context for cancellation. Must not be nil.
//   - filePath: Repo-relative source path the decisions were made for.
//   - limit: Maximum records to return; 0 or negative means no limit.
//
// # Outputs
//
//   - []*StoredDecision: Matching records, newest first. Empty slice
//     when the file has no history.
//   - error: Non-nil on read failure.
func (s *DecisionStore) History(ctx context.Context, filePath string, limit int) ([]*StoredDecision, error) {
	records := make([]*StoredDecision, 0)
	prefix := historyPrefix(filePath)

	err := s.db.WithReadTxn(ctx, func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = true

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
			if limit > 0 && len(records) >= limit {
				return nil
			}

			var id string
			err := it.Item().Value(func(val []byte) error {
				id = string(val)
				return nil
			})
			if err != nil {
				return err
			}

			rec, err := readRecord(txn, id)
			if err != nil {
				// Index entry outlived its record; skip rather than
				// fail the whole listing.
				if errors.Is(err, ErrNotFound) {
					continue
				}
				return err
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read history for %s: %w", filePath, err)
	}
	return records, nil
}

// Latest returns the most recent decision for a file.
//
// # Outputs
//
//   - *StoredDecision: The newest record.
//   - error: ErrNotFound when the file has no history.
func (s *DecisionStore) Latest(ctx context.Context, filePath string) (*StoredDecision, error) {
	records, err := s.History(ctx, filePath, 1)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: no history for %s", ErrNotFound, filePath)
	}
	return records[0], nil
}

func readRecord(txn *badger.Txn, id string) (*StoredDecision, error) {
	item, err := txn.Get(recordKey(id))
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil, fmt.Errorf("%w: id %s", ErrNotFound, id)
		}
		return nil, err
	}

	var rec StoredDecision
	err = item.Value(func(val []byte) error {
		return json.Unmarshal(val, &rec)
	})
	if err != nil {
		return nil, fmt.Errorf("decode decision %s: %w", id, err)
	}
	return &rec, nil
}

func recordKey(id string) []byte {
	return []byte("rec:" + id)
}

// historyPrefix terminates the path with NUL so one path can never prefix
// another's entries.
func historyPrefix(filePath string) []byte {
	return []byte("hist:" + filePath + "\x00")
}

// historyKey orders entries by inverted timestamp: forward iteration
// visits newest decisions first.
func historyKey(filePath string, decidedAtMilli int64, id string) []byte {
	inverted := uint64(math.MaxInt64 - decidedAtMilli)
	return []byte(fmt.Sprintf("%s%020d:%s", historyPrefix(filePath), inverted, id))
}
