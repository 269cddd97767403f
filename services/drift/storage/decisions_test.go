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
	"errors"
	"testing"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/DocDrift/services/drift/decision"
)

func newTestStore(t *testing.T) *DecisionStore {
	t.Helper()
	db, err := OpenDB(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	store, err := NewDecisionStore(db)
	require.NoError(t, err)
	return store
}

func sampleResult() *decision.Result {
	return &decision.Result{
		ShouldRegenerate: true,
		Confidence:       0.95,
		ReasonCode:       decision.ReasonPublicAPIChanges,
		Reasoning:        []string{"public API changed"},
		Severity:         decision.SeverityMajor,
		Score:            50,
	}
}

func TestDecisionStoreSaveAssignsIDAndTime(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := &StoredDecision{
		FilePath: "app/Cart.php",
		Result:   sampleResult(),
	}
	require.NoError(t, store.Save(ctx, rec))
	assert.NotEmpty(t, rec.ID)
	assert.NotZero(t, rec.DecidedAtMilli)
}

func TestDecisionStoreRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rec := &StoredDecision{
		FilePath:       "app/Cart.php",
		BaseRevision:   "abc123",
		TargetRevision: "def456",
		Result:         sampleResult(),
		DecidedAtMilli: 1700000000000,
	}
	require.NoError(t, store.Save(ctx, rec))

	got, err := store.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.FilePath, got.FilePath)
	assert.Equal(t, rec.BaseRevision, got.BaseRevision)
	assert.Equal(t, rec.TargetRevision, got.TargetRevision)
	assert.Equal(t, rec.DecidedAtMilli, got.DecidedAtMilli)
	require.NotNil(t, got.Result)
	assert.Equal(t, decision.ReasonPublicAPIChanges, got.Result.ReasonCode)
	assert.Equal(t, 0.95, got.Result.Confidence)
	assert.True(t, got.Result.ShouldRegenerate)
}

func TestDecisionStoreGetMissing(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "no-such-id")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestDecisionStoreSaveRejectsIncomplete(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	err := store.Save(ctx, nil)
	assert.True(t, errors.Is(err, ErrInvalidRecord))

	err = store.Save(ctx, &StoredDecision{Result: sampleResult()})
	assert.True(t, errors.Is(err, ErrInvalidRecord))

	err = store.Save(ctx, &StoredDecision{FilePath: "app/Cart.php"})
	assert.True(t, errors.Is(err, ErrInvalidRecord))
}

func TestDecisionStoreHistoryNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, ms := range []int64{1000, 3000, 2000} {
		rec := &StoredDecision{
			FilePath:       "app/Cart.php",
			Result:         sampleResult(),
			DecidedAtMilli: ms,
		}
		require.NoError(t, store.Save(ctx, rec))
	}

	records, err := store.History(ctx, "app/Cart.php", 0)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, int64(3000), records[0].DecidedAtMilli)
	assert.Equal(t, int64(2000), records[1].DecidedAtMilli)
	assert.Equal(t, int64(1000), records[2].DecidedAtMilli)
}

func TestDecisionStoreHistoryLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, ms := range []int64{1000, 2000, 3000} {
		require.NoError(t, store.Save(ctx, &StoredDecision{
			FilePath:       "app/Cart.php",
			Result:         sampleResult(),
			DecidedAtMilli: ms,
		}))
	}

	records, err := store.History(ctx, "app/Cart.php", 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, int64(3000), records[0].DecidedAtMilli)
	assert.Equal(t, int64(2000), records[1].DecidedAtMilli)
}

func TestDecisionStoreHistoryIsolatesFiles(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, &StoredDecision{
		FilePath: "app/Cart.php", Result: sampleResult(), DecidedAtMilli: 1000,
	}))
	// A path extending the first must not leak into its history.
	require.NoError(t, store.Save(ctx, &StoredDecision{
		FilePath: "app/Cart.php.bak", Result: sampleResult(), DecidedAtMilli: 2000,
	}))

	records, err := store.History(ctx, "app/Cart.php", 0)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "app/Cart.php", records[0].FilePath)

	records, err = store.History(ctx, "app/Other.php", 0)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestDecisionStoreLatest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.Latest(ctx, "app/Cart.php")
	assert.True(t, errors.Is(err, ErrNotFound))

	for _, ms := range []int64{1000, 2000} {
		require.NoError(t, store.Save(ctx, &StoredDecision{
			FilePath:       "app/Cart.php",
			Result:         sampleResult(),
			DecidedAtMilli: ms,
		}))
	}

	latest, err := store.Latest(ctx, "app/Cart.php")
	require.NoError(t, err)
	assert.Equal(t, int64(2000), latest.DecidedAtMilli)
}

func TestOpenDBRequiresPath(t *testing.T) {
	_, err := OpenDB(Config{})
	assert.Error(t, err)
}

func TestOpenDBPersistent(t *testing.T) {
	dir := t.TempDir()

	cfg := DefaultConfig()
	cfg.Path = dir
	cfg.GCInterval = 0

	db, err := OpenDB(cfg)
	require.NoError(t, err)
	assert.Equal(t, dir, db.Path())
	require.NoError(t, db.Close())
}

func TestWithTxnContextCancelled(t *testing.T) {
	db, err := OpenDB(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = db.WithTxn(ctx, func(txn *badger.Txn) error { return nil })
	assert.Error(t, err)
}
