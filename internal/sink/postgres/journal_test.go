package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"solana-asset-radar/internal/domain"
)

func testRecord(assetID string, score int) *domain.EnrichedRecord {
	first := int64(1_700_000_000_000)
	return &domain.EnrichedRecord{
		AssetID:        assetID,
		FirstSeenMs:    &first,
		FreshnessScore: score,
		Corroboration:  domain.CorroborationVeryClose,
		LiquidityUsd:   5000,
		VolumeUsd:      800,
		Symbol:         "TEST",
		Observations: []domain.SourceObservation{
			{SourceName: "rpc_primary", FirstActivityMs: &first, OK: true, LatencyMs: 42},
			{SourceName: "explorer", Error: "timeout", LatencyMs: 10000},
		},
	}
}

func TestJournal_InsertAndLatest(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	j := NewJournal(pool)

	require.NoError(t, j.Insert(ctx, testRecord("mintA", 80)))

	got, err := j.Latest(ctx, "mintA")
	require.NoError(t, err)
	require.Equal(t, "mintA", got.AssetID)
	require.Equal(t, 80, got.FreshnessScore)
	require.Equal(t, domain.CorroborationVeryClose, got.Corroboration)
	require.NotNil(t, got.FirstSeenMs)
	require.EqualValues(t, 1_700_000_000_000, *got.FirstSeenMs)
	require.Len(t, got.Observations, 2)
	require.True(t, got.Observations[0].OK)
	require.Equal(t, "timeout", got.Observations[1].Error)
}

func TestJournal_LatestNotFound(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	_, err := NewJournal(pool).Latest(context.Background(), "absent")
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestJournal_DuplicateDeliveryIgnored(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	j := NewJournal(pool)
	fixed := time.UnixMilli(1_700_000_100_000)
	j.now = func() time.Time { return fixed }

	require.NoError(t, j.Insert(ctx, testRecord("mintA", 80)))
	require.NoError(t, j.Insert(ctx, testRecord("mintA", 80)))

	records, err := j.TopScored(ctx, 0, 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestJournal_TopScoredOrderAndWindow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	j := NewJournal(pool)

	j.now = func() time.Time { return time.UnixMilli(1000) }
	require.NoError(t, j.Insert(ctx, testRecord("old", 95)))

	j.now = func() time.Time { return time.UnixMilli(2000) }
	require.NoError(t, j.Insert(ctx, testRecord("mid", 40)))

	j.now = func() time.Time { return time.UnixMilli(3000) }
	require.NoError(t, j.Insert(ctx, testRecord("top", 80)))

	records, err := j.TopScored(ctx, 1500, 10)
	require.NoError(t, err)
	require.Len(t, records, 2, "records before the window start must be excluded")
	require.Equal(t, "top", records[0].AssetID)
	require.Equal(t, "mid", records[1].AssetID)
}

func TestJournal_DeliverSwallowsFailures(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	j := NewJournal(pool)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Cancelled context fails the insert; Deliver must not panic or block.
	j.Deliver(ctx, testRecord("mintA", 80))
}
