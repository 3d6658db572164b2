package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/loanops/commsync/internal/model"
	"github.com/stretchr/testify/require"
)

func TestHistoryBufferNewestFirst(t *testing.T) {
	buf := newHistoryBuffer(3)
	for i := 1; i <= 5; i++ {
		buf.Add(&model.UpdateRecord{ID: fmt.Sprintf("rec-%d", i)})
	}

	records := buf.List(10)
	require.Len(t, records, 3)
	require.Equal(t, "rec-5", records[0].ID)
	require.Equal(t, "rec-4", records[1].ID)
	require.Equal(t, "rec-3", records[2].ID)
}

func TestHistoryServiceWithoutRepo(t *testing.T) {
	svc := NewHistoryService(nil, 0, 0)
	defer svc.Close()

	svc.Record(&model.UpdateRecord{ID: "a", OpportunityID: "opp1"})
	svc.Record(&model.UpdateRecord{ID: "b", OpportunityID: "opp2"})

	records, err := svc.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	require.Equal(t, "b", records[0].ID)
}

func TestHistoryServiceRecordAfterClose(t *testing.T) {
	svc := NewHistoryService(nil, 0, 0)
	svc.Close()
	svc.Close() // second close is a no-op

	// A late record from an in-flight request must not panic; it still lands
	// in the memory buffer.
	svc.Record(&model.UpdateRecord{ID: "late", OpportunityID: "opp1"})

	records, err := svc.List(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "late", records[0].ID)
}

func TestMemDedupeStoreExpiry(t *testing.T) {
	store := NewMemDedupeStore()
	ctx := context.Background()

	seen, err := store.Seen(ctx, "opp1")
	require.NoError(t, err)
	require.False(t, seen)

	require.NoError(t, store.Mark(ctx, "opp1", 20*time.Millisecond))
	seen, _ = store.Seen(ctx, "opp1")
	require.True(t, seen)

	time.Sleep(30 * time.Millisecond)
	seen, _ = store.Seen(ctx, "opp1")
	require.False(t, seen)
}
