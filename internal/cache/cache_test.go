package cache

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rpggio/catalogbulk/internal/domain/record"
)

func TestClassifications_NeverStoresUnknown(t *testing.T) {
	c := NewClassifications(Policy{})

	c.Put("abc", record.IDUnknown)
	_, ok := c.Get("abc")
	require.False(t, ok)

	c.Put("350470106306", record.IDItemBarcode)
	kind, ok := c.Get("350470106306")
	require.True(t, ok)
	require.Equal(t, record.IDItemBarcode, kind)
	require.Equal(t, 1, c.Len())

	c.Clear()
	require.Zero(t, c.Len())
}

func TestClassifications_ZeroPolicyNeverEvicts(t *testing.T) {
	c := NewClassifications(Policy{})
	for i := range 20000 {
		c.Put(strconv.Itoa(i), record.IDItemBarcode)
	}
	require.Equal(t, 20000, c.Len())
	kind, ok := c.Get("0")
	require.True(t, ok)
	require.Equal(t, record.IDItemBarcode, kind)
}

func TestClassifications_TTL(t *testing.T) {
	c := NewClassifications(Policy{TTL: 20 * time.Millisecond})
	c.Put("it123", record.IDItemHrid)

	require.Eventually(t, func() bool {
		_, ok := c.Get("it123")
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestTypes_LoadsOncePerKind(t *testing.T) {
	types := NewTypes(Policy{})
	var loads atomic.Int32
	release := make(chan struct{})

	loader := func(ctx context.Context, kind record.TypeKind) ([]record.Record, error) {
		loads.Add(1)
		<-release
		rec, err := record.New(record.KindType, map[string]any{"id": "loc-1", "name": "Main"})
		return []record.Record{rec}, err
	}

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			recs, err := types.Get(context.Background(), record.TypeLocations, loader)
			require.NoError(t, err)
			require.Len(t, recs, 1)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	require.EqualValues(t, 1, loads.Load())

	_, err := types.Get(context.Background(), record.TypeLocations, loader)
	require.NoError(t, err)
	require.EqualValues(t, 1, loads.Load())

	types.Clear()
	_, ok := types.Peek(record.TypeLocations)
	require.False(t, ok)
}

func TestTypes_FailedLoadIsNotCached(t *testing.T) {
	types := NewTypes(Policy{})
	boom := errors.New("boom")
	calls := 0
	loader := func(context.Context, record.TypeKind) ([]record.Record, error) {
		calls++
		return nil, boom
	}

	_, err := types.Get(context.Background(), record.TypeLoanTypes, loader)
	require.ErrorIs(t, err, boom)
	_, err = types.Get(context.Background(), record.TypeLoanTypes, loader)
	require.ErrorIs(t, err, boom)
	require.Equal(t, 2, calls)
}
