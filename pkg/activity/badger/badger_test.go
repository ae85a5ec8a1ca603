package badger

import (
	"fmt"
	"sync"
	"testing"

	"github.com/Layr-Labs/web3wallet-go/pkg/activity"
	badgerdb "github.com/dgraph-io/badger/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestBadgerActivityStore_RecordAndList(t *testing.T) {
	bs, err := NewBadgerActivityStore(t.TempDir(), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer func() { _ = bs.Close() }()

	for i := 0; i < 5; i++ {
		record := activity.NewRecord(activity.KindRequestReceived).
			WithTopic("topic-a").
			WithRequest(int64(i), "personal_sign").
			WithDetail(fmt.Sprintf("r%d", i))
		require.NoError(t, bs.Record(record))
	}

	all, err := bs.List(0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "r4", all[0].Detail)
	assert.Equal(t, "r0", all[4].Detail)
	assert.Equal(t, "personal_sign", all[0].Method)

	latest, err := bs.List(2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "r4", latest[0].Detail)
	assert.Equal(t, "r3", latest[1].Detail)
}

func TestBadgerActivityStore_EmptyList(t *testing.T) {
	bs, err := NewBadgerActivityStore(t.TempDir(), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer func() { _ = bs.Close() }()

	records, err := bs.List(10)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestBadgerActivityStore_PersistsAcrossRestart(t *testing.T) {
	dir := t.TempDir()

	bs, err := NewBadgerActivityStore(dir, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, bs.Record(activity.NewRecord(activity.KindPaired).WithDetail("before")))
	require.NoError(t, bs.Close())

	bs, err = NewBadgerActivityStore(dir, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer func() { _ = bs.Close() }()
	require.NoError(t, bs.Record(activity.NewRecord(activity.KindSessionApproved).WithDetail("after")))

	records, err := bs.List(0)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "after", records[0].Detail)
	assert.Equal(t, "before", records[1].Detail)
}

func TestBadgerActivityStore_SkipsCorruptRecords(t *testing.T) {
	bs, err := NewBadgerActivityStore(t.TempDir(), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer func() { _ = bs.Close() }()

	require.NoError(t, bs.Record(activity.NewRecord(activity.KindPaired)))
	require.NoError(t, bs.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set(recordKey(1<<40), []byte("{broken"))
	}))

	records, err := bs.List(0)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestBadgerActivityStore_SchemaMismatch(t *testing.T) {
	dir := t.TempDir()

	bs, err := NewBadgerActivityStore(dir, zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, bs.db.Update(func(txn *badgerdb.Txn) error {
		return txn.Set([]byte(keySchemaVersion), []byte("v0"))
	}))
	require.NoError(t, bs.Close())

	_, err = NewBadgerActivityStore(dir, zaptest.NewLogger(t))
	assert.ErrorContains(t, err, "unsupported schema version")
}

func TestBadgerActivityStore_Closed(t *testing.T) {
	bs, err := NewBadgerActivityStore(t.TempDir(), zaptest.NewLogger(t))
	require.NoError(t, err)
	require.NoError(t, bs.HealthCheck())

	require.NoError(t, bs.Close())
	require.NoError(t, bs.Close())

	assert.Error(t, bs.HealthCheck())
	assert.Error(t, bs.Record(activity.NewRecord(activity.KindPaired)))
	_, err = bs.List(0)
	assert.Error(t, err)
}

func TestBadgerActivityStore_ConcurrentRecord(t *testing.T) {
	bs, err := NewBadgerActivityStore(t.TempDir(), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer func() { _ = bs.Close() }()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, bs.Record(activity.NewRecord(activity.KindRequestReceived)))
		}()
	}
	wg.Wait()

	records, err := bs.List(0)
	require.NoError(t, err)
	assert.Len(t, records, 20)
}
