package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/Layr-Labs/web3wallet-go/pkg/activity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestMemoryActivityStore_RecordAndList(t *testing.T) {
	m := NewMemoryActivityStore(zaptest.NewLogger(t))

	for i := 0; i < 3; i++ {
		require.NoError(t, m.Record(activity.NewRecord(activity.KindRequestReceived).WithDetail(fmt.Sprintf("r%d", i))))
	}

	all, err := m.List(0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "r2", all[0].Detail)
	assert.Equal(t, "r0", all[2].Detail)

	latest, err := m.List(2)
	require.NoError(t, err)
	require.Len(t, latest, 2)
	assert.Equal(t, "r2", latest[0].Detail)
	assert.Equal(t, "r1", latest[1].Detail)
}

func TestMemoryActivityStore_EmptyList(t *testing.T) {
	m := NewMemoryActivityStore(zaptest.NewLogger(t))
	records, err := m.List(10)
	require.NoError(t, err)
	assert.NotNil(t, records)
	assert.Empty(t, records)
}

func TestMemoryActivityStore_CopiesRecords(t *testing.T) {
	m := NewMemoryActivityStore(zaptest.NewLogger(t))
	record := activity.NewRecord(activity.KindPaired).WithTopic("original")
	require.NoError(t, m.Record(record))

	record.Topic = "mutated"
	listed, err := m.List(1)
	require.NoError(t, err)
	assert.Equal(t, "original", listed[0].Topic)

	listed[0].Topic = "mutated again"
	listed, err = m.List(1)
	require.NoError(t, err)
	assert.Equal(t, "original", listed[0].Topic)
}

func TestMemoryActivityStore_RejectsInvalidRecords(t *testing.T) {
	m := NewMemoryActivityStore(zaptest.NewLogger(t))
	assert.Error(t, m.Record(nil))
	assert.Error(t, m.Record(&activity.Record{Kind: activity.KindPaired}))
}

func TestMemoryActivityStore_Closed(t *testing.T) {
	m := NewMemoryActivityStore(zaptest.NewLogger(t))
	require.NoError(t, m.HealthCheck())
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	assert.Error(t, m.HealthCheck())
	assert.Error(t, m.Record(activity.NewRecord(activity.KindPaired)))
	_, err := m.List(0)
	assert.Error(t, err)
}

func TestMemoryActivityStore_ConcurrentRecord(t *testing.T) {
	m := NewMemoryActivityStore(zaptest.NewLogger(t))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, m.Record(activity.NewRecord(activity.KindRequestReceived)))
		}()
	}
	wg.Wait()

	records, err := m.List(0)
	require.NoError(t, err)
	assert.Len(t, records, 50)
}
