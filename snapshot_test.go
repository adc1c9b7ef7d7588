package transit_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	transit "github.com/lodzlive/transit"
	"github.com/lodzlive/transit/model"
)

func TestStoreEmptyUntilFirstPublish(t *testing.T) {
	store := transit.NewStore()
	assert.Nil(t, store.Latest())
}

func TestStorePublishAndRead(t *testing.T) {
	store := transit.NewStore()

	first := &transit.Snapshot{
		Records:   []model.JoinedRecord{{VehicleRecord: model.VehicleRecord{EntityID: 1}}},
		FetchedAt: time.Now(),
	}
	store.Publish(first)
	require.Same(t, first, store.Latest())

	second := &transit.Snapshot{FetchedAt: time.Now()}
	store.Publish(second)
	assert.Same(t, second, store.Latest())
}

func TestStoreConcurrentReaders(t *testing.T) {
	store := transit.NewStore()

	var wg sync.WaitGroup
	done := make(chan struct{})

	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-done:
					return
				default:
				}
				if snap := store.Latest(); snap != nil {
					_ = len(snap.Records)
				}
			}
		}()
	}

	for i := 0; i < 1000; i++ {
		store.Publish(&transit.Snapshot{
			Records: make([]model.JoinedRecord, i%10),
		})
	}
	close(done)
	wg.Wait()

	require.NotNil(t, store.Latest())
}
