package cache

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"summerberry-forecast/models"
)

func TestForecastStats_LocalCounters(t *testing.T) {
	stats := NewForecastStats(nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			site := "alm"
			if i%2 == 0 {
				site = "adm"
			}
			stats.ForecastCompleted(context.Background(), models.ForecastEvent{Site: site, Total: 1500})
		}(i)
	}
	wg.Wait()
	stats.ForecastCompleted(context.Background(), models.ForecastEvent{})

	snap := stats.Snapshot(context.Background())

	assert.Equal(t, "memory", snap.Source)
	assert.Equal(t, int64(11), snap.Total)
	assert.Equal(t, map[string]int64{"alm": 5, "adm": 5, "unknown": 1}, snap.BySite)
	require.NotNil(t, snap.LastForecast)
}

func TestForecastStats_EmptySnapshot(t *testing.T) {
	snap := NewForecastStats(nil, nil).Snapshot(context.Background())

	assert.Equal(t, int64(0), snap.Total)
	assert.Empty(t, snap.BySite)
	assert.Nil(t, snap.LastForecast)
}

func TestForecastStats_RedisDownFallsBackToMemory(t *testing.T) {
	client := newRedisClientUnchecked("127.0.0.1:1")
	defer client.Close()

	stats := NewForecastStats(client, nil)
	stats.ForecastCompleted(context.Background(), models.ForecastEvent{Site: "alm"})

	snap := stats.Snapshot(context.Background())
	assert.Equal(t, "memory", snap.Source)
	assert.Equal(t, int64(1), snap.Total)
}

func TestRedisClient_NilSafe(t *testing.T) {
	var client *RedisClient

	_, err := client.Incr(context.Background(), "k")
	assert.Error(t, err)
	assert.Error(t, client.Ping(context.Background()))
	assert.NoError(t, client.Close())
}
