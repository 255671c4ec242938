package performance

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkerPoolRunsEveryTask(t *testing.T) {
	pool := NewWorkerPool(4)
	assert.False(t, pool.Submit(func() {}), "submit before start")

	pool.Start()
	var done atomic.Int64
	for i := 0; i < 1000; i++ {
		require.True(t, pool.Submit(func() { done.Add(1) }))
	}
	pool.Wait()
	assert.Equal(t, int64(1000), done.Load())

	stats := pool.Stats()
	assert.Equal(t, 4, stats.Workers)
	assert.True(t, stats.Running)
	assert.Equal(t, uint64(1000), stats.TasksTotal)
	assert.Equal(t, uint64(1000), stats.TasksDone)

	pool.Stop()
	pool.Stop()
	assert.False(t, pool.Stats().Running)
	assert.False(t, pool.Submit(func() {}))
}

func TestNewWorkerPoolDefaultsToCPUs(t *testing.T) {
	assert.Positive(t, NewWorkerPool(0).Workers())
}

func TestForEach(t *testing.T) {
	for _, workers := range []int{0, 1, 3, 64} {
		out := make([]int, 100)
		ForEach(workers, len(out), func(i int) { out[i] = i * i })
		for i, v := range out {
			require.Equal(t, i*i, v, "workers=%d index=%d", workers, i)
		}
	}

	called := false
	ForEach(4, 0, func(int) { called = true })
	assert.False(t, called)
}

func BenchmarkForEach(b *testing.B) {
	out := make([]float64, 4096)
	for i := 0; i < b.N; i++ {
		ForEach(0, len(out), func(j int) { out[j] = float64(j) * 1.0001 })
	}
}
