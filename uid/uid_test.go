package uid

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/hatlonely/ormx/ref"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnowflakeGenerator(t *testing.T) {
	machineID := int64(7)
	g := NewSnowflakeGeneratorWithOptions(&SnowflakeOptions{MachineID: &machineID})

	ctx := context.Background()
	var last int64
	for i := 0; i < 10000; i++ {
		id, err := g.Generate(ctx)
		require.NoError(t, err)
		assert.Greater(t, id, last)
		assert.Equal(t, machineID, (id>>machineIDShift)&maxMachineID)
		last = id
	}
}

func TestSnowflakeGeneratorConcurrent(t *testing.T) {
	g := NewSnowflakeGeneratorWithOptions(nil)

	var mu sync.Mutex
	ids := map[int64]bool{}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				id, _ := g.Generate(context.Background())
				mu.Lock()
				ids[id] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, ids, 8000)
}

func TestTimestampSeqGenerator(t *testing.T) {
	g := NewTimestampSeqGenerator()

	var last int64
	for i := 0; i < 10000; i++ {
		id, err := g.Generate(context.Background())
		require.NoError(t, err)
		assert.Greater(t, id, last)
		last = id
	}
}

func TestRedisGenerator(t *testing.T) {
	mr := miniredis.RunT(t)

	g, err := NewRedisGeneratorWithOptions(&RedisOptions{Addr: mr.Addr(), Key: "test:customer"})
	require.NoError(t, err)
	defer g.Close()

	ctx := context.Background()
	for i := int64(1); i <= 3; i++ {
		id, err := g.Generate(ctx)
		require.NoError(t, err)
		assert.Equal(t, i, id)
	}

	v, err := mr.Get("test:customer")
	require.NoError(t, err)
	assert.Equal(t, "3", v)
}

func TestUUIDGenerator(t *testing.T) {
	g := NewUUIDGeneratorWithOptions(&UUIDOptions{Version: "v7", WithHyphens: true})
	s := g.Generate()
	assert.Len(t, s, 36)
	assert.Equal(t, 4, strings.Count(s, "-"))
	assert.Equal(t, byte('7'), s[14])

	g = NewUUIDGeneratorWithOptions(nil)
	s = g.Generate()
	assert.Len(t, s, 32)
	assert.NotContains(t, s, "-")
}

func TestNewGeneratorWithOptions(t *testing.T) {
	ig, err := NewIntGeneratorWithOptions(&ref.TypeOptions{
		Type:    "SnowflakeGenerator",
		Options: map[string]any{"machineID": 3},
	})
	require.NoError(t, err)
	id, err := ig.Generate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(3), (id>>machineIDShift)&maxMachineID)

	sg, err := NewStrGeneratorWithOptions(&ref.TypeOptions{
		Type:    "UUIDGenerator",
		Options: map[string]any{"withHyphens": true},
	})
	require.NoError(t, err)
	assert.Len(t, sg.Generate(), 36)

	_, err = NewStrGeneratorWithOptions(&ref.TypeOptions{Type: "SnowflakeGenerator", Options: map[string]any{}})
	assert.Error(t, err)

	_, err = NewIntGeneratorWithOptions(&ref.TypeOptions{Type: "Unknown"})
	assert.Error(t, err)
}
