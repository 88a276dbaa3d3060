package idgen

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequence(t *testing.T) {
	g := Sequence("bed")
	assert.Equal(t, "bed-1", g.NewID())
	assert.Equal(t, "bed-2", g.NewID())

	bare := Sequence("")
	assert.Equal(t, "1", bare.NewID())
}

func TestSequence_ConcurrentUnique(t *testing.T) {
	g := Sequence("rx")
	var mu sync.Mutex
	seen := make(map[string]struct{})
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				id := g.NewID()
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 1000)
}

func TestUUID(t *testing.T) {
	id := UUID().NewID()
	_, err := uuid.Parse(id)
	require.NoError(t, err)
}

func TestTimestamp(t *testing.T) {
	fixed := time.UnixMilli(1700000000000)
	g := Timestamp(func() time.Time { return fixed })
	a, b := g.NewID(), g.NewID()
	assert.True(t, strings.HasPrefix(a, "1700000000000-"))
	assert.NotEqual(t, a, b)
}

func TestFromName(t *testing.T) {
	assert.Equal(t, "1", FromName("sequence").NewID())
	_, err := uuid.Parse(FromName("").NewID())
	assert.NoError(t, err)
}
