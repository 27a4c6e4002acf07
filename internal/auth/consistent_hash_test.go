package auth_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/goshop/internal/auth"
)

func TestConsistentHashRing(t *testing.T) {
	t.Parallel()

	nodes := []string{"node-a", "node-b", "node-c"}
	ring := auth.NewConsistentHashRing(nodes, 50)

	t.Run("stable mapping", func(t *testing.T) {
		for i := 0; i < 100; i++ {
			key := fmt.Sprintf("token-%d", i)
			first := ring.GetNode(key)
			require.Contains(t, nodes, first)
			assert.Equal(t, first, ring.GetNode(key))
		}
	})

	t.Run("spreads across nodes", func(t *testing.T) {
		hits := make(map[string]int)
		for i := 0; i < 1000; i++ {
			hits[ring.GetNode(fmt.Sprintf("token-%d", i))]++
		}
		for _, n := range nodes {
			assert.Greater(t, hits[n], 0, "node %s got no keys", n)
		}
	})

	t.Run("empty nodes fall back to default", func(t *testing.T) {
		r := auth.NewConsistentHashRing(nil, 0)
		assert.NotEmpty(t, r.GetNode("anything"))
	})
}
