package sharding

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashStrategy_Shard(t *testing.T) {
	t.Parallel()

	s := NewHashStrategy("jreminder", "lifecycle_event", 2, 4)

	seen := make(map[string]struct{})
	for id := uint64(1); id <= 1000; id++ {
		dst := s.Shard(id)
		assert.Less(t, dst.DBSuffix, uint64(2))
		assert.Less(t, dst.TableSuffix, uint64(4))
		// 相同 id 总是落到相同位置
		assert.Equal(t, dst, s.Shard(id))
		seen[dst.DB+"."+dst.Table] = struct{}{}
	}
	assert.Len(t, seen, 8)
}

func TestHashStrategy_BroadCast(t *testing.T) {
	t.Parallel()

	dsts := NewHashStrategy("jreminder", "lifecycle_event", 2, 3).BroadCast()
	assert.Len(t, dsts, 6)
	assert.Equal(t, Dst{DB: "jreminder_0", Table: "lifecycle_event_0"}, dsts[0])
	assert.Equal(t, Dst{DBSuffix: 1, TableSuffix: 2, DB: "jreminder_1", Table: "lifecycle_event_2"}, dsts[5])

	single := NewHashStrategy("jreminder", "lifecycle_event", 0, 0)
	assert.Equal(t, "lifecycle_event_0", single.Shard(42).Table)
	assert.Equal(t, "lifecycle_event", single.TablePrefix())
}
