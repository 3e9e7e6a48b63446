package sharding

import (
	"fmt"
	"strconv"

	"github.com/cespare/xxhash/v2"
)

var _ Strategy = (*HashStrategy)(nil)

// HashStrategy hash 实现的分库分表策略，同一患者的数据总是落在同一张表。
type HashStrategy struct {
	dbPrefix    string
	tablePrefix string

	dbSharding    uint64
	tableSharding uint64
}

// Shard 根据 patientId 进行分库分表
func (h HashStrategy) Shard(patientId uint64) Dst {
	hashVal := xxhash.Sum64String(strconv.FormatUint(patientId, 10))
	dbSuffix := hashVal % h.dbSharding
	tableSuffix := (hashVal / h.dbSharding) % h.tableSharding
	return h.dst(dbSuffix, tableSuffix)
}

// BroadCast 广播
func (h HashStrategy) BroadCast() []Dst {
	res := make([]Dst, 0, h.dbSharding*h.tableSharding)
	for i := uint64(0); i < h.dbSharding; i++ {
		for j := uint64(0); j < h.tableSharding; j++ {
			res = append(res, h.dst(i, j))
		}
	}
	return res
}

func (h HashStrategy) dst(dbSuffix, tableSuffix uint64) Dst {
	return Dst{
		DBSuffix:    dbSuffix,
		TableSuffix: tableSuffix,
		DB:          fmt.Sprintf("%s_%d", h.dbPrefix, dbSuffix),
		Table:       fmt.Sprintf("%s_%d", h.tablePrefix, tableSuffix),
	}
}

func (h HashStrategy) TablePrefix() string {
	return h.tablePrefix
}

// NewHashStrategy 分库 / 分表数小于 1 时按 1 处理
func NewHashStrategy(dbPrefix, tablePrefix string, dbSharding, tableSharding uint64) HashStrategy {
	return HashStrategy{
		dbPrefix:      dbPrefix,
		tablePrefix:   tablePrefix,
		dbSharding:    max(dbSharding, 1),
		tableSharding: max(tableSharding, 1),
	}
}
