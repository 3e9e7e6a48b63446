package sharding

// Strategy 分库分表策略
type Strategy interface {
	Shard(patientId uint64) Dst
	BroadCast() []Dst
}

// Dst 目标信息，包含分库和分表信息
type Dst struct {
	DBSuffix    uint64
	TableSuffix uint64

	DB    string
	Table string
}
