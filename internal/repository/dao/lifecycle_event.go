package dao

import (
	"context"
	"fmt"

	"github.com/JrMarcco/easy-kit/xsync"
	"github.com/JrMarcco/jreminder/internal/pkg/sharding"
	"gorm.io/gorm"
)

// LifecycleEvent 生命周期审计事件实体，只插入不更新。
//
// RetryState 与 Consent 以 json 文本存储。
type LifecycleEvent struct {
	Id                    uint64 `gorm:"primaryKey;autoIncrement"`
	Stage                 string
	CorrelationId         string `gorm:"index"`
	PatientId             uint64 `gorm:"index"`
	Channel               string
	TemplateName          string
	Category              string
	Attempt               int32
	NotificationId        uint64
	ProviderCorrelationId string
	ErrMsg                string
	RetryState            string
	Consent               string
	CreatedAt             int64
}

type LifecycleEventDAO interface {
	Insert(ctx context.Context, evt LifecycleEvent) error
	ListByPatient(ctx context.Context, patientId uint64, limit int) ([]LifecycleEvent, error)
}

var _ LifecycleEventDAO = (*LifecycleEventShardingDAO)(nil)

// LifecycleEventShardingDAO LifecycleEventDAO 的分库分表实现，按患者 id 分片。
type LifecycleEventShardingDAO struct {
	dbs      *xsync.Map[string, *gorm.DB]
	strategy sharding.Strategy
}

func (d *LifecycleEventShardingDAO) Insert(ctx context.Context, evt LifecycleEvent) error {
	db, table, err := d.route(evt.PatientId)
	if err != nil {
		return err
	}
	return db.WithContext(ctx).Table(table).Create(&evt).Error
}

// ListByPatient 按时间倒序
func (d *LifecycleEventShardingDAO) ListByPatient(ctx context.Context, patientId uint64, limit int) ([]LifecycleEvent, error) {
	db, table, err := d.route(patientId)
	if err != nil {
		return nil, err
	}

	var list []LifecycleEvent
	err = db.WithContext(ctx).Table(table).
		Where("patient_id = ?", patientId).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&list).Error
	return list, err
}

func (d *LifecycleEventShardingDAO) route(patientId uint64) (*gorm.DB, string, error) {
	dst := d.strategy.Shard(patientId)
	db, ok := d.dbs.Load(dst.DB)
	if !ok {
		return nil, "", fmt.Errorf("[jreminder] sharding db %s not found", dst.DB)
	}
	return db, dst.Table, nil
}

// AutoMigrate 在所有分片上建表
func (d *LifecycleEventShardingDAO) AutoMigrate() error {
	for _, dst := range d.strategy.BroadCast() {
		db, ok := d.dbs.Load(dst.DB)
		if !ok {
			return fmt.Errorf("[jreminder] sharding db %s not found", dst.DB)
		}
		if err := db.Table(dst.Table).AutoMigrate(&LifecycleEvent{}); err != nil {
			return err
		}
	}
	return nil
}

func NewLifecycleEventShardingDAO(dbs *xsync.Map[string, *gorm.DB], strategy sharding.Strategy) *LifecycleEventShardingDAO {
	return &LifecycleEventShardingDAO{
		dbs:      dbs,
		strategy: strategy,
	}
}
