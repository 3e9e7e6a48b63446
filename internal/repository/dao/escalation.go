package dao

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Escalation 升级记录实体
type Escalation struct {
	Id            uint64 `gorm:"primaryKey;autoIncrement"`
	CorrelationId string `gorm:"index"`
	PatientId     uint64
	Channel       string
	Category      string
	TemplateName  string
	Attempt       int32
	Reason        string
	Status        string `gorm:"index"`
	Resolution    string
	ResolvedBy    string
	OpenedAt      int64
	ClosedAt      *int64
	UpdatedAt     int64
}

func (e Escalation) TableName() string {
	return "escalation"
}

type EscalationDAO interface {
	Insert(ctx context.Context, e Escalation) (Escalation, error)
	GetById(ctx context.Context, id uint64) (Escalation, error)
	// Close 只关闭处于 fromStatus 的记录，返回是否有记录被更新
	Close(ctx context.Context, id uint64, fromStatus string, toStatus string, resolution string, resolvedBy string, closedAt int64) (bool, error)
	ListByStatus(ctx context.Context, status string, offset int, limit int) ([]Escalation, error)
}

var _ EscalationDAO = (*DefaultEscalationDAO)(nil)

type DefaultEscalationDAO struct {
	db *gorm.DB
}

func (d *DefaultEscalationDAO) Insert(ctx context.Context, e Escalation) (Escalation, error) {
	e.UpdatedAt = time.Now().UnixMilli()
	if err := d.db.WithContext(ctx).Create(&e).Error; err != nil {
		return Escalation{}, err
	}
	return e, nil
}

func (d *DefaultEscalationDAO) GetById(ctx context.Context, id uint64) (Escalation, error) {
	var e Escalation
	err := d.db.WithContext(ctx).Where("id = ?", id).First(&e).Error
	return e, err
}

func (d *DefaultEscalationDAO) Close(
	ctx context.Context, id uint64, fromStatus string, toStatus string, resolution string, resolvedBy string, closedAt int64,
) (bool, error) {
	// 以状态作为条件更新，并发关闭时只有一个成功
	res := d.db.WithContext(ctx).Model(&Escalation{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(map[string]any{
			"status":      toStatus,
			"resolution":  resolution,
			"resolved_by": resolvedBy,
			"closed_at":   closedAt,
			"updated_at":  time.Now().UnixMilli(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (d *DefaultEscalationDAO) ListByStatus(ctx context.Context, status string, offset int, limit int) ([]Escalation, error) {
	var list []Escalation
	err := d.db.WithContext(ctx).
		Where("status = ?", status).
		Order("opened_at, id").
		Offset(offset).
		Limit(limit).
		Find(&list).Error
	return list, err
}

func NewDefaultEscalationDAO(db *gorm.DB) *DefaultEscalationDAO {
	return &DefaultEscalationDAO{
		db: db,
	}
}
