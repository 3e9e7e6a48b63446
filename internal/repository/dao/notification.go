package dao

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// Notification 通知记录实体，每个进入发送流程的患者一条
type Notification struct {
	Id                    uint64 `gorm:"primaryKey;autoIncrement"`
	PatientId             uint64 `gorm:"index"`
	Channel               string
	Category              string
	TemplateName          string
	CorrelationId         string `gorm:"uniqueIndex"`
	ProviderCorrelationId string
	Status                string
	Attempts              int32
	ErrMsg                string
	CreatedAt             int64
	UpdatedAt             int64
}

func (n Notification) TableName() string {
	return "notification"
}

type NotificationDAO interface {
	Insert(ctx context.Context, n Notification) (Notification, error)
	GetByCorrelationId(ctx context.Context, correlationId string) (Notification, error)
}

var _ NotificationDAO = (*DefaultNotificationDAO)(nil)

type DefaultNotificationDAO struct {
	db *gorm.DB
}

func (d *DefaultNotificationDAO) Insert(ctx context.Context, n Notification) (Notification, error) {
	now := time.Now().UnixMilli()
	if n.CreatedAt == 0 {
		n.CreatedAt = now
	}
	n.UpdatedAt = now

	if err := d.db.WithContext(ctx).Create(&n).Error; err != nil {
		return Notification{}, err
	}
	return n, nil
}

func (d *DefaultNotificationDAO) GetByCorrelationId(ctx context.Context, correlationId string) (Notification, error) {
	var n Notification
	err := d.db.WithContext(ctx).Where("correlation_id = ?", correlationId).First(&n).Error
	return n, err
}

func NewDefaultNotificationDAO(db *gorm.DB) *DefaultNotificationDAO {
	return &DefaultNotificationDAO{
		db: db,
	}
}
