package repository

import (
	"context"
	"time"

	"github.com/JrMarcco/jreminder/internal/domain"
	"github.com/JrMarcco/jreminder/internal/repository/dao"
)

type NotificationRepo interface {
	Save(ctx context.Context, record domain.NotificationRecord) (domain.NotificationRecord, error)
	GetByCorrelationId(ctx context.Context, correlationId string) (domain.NotificationRecord, error)
}

var _ NotificationRepo = (*DefaultNotificationRepo)(nil)

type DefaultNotificationRepo struct {
	dao dao.NotificationDAO
}

func (r *DefaultNotificationRepo) Save(ctx context.Context, record domain.NotificationRecord) (domain.NotificationRecord, error) {
	entity, err := r.dao.Insert(ctx, r.toEntity(record))
	if err != nil {
		return domain.NotificationRecord{}, err
	}
	return r.toDomain(entity), nil
}

func (r *DefaultNotificationRepo) GetByCorrelationId(ctx context.Context, correlationId string) (domain.NotificationRecord, error) {
	entity, err := r.dao.GetByCorrelationId(ctx, correlationId)
	if err != nil {
		return domain.NotificationRecord{}, err
	}
	return r.toDomain(entity), nil
}

func (r *DefaultNotificationRepo) toEntity(record domain.NotificationRecord) dao.Notification {
	var createdAt int64
	if !record.CreatedAt.IsZero() {
		createdAt = record.CreatedAt.UnixMilli()
	}
	return dao.Notification{
		Id:                    record.Id,
		PatientId:             record.PatientId,
		Channel:               record.Channel.String(),
		Category:              record.Category.String(),
		TemplateName:          record.TemplateName,
		CorrelationId:         record.CorrelationId,
		ProviderCorrelationId: record.ProviderCorrelationId,
		Status:                record.Status.String(),
		Attempts:              record.Attempts,
		ErrMsg:                record.ErrMsg,
		CreatedAt:             createdAt,
	}
}

func (r *DefaultNotificationRepo) toDomain(entity dao.Notification) domain.NotificationRecord {
	return domain.NotificationRecord{
		Id:                    entity.Id,
		PatientId:             entity.PatientId,
		Channel:               domain.Channel(entity.Channel),
		Category:              domain.Category(entity.Category),
		TemplateName:          entity.TemplateName,
		CorrelationId:         entity.CorrelationId,
		ProviderCorrelationId: entity.ProviderCorrelationId,
		Status:                domain.NotificationStatus(entity.Status),
		Attempts:              entity.Attempts,
		ErrMsg:                entity.ErrMsg,
		CreatedAt:             time.UnixMilli(entity.CreatedAt),
	}
}

func NewDefaultNotificationRepo(dao dao.NotificationDAO) *DefaultNotificationRepo {
	return &DefaultNotificationRepo{
		dao: dao,
	}
}
