package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/JrMarcco/jreminder/internal/domain"
	"github.com/JrMarcco/jreminder/internal/repository/dao"
)

// LifecycleEventRepo 生命周期事件落库
type LifecycleEventRepo interface {
	Append(ctx context.Context, evt domain.LifecycleEvent) error
}

var _ LifecycleEventRepo = (*DefaultLifecycleEventRepo)(nil)

type DefaultLifecycleEventRepo struct {
	dao dao.LifecycleEventDAO
}

func (r *DefaultLifecycleEventRepo) Append(ctx context.Context, evt domain.LifecycleEvent) error {
	entity, err := r.toEntity(evt)
	if err != nil {
		return err
	}
	return r.dao.Insert(ctx, entity)
}

func (r *DefaultLifecycleEventRepo) toEntity(evt domain.LifecycleEvent) (dao.LifecycleEvent, error) {
	entity := dao.LifecycleEvent{
		Stage:                 evt.Stage.String(),
		CorrelationId:         evt.CorrelationId,
		PatientId:             evt.PatientId,
		Channel:               evt.Channel.String(),
		TemplateName:          evt.TemplateName,
		Category:              evt.Category.String(),
		Attempt:               evt.Attempt,
		NotificationId:        evt.NotificationId,
		ProviderCorrelationId: evt.ProviderCorrelationId,
		ErrMsg:                evt.Error,
		CreatedAt:             evt.Timestamp.UnixMilli(),
	}
	if evt.RetryState != nil {
		data, err := json.Marshal(evt.RetryState)
		if err != nil {
			return dao.LifecycleEvent{}, fmt.Errorf("[jreminder] marshal retry state error: %w", err)
		}
		entity.RetryState = string(data)
	}
	if evt.Consent != nil {
		data, err := json.Marshal(evt.Consent)
		if err != nil {
			return dao.LifecycleEvent{}, fmt.Errorf("[jreminder] marshal consent decision error: %w", err)
		}
		entity.Consent = string(data)
	}
	return entity, nil
}

func NewDefaultLifecycleEventRepo(dao dao.LifecycleEventDAO) *DefaultLifecycleEventRepo {
	return &DefaultLifecycleEventRepo{
		dao: dao,
	}
}
