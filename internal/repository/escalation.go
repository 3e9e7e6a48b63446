package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JrMarcco/easy-kit/slice"
	"github.com/JrMarcco/jreminder/internal/domain"
	"github.com/JrMarcco/jreminder/internal/errs"
	"github.com/JrMarcco/jreminder/internal/repository/dao"
	"gorm.io/gorm"
)

type EscalationRepo interface {
	Create(ctx context.Context, esc domain.Escalation) (domain.Escalation, error)
	GetById(ctx context.Context, id uint64) (domain.Escalation, error)
	// Close 记录不存在返回 errs.ErrEscalationNotFound，已关闭返回 errs.ErrEscalationClosed
	Close(ctx context.Context, id uint64, resolution string, resolvedBy string, closedAt time.Time) (domain.Escalation, error)
	ListOpen(ctx context.Context, offset int, limit int) ([]domain.Escalation, error)
}

var _ EscalationRepo = (*DefaultEscalationRepo)(nil)

type DefaultEscalationRepo struct {
	dao dao.EscalationDAO
}

func (r *DefaultEscalationRepo) Create(ctx context.Context, esc domain.Escalation) (domain.Escalation, error) {
	entity, err := r.dao.Insert(ctx, r.toEntity(esc))
	if err != nil {
		return domain.Escalation{}, err
	}
	return r.toDomain(entity), nil
}

func (r *DefaultEscalationRepo) GetById(ctx context.Context, id uint64) (domain.Escalation, error) {
	entity, err := r.dao.GetById(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Escalation{}, fmt.Errorf("%w: escalation id = %d", errs.ErrEscalationNotFound, id)
		}
		return domain.Escalation{}, err
	}
	return r.toDomain(entity), nil
}

func (r *DefaultEscalationRepo) Close(
	ctx context.Context, id uint64, resolution string, resolvedBy string, closedAt time.Time,
) (domain.Escalation, error) {
	ok, err := r.dao.Close(
		ctx, id,
		domain.EscalationStatusOpen.String(), domain.EscalationStatusClosed.String(),
		resolution, resolvedBy, closedAt.UnixMilli(),
	)
	if err != nil {
		return domain.Escalation{}, err
	}

	esc, err := r.GetById(ctx, id)
	if err != nil {
		return domain.Escalation{}, err
	}
	if !ok {
		return domain.Escalation{}, fmt.Errorf("%w: escalation id = %d", errs.ErrEscalationClosed, id)
	}
	return esc, nil
}

func (r *DefaultEscalationRepo) ListOpen(ctx context.Context, offset int, limit int) ([]domain.Escalation, error) {
	entities, err := r.dao.ListByStatus(ctx, domain.EscalationStatusOpen.String(), offset, limit)
	if err != nil {
		return nil, err
	}
	return slice.Map(entities, func(_ int, src dao.Escalation) domain.Escalation {
		return r.toDomain(src)
	}), nil
}

func (r *DefaultEscalationRepo) toEntity(esc domain.Escalation) dao.Escalation {
	entity := dao.Escalation{
		Id:            esc.Id,
		CorrelationId: esc.CorrelationId,
		PatientId:     esc.PatientId,
		Channel:       esc.Channel.String(),
		Category:      esc.Category.String(),
		TemplateName:  esc.TemplateName,
		Attempt:       esc.Attempt,
		Reason:        esc.Reason,
		Status:        esc.Status.String(),
		Resolution:    esc.Resolution,
		ResolvedBy:    esc.ResolvedBy,
		OpenedAt:      esc.OpenedAt.UnixMilli(),
	}
	if esc.ClosedAt != nil {
		closedAt := esc.ClosedAt.UnixMilli()
		entity.ClosedAt = &closedAt
	}
	return entity
}

func (r *DefaultEscalationRepo) toDomain(entity dao.Escalation) domain.Escalation {
	return domain.Escalation{
		Id:            entity.Id,
		CorrelationId: entity.CorrelationId,
		PatientId:     entity.PatientId,
		Channel:       domain.Channel(entity.Channel),
		Category:      domain.Category(entity.Category),
		TemplateName:  entity.TemplateName,
		Attempt:       entity.Attempt,
		Reason:        entity.Reason,
		Status:        domain.EscalationStatus(entity.Status),
		Resolution:    entity.Resolution,
		ResolvedBy:    entity.ResolvedBy,
		OpenedAt:      time.UnixMilli(entity.OpenedAt),
		ClosedAt:      millisToTime(entity.ClosedAt),
	}
}

func NewDefaultEscalationRepo(dao dao.EscalationDAO) *DefaultEscalationRepo {
	return &DefaultEscalationRepo{
		dao: dao,
	}
}
