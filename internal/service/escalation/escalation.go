package escalation

import (
	"context"
	"fmt"
	"time"

	"github.com/JrMarcco/jreminder/internal/domain"
	"github.com/JrMarcco/jreminder/internal/errs"
	"github.com/JrMarcco/jreminder/internal/repository"
	"github.com/JrMarcco/jreminder/internal/service/lifecycle"
	"go.uber.org/zap"
)

const defaultListLimit = 100

// Service 升级工单管理，供人工处理队列使用。
type Service interface {
	Open(ctx context.Context, esc domain.Escalation) (domain.Escalation, error)
	// Close 关闭后记录 escalation_closed 生命周期事件
	Close(ctx context.Context, id uint64, resolution string, resolvedBy string) (domain.Escalation, error)
	ListOpen(ctx context.Context, offset int, limit int) ([]domain.Escalation, error)
}

var _ Service = (*DefaultService)(nil)

type DefaultService struct {
	repo     repository.EscalationRepo
	recorder *lifecycle.Recorder
	now      func() time.Time
	logger   *zap.Logger
}

func (s *DefaultService) Open(ctx context.Context, esc domain.Escalation) (domain.Escalation, error) {
	if esc.CorrelationId == "" {
		return domain.Escalation{}, fmt.Errorf("%w: correlation id should not be empty", errs.ErrInvalidParam)
	}
	esc.Id = 0
	esc.Status = domain.EscalationStatusOpen
	esc.ClosedAt = nil
	if esc.OpenedAt.IsZero() {
		esc.OpenedAt = s.now()
	}

	saved, err := s.repo.Create(ctx, esc)
	if err != nil {
		return domain.Escalation{}, err
	}
	s.logger.Info(
		"[jreminder] escalation opened",
		zap.Uint64("escalation_id", saved.Id),
		zap.String("correlation_id", saved.CorrelationId),
		zap.Uint64("patient_id", saved.PatientId),
		zap.String("reason", saved.Reason),
	)
	return saved, nil
}

func (s *DefaultService) Close(ctx context.Context, id uint64, resolution string, resolvedBy string) (domain.Escalation, error) {
	if resolvedBy == "" {
		return domain.Escalation{}, fmt.Errorf("%w: resolved by should not be empty", errs.ErrInvalidParam)
	}

	esc, err := s.repo.Close(ctx, id, resolution, resolvedBy, s.now())
	if err != nil {
		return domain.Escalation{}, err
	}

	s.recorder.Observe(lifecycle.EventContext{
		CorrelationId: esc.CorrelationId,
		PatientId:     esc.PatientId,
		Channel:       esc.Channel,
		TemplateName:  esc.TemplateName,
		Category:      esc.Category,
	}).OnEscalationClosed(ctx, esc)
	return esc, nil
}

func (s *DefaultService) ListOpen(ctx context.Context, offset int, limit int) ([]domain.Escalation, error) {
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > defaultListLimit {
		limit = defaultListLimit
	}
	return s.repo.ListOpen(ctx, offset, limit)
}

func NewDefaultService(repo repository.EscalationRepo, recorder *lifecycle.Recorder, logger *zap.Logger) *DefaultService {
	return &DefaultService{
		repo:     repo,
		recorder: recorder,
		now:      time.Now,
		logger:   logger,
	}
}
