package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/JrMarcco/easy-kit/slice"
	"github.com/JrMarcco/jreminder/internal/domain"
	"github.com/JrMarcco/jreminder/internal/errs"
	"github.com/JrMarcco/jreminder/internal/repository/cache"
	"github.com/JrMarcco/jreminder/internal/repository/dao"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type PatientRepo interface {
	// GetById 患者不存在时返回 errs.ErrPatientNotFound
	GetById(ctx context.Context, id uint64) (domain.Patient, error)
	// Evict 联系方式变更后清理缓存
	Evict(ctx context.Context, id uint64) error
}

var _ PatientRepo = (*DefaultPatientRepo)(nil)

type DefaultPatientRepo struct {
	dao        dao.PatientDAO
	localCache cache.PatientCache
	redisCache cache.PatientCache
	logger     *zap.Logger
}

// GetById 缓存只保存联系方式，偏好和授权每次都从数据库读取，退订和撤回授权立即生效。
func (r *DefaultPatientRepo) GetById(ctx context.Context, id uint64) (domain.Patient, error) {
	patient, err := r.contactOf(ctx, id)
	if err != nil {
		return domain.Patient{}, err
	}

	pref, found, err := r.dao.GetPreference(ctx, id)
	if err != nil {
		return domain.Patient{}, err
	}
	if found {
		patient.Preferences = r.toDomainPreferences(pref)
	}

	consents, err := r.dao.ListConsents(ctx, id)
	if err != nil {
		return domain.Patient{}, err
	}
	patient.Consents = slice.Map(consents, func(_ int, src dao.PatientConsent) domain.ConsentRecord {
		return domain.ConsentRecord{
			Id:        src.Id,
			Type:      domain.ConsentType(src.ConsentType),
			GrantedAt: time.UnixMilli(src.GrantedAt),
			ExpiresAt: millisToTime(src.ExpiresAt),
			RevokedAt: millisToTime(src.RevokedAt),
		}
	})
	return patient, nil
}

func (r *DefaultPatientRepo) contactOf(ctx context.Context, id uint64) (domain.Patient, error) {
	// 从本地缓存获取
	patient, err := r.localCache.Get(ctx, id)
	if err == nil {
		return contactOnly(patient), nil
	}

	// 从 redis 获取
	patient, err = r.redisCache.Get(ctx, id)
	if err == nil {
		patient = contactOnly(patient)
		if lcErr := r.localCache.Set(ctx, patient); lcErr != nil {
			r.logger.Error("[jreminder] failed to refresh patient local cache", zap.Error(lcErr), zap.Uint64("patient_id", id))
		}
		return patient, nil
	}
	if !errors.Is(err, errs.ErrPatientCacheKeyNotFound) {
		r.logger.Warn("[jreminder] failed to get patient from redis", zap.Error(err), zap.Uint64("patient_id", id))
	}

	entity, err := r.dao.GetById(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Patient{}, fmt.Errorf("%w: patient id = %d", errs.ErrPatientNotFound, id)
		}
		return domain.Patient{}, err
	}
	patient = domain.Patient{
		Id:    entity.Id,
		Phone: entity.Phone,
		Email: entity.Email,
	}

	if lcErr := r.localCache.Set(ctx, patient); lcErr != nil {
		r.logger.Error("[jreminder] failed to refresh patient local cache", zap.Error(lcErr), zap.Uint64("patient_id", id))
	}
	if rcErr := r.redisCache.Set(ctx, patient); rcErr != nil {
		r.logger.Error("[jreminder] failed to refresh patient redis cache", zap.Error(rcErr), zap.Uint64("patient_id", id))
	}
	return patient, nil
}

func contactOnly(p domain.Patient) domain.Patient {
	return domain.Patient{
		Id:    p.Id,
		Phone: p.Phone,
		Email: p.Email,
	}
}

func (r *DefaultPatientRepo) toDomainPreferences(entity dao.PatientPreference) *domain.Preferences {
	return &domain.Preferences{
		SmsEnabled:      entity.SmsEnabled,
		SmsAppointments: entity.SmsAppointments,
		SmsMedications:  entity.SmsMedications,
		SmsDocuments:    entity.SmsDocuments,
		SmsOptedOutAt:   millisToTime(entity.SmsOptedOutAt),

		EmailEnabled:      entity.EmailEnabled,
		EmailAppointments: entity.EmailAppointments,
		EmailMedications:  entity.EmailMedications,
		EmailDocuments:    entity.EmailDocuments,
		EmailOptedOutAt:   millisToTime(entity.EmailOptedOutAt),

		WhatsappEnabled:      entity.WhatsappEnabled,
		WhatsappConsented:    entity.WhatsappConsented,
		WhatsappAppointments: entity.WhatsappAppointments,
		WhatsappMedications:  entity.WhatsappMedications,
		WhatsappDocuments:    entity.WhatsappDocuments,
		WhatsappOptedOutAt:   millisToTime(entity.WhatsappOptedOutAt),
	}
}

func (r *DefaultPatientRepo) Evict(ctx context.Context, id uint64) error {
	return errors.Join(r.localCache.Del(ctx, id), r.redisCache.Del(ctx, id))
}

func millisToTime(ms *int64) *time.Time {
	if ms == nil {
		return nil
	}
	t := time.UnixMilli(*ms)
	return &t
}

func NewDefaultPatientRepo(
	dao dao.PatientDAO,
	localCache cache.PatientCache,
	redisCache cache.PatientCache,
	logger *zap.Logger,
) *DefaultPatientRepo {
	return &DefaultPatientRepo{
		dao:        dao,
		localCache: localCache,
		redisCache: redisCache,
		logger:     logger,
	}
}
