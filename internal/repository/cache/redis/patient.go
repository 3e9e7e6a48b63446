package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/JrMarcco/jreminder/internal/domain"
	"github.com/JrMarcco/jreminder/internal/errs"
	"github.com/JrMarcco/jreminder/internal/repository/cache"
	"github.com/redis/go-redis/v9"
)

var _ cache.PatientCache = (*PatientRedisCache)(nil)

type PatientRedisCache struct {
	client  redis.Cmdable
	expires time.Duration
}

func (r *PatientRedisCache) Set(ctx context.Context, patient domain.Patient) error {
	data, err := json.Marshal(patient)
	if err != nil {
		return fmt.Errorf("[jreminder] marshal patient error: %w", err)
	}
	if err = r.client.Set(ctx, cache.PatientKey(patient.Id), data, r.expires).Err(); err != nil {
		return fmt.Errorf("[jreminder] set patient to redis error: %w", err)
	}
	return nil
}

func (r *PatientRedisCache) Get(ctx context.Context, id uint64) (domain.Patient, error) {
	val, err := r.client.Get(ctx, cache.PatientKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Patient{}, fmt.Errorf("%w: patient id = %d", errs.ErrPatientCacheKeyNotFound, id)
		}
		return domain.Patient{}, fmt.Errorf("[jreminder] get patient from redis error: %w", err)
	}

	var patient domain.Patient
	if err = json.Unmarshal(val, &patient); err != nil {
		return domain.Patient{}, fmt.Errorf("[jreminder] unmarshal patient error: %w", err)
	}
	return patient, nil
}

func (r *PatientRedisCache) Del(ctx context.Context, id uint64) error {
	return r.client.Del(ctx, cache.PatientKey(id)).Err()
}

func NewPatientRedisCache(rc redis.Cmdable, expires time.Duration) *PatientRedisCache {
	if expires <= 0 {
		expires = cache.DefaultExpires
	}
	return &PatientRedisCache{
		client:  rc,
		expires: expires,
	}
}
