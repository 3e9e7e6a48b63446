package local

import (
	"context"
	"fmt"

	"github.com/JrMarcco/jreminder/internal/domain"
	"github.com/JrMarcco/jreminder/internal/errs"
	"github.com/JrMarcco/jreminder/internal/repository/cache"
	gcache "github.com/patrickmn/go-cache"
)

var _ cache.PatientCache = (*PatientLocalCache)(nil)

type PatientLocalCache struct {
	c *gcache.Cache
}

func (lc *PatientLocalCache) Get(_ context.Context, id uint64) (domain.Patient, error) {
	val, ok := lc.c.Get(cache.PatientKey(id))
	if !ok {
		return domain.Patient{}, fmt.Errorf("%w: patient id = %d", errs.ErrPatientCacheKeyNotFound, id)
	}
	patient, ok := val.(domain.Patient)
	if !ok {
		return domain.Patient{}, fmt.Errorf("[jreminder] unexpected patient local cache value type %T", val)
	}
	return patient, nil
}

func (lc *PatientLocalCache) Set(_ context.Context, patient domain.Patient) error {
	lc.c.Set(cache.PatientKey(patient.Id), patient, gcache.DefaultExpiration)
	return nil
}

func (lc *PatientLocalCache) Del(_ context.Context, id uint64) error {
	lc.c.Delete(cache.PatientKey(id))
	return nil
}

func NewPatientLocalCache(c *gcache.Cache) *PatientLocalCache {
	return &PatientLocalCache{
		c: c,
	}
}
