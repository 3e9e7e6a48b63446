package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/JrMarcco/jreminder/internal/domain"
)

const (
	PatientPrefix  = "patient"
	DefaultExpires = 5 * time.Minute
)

// PatientCache 患者联系方式缓存，不保存偏好和授权。
type PatientCache interface {
	Get(ctx context.Context, id uint64) (domain.Patient, error)
	Set(ctx context.Context, patient domain.Patient) error
	Del(ctx context.Context, id uint64) error
}

func PatientKey(id uint64) string {
	return fmt.Sprintf("%s:%d", PatientPrefix, id)
}
