package dao

import (
	"context"

	"gorm.io/gorm"
)

// Patient 患者实体，只保留发送需要的联系方式
type Patient struct {
	Id        uint64 `gorm:"primaryKey"`
	Phone     string
	Email     string
	CreatedAt int64
	UpdatedAt int64
}

func (p Patient) TableName() string {
	return "patient"
}

// PatientPreference 患者的渠道偏好，未设置的开关为 NULL
type PatientPreference struct {
	PatientId uint64 `gorm:"primaryKey"`

	SmsEnabled      *bool
	SmsAppointments *bool
	SmsMedications  *bool
	SmsDocuments    *bool
	SmsOptedOutAt   *int64

	EmailEnabled      *bool
	EmailAppointments *bool
	EmailMedications  *bool
	EmailDocuments    *bool
	EmailOptedOutAt   *int64

	WhatsappEnabled      *bool
	WhatsappConsented    *bool
	WhatsappAppointments *bool
	WhatsappMedications  *bool
	WhatsappDocuments    *bool
	WhatsappOptedOutAt   *int64

	UpdatedAt int64
}

func (pp PatientPreference) TableName() string {
	return "patient_preference"
}

// PatientConsent 授权记录
type PatientConsent struct {
	Id          uint64 `gorm:"primaryKey;autoIncrement"`
	PatientId   uint64 `gorm:"index"`
	ConsentType string
	GrantedAt   int64
	ExpiresAt   *int64
	RevokedAt   *int64
}

func (pc PatientConsent) TableName() string {
	return "patient_consent"
}

type PatientDAO interface {
	GetById(ctx context.Context, id uint64) (Patient, error)
	// GetPreference 不存在时 found 为 false
	GetPreference(ctx context.Context, patientId uint64) (pref PatientPreference, found bool, err error)
	ListConsents(ctx context.Context, patientId uint64) ([]PatientConsent, error)
}

var _ PatientDAO = (*DefaultPatientDAO)(nil)

type DefaultPatientDAO struct {
	db *gorm.DB
}

func (d *DefaultPatientDAO) GetById(ctx context.Context, id uint64) (Patient, error) {
	var patient Patient
	err := d.db.WithContext(ctx).Where("id = ?", id).First(&patient).Error
	if err != nil {
		return Patient{}, err
	}
	return patient, nil
}

func (d *DefaultPatientDAO) GetPreference(ctx context.Context, patientId uint64) (PatientPreference, bool, error) {
	var pref PatientPreference
	res := d.db.WithContext(ctx).Where("patient_id = ?", patientId).Limit(1).Find(&pref)
	if res.Error != nil {
		return PatientPreference{}, false, res.Error
	}
	return pref, res.RowsAffected > 0, nil
}

func (d *DefaultPatientDAO) ListConsents(ctx context.Context, patientId uint64) ([]PatientConsent, error) {
	var consents []PatientConsent
	err := d.db.WithContext(ctx).
		Where("patient_id = ?", patientId).
		Order("id").
		Find(&consents).Error
	return consents, err
}

func NewDefaultPatientDAO(db *gorm.DB) *DefaultPatientDAO {
	return &DefaultPatientDAO{
		db: db,
	}
}
