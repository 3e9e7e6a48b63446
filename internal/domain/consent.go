package domain

import "time"

// ConsentType 授权类型
type ConsentType string

const (
	ConsentTypeAppointmentReminders ConsentType = "appointment_reminders"
	ConsentTypeMedicationReminders  ConsentType = "medication_reminders"
	ConsentTypeDocumentSharing      ConsentType = "document_sharing"
	ConsentTypeCommunication        ConsentType = "communication"
)

func (t ConsentType) String() string {
	return string(t)
}

// ConsentRecord 患者授权记录，有有效期且可撤销，与渠道偏好相互独立
type ConsentRecord struct {
	Id        uint64      `json:"id"`
	Type      ConsentType `json:"type"`
	GrantedAt time.Time   `json:"granted_at"`
	ExpiresAt *time.Time  `json:"expires_at,omitempty"`
	RevokedAt *time.Time  `json:"revoked_at,omitempty"`
}

// ActiveAt 判断在 now 时刻授权是否生效（已授予、未过期、未撤销）
func (c ConsentRecord) ActiveAt(now time.Time) bool {
	if c.GrantedAt.After(now) {
		return false
	}
	if c.RevokedAt != nil && !c.RevokedAt.After(now) {
		return false
	}
	if c.ExpiresAt != nil && !c.ExpiresAt.After(now) {
		return false
	}
	return true
}

// ActiveConsentTypes 返回 now 时刻生效的授权类型（去重，保持原有顺序）
func ActiveConsentTypes(records []ConsentRecord, now time.Time) []ConsentType {
	res := make([]ConsentType, 0, len(records))
	seen := make(map[ConsentType]struct{}, len(records))
	for _, r := range records {
		if !r.ActiveAt(now) {
			continue
		}
		if _, ok := seen[r.Type]; ok {
			continue
		}
		seen[r.Type] = struct{}{}
		res = append(res, r.Type)
	}
	return res
}

// Preferences 患者通知偏好。
//
// 字段为 nil 表示患者偏好未知，一律按未授权处理。
type Preferences struct {
	SmsEnabled      *bool      `json:"sms_enabled,omitempty"`
	SmsAppointments *bool      `json:"sms_appointments,omitempty"`
	SmsMedications  *bool      `json:"sms_medications,omitempty"`
	SmsDocuments    *bool      `json:"sms_documents,omitempty"`
	SmsOptedOutAt   *time.Time `json:"sms_opted_out_at,omitempty"`

	EmailEnabled      *bool      `json:"email_enabled,omitempty"`
	EmailAppointments *bool      `json:"email_appointments,omitempty"`
	EmailMedications  *bool      `json:"email_medications,omitempty"`
	EmailDocuments    *bool      `json:"email_documents,omitempty"`
	EmailOptedOutAt   *time.Time `json:"email_opted_out_at,omitempty"`

	WhatsappEnabled      *bool      `json:"whatsapp_enabled,omitempty"`
	WhatsappConsented    *bool      `json:"whatsapp_consented,omitempty"`
	WhatsappAppointments *bool      `json:"whatsapp_appointments,omitempty"`
	WhatsappMedications  *bool      `json:"whatsapp_medications,omitempty"`
	WhatsappDocuments    *bool      `json:"whatsapp_documents,omitempty"`
	WhatsappOptedOutAt   *time.Time `json:"whatsapp_opted_out_at,omitempty"`
}

// ConsentDecision 授权判定结果
type ConsentDecision struct {
	Allowed                bool          `json:"allowed"`
	Reason                 string        `json:"reason,omitempty"`
	RequiredConsentTypes   []ConsentType `json:"required_consent_types"`
	ExplicitConsentGranted bool          `json:"explicit_consent_granted"`
	ChannelConsentGranted  bool          `json:"channel_consent_granted"`
}
