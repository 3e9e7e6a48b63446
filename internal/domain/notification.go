package domain

import "time"

type NotificationStatus string

const (
	NotificationStatusSent   NotificationStatus = "sent"
	NotificationStatusFailed NotificationStatus = "failed"
)

func (s NotificationStatus) String() string {
	return string(s)
}

// NotificationRecord 通知记录领域对象
type NotificationRecord struct {
	Id                    uint64             `json:"id"`
	PatientId             uint64             `json:"patient_id"`
	Channel               Channel            `json:"channel"`
	Category              Category           `json:"category"`
	TemplateName          string             `json:"template_name"`
	CorrelationId         string             `json:"correlation_id"`
	ProviderCorrelationId string             `json:"provider_correlation_id,omitempty"`
	Status                NotificationStatus `json:"status"`
	Attempts              int32              `json:"attempts"`
	ErrMsg                string             `json:"err_msg,omitempty"`
	CreatedAt             time.Time          `json:"created_at"`
}
