package domain

import "time"

type EscalationStatus string

const (
	EscalationStatusOpen   EscalationStatus = "open"
	EscalationStatusClosed EscalationStatus = "closed"
)

func (s EscalationStatus) String() string {
	return string(s)
}

// Escalation 需要人工介入的升级记录
type Escalation struct {
	Id            uint64           `json:"id"`
	CorrelationId string           `json:"correlation_id"`
	PatientId     uint64           `json:"patient_id"`
	Channel       Channel          `json:"channel"`
	Category      Category         `json:"category"`
	TemplateName  string           `json:"template_name"`
	Attempt       int32            `json:"attempt"`
	Reason        string           `json:"reason"`
	Status        EscalationStatus `json:"status"`
	Resolution    string           `json:"resolution,omitempty"`
	ResolvedBy    string           `json:"resolved_by,omitempty"`
	OpenedAt      time.Time        `json:"opened_at"`
	ClosedAt      *time.Time       `json:"closed_at,omitempty"`
}
