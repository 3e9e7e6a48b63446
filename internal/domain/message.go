package domain

// Message 交给渠道 / 供应商发送的单条消息
type Message struct {
	CorrelationId string
	PatientId     uint64
	Channel       Channel
	Destination   string
	Template      Template
	Attempt       int32
}

// SendResult 供应商受理结果
type SendResult struct {
	Provider              string `json:"provider"`
	ProviderCorrelationId string `json:"provider_correlation_id"`
}
