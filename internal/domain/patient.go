package domain

// Patient 发送所需的患者信息投影
type Patient struct {
	Id          uint64          `json:"id"`
	Phone       string          `json:"phone,omitempty"`
	Email       string          `json:"email,omitempty"`
	Preferences *Preferences    `json:"preferences,omitempty"`
	Consents    []ConsentRecord `json:"consents,omitempty"`
}

// Destination 返回指定渠道的收件地址，缺失时返回空串
func (p Patient) Destination(c Channel) string {
	switch c {
	case ChannelSMS, ChannelWhatsApp:
		return p.Phone
	case ChannelEmail:
		return p.Email
	}
	return ""
}
