package domain

import (
	"fmt"
	"strings"

	"github.com/JrMarcco/jreminder/internal/errs"
)

// Channel 提醒的送达渠道（短信/邮件/WhatsApp）
type Channel string

const (
	ChannelSMS      Channel = "sms"
	ChannelEmail    Channel = "email"
	ChannelWhatsApp Channel = "whatsapp"
)

func (c Channel) String() string {
	return string(c)
}

func (c Channel) Validate() bool {
	return c == ChannelSMS || c == ChannelEmail || c == ChannelWhatsApp
}

func (c Channel) IsSMS() bool {
	return c == ChannelSMS
}

func (c Channel) IsEmail() bool {
	return c == ChannelEmail
}

func (c Channel) IsWhatsApp() bool {
	return c == ChannelWhatsApp
}

// ParseChannel 解析渠道，忽略大小写（"SMS" / "sms" 均可）
func ParseChannel(s string) (Channel, error) {
	c := Channel(strings.ToLower(strings.TrimSpace(s)))
	if !c.Validate() {
		return "", fmt.Errorf("%w: channel = %q", errs.ErrInvalidChannel, s)
	}
	return c, nil
}

// Category 消息用途，用于确定所需的授权类型和子偏好
type Category string

const (
	CategoryAppointment Category = "appointment"
	CategoryMedication  Category = "medication"
	CategoryDocument    Category = "document"
	CategoryGeneral     Category = "general"
)

func (c Category) String() string {
	return string(c)
}

func (c Category) Validate() bool {
	switch c {
	case CategoryAppointment, CategoryMedication, CategoryDocument, CategoryGeneral:
		return true
	}
	return false
}

func ParseCategory(s string) (Category, error) {
	c := Category(strings.ToLower(strings.TrimSpace(s)))
	if !c.Validate() {
		return "", fmt.Errorf("%w: category = %q", errs.ErrInvalidCategory, s)
	}
	return c, nil
}
