package consent

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/JrMarcco/jreminder/internal/domain"
	"github.com/JrMarcco/jreminder/internal/errs"
)

// requiredConsentTypes 各用途需要的显式授权类型，满足其一即可。
// 空集合表示该用途不需要显式授权。
var requiredConsentTypes = map[domain.Category][]domain.ConsentType{
	domain.CategoryAppointment: {domain.ConsentTypeAppointmentReminders, domain.ConsentTypeCommunication},
	domain.CategoryMedication:  {domain.ConsentTypeMedicationReminders},
	domain.CategoryDocument:    {domain.ConsentTypeDocumentSharing},
	domain.CategoryGeneral:     {},
}

// RequiredConsentTypes 返回用途对应的显式授权类型（副本）
func RequiredConsentTypes(category domain.Category) []domain.ConsentType {
	return slices.Clone(requiredConsentTypes[category])
}

// channelFlags 某个渠道在某个用途下需要同时为 true 的偏好开关
type channelFlags struct {
	optedOutAt *time.Time
	checks     []flagCheck
}

type flagCheck struct {
	val  *bool
	desc string
}

// Evaluate 判定是否允许在指定渠道发送指定用途的提醒。
//
// 纯函数，无副作用，可用于预览。偏好缺失一律视为未授权；
// 渠道退订时间一旦设置即拒绝，不论授权记录是否有效。
func Evaluate(
	channel domain.Channel, category domain.Category, prefs *domain.Preferences, active []domain.ConsentType,
) (domain.ConsentDecision, error) {
	if !channel.Validate() {
		return domain.ConsentDecision{}, fmt.Errorf("%w: channel = %q", errs.ErrInvalidChannel, channel)
	}
	if !category.Validate() {
		return domain.ConsentDecision{}, fmt.Errorf("%w: category = %q", errs.ErrInvalidCategory, category)
	}

	required := RequiredConsentTypes(category)
	decision := domain.ConsentDecision{
		RequiredConsentTypes: required,
	}

	channelReason := channelDenyReason(channel, category, prefs)
	decision.ChannelConsentGranted = channelReason == ""

	explicitReason := ""
	if len(required) > 0 {
		decision.ExplicitConsentGranted = slices.ContainsFunc(active, func(t domain.ConsentType) bool {
			return slices.Contains(required, t)
		})
		if !decision.ExplicitConsentGranted {
			explicitReason = fmt.Sprintf(
				"explicit consent missing: no active consent of type [%s] for %s messages",
				joinTypes(required), category,
			)
		}
	}

	decision.Allowed = decision.ChannelConsentGranted && explicitReason == ""
	switch {
	case channelReason != "":
		decision.Reason = channelReason
	case explicitReason != "":
		decision.Reason = explicitReason
	}
	return decision, nil
}

func channelDenyReason(channel domain.Channel, category domain.Category, prefs *domain.Preferences) string {
	prefix := fmt.Sprintf("%s channel consent not granted: ", channel)
	if prefs == nil {
		return prefix + "notification preferences are unknown"
	}

	flags := flagsOf(channel, category, prefs)
	if flags.optedOutAt != nil {
		return prefix + fmt.Sprintf("patient opted out at %s", flags.optedOutAt.UTC().Format(time.RFC3339))
	}

	for _, check := range flags.checks {
		if check.val == nil {
			return prefix + check.desc + " is not set"
		}
		if !*check.val {
			return prefix + check.desc + " is disabled"
		}
	}
	return ""
}

func flagsOf(channel domain.Channel, category domain.Category, prefs *domain.Preferences) channelFlags {
	var flags channelFlags
	var appointments, medications, documents *bool

	switch channel {
	case domain.ChannelSMS:
		flags.optedOutAt = prefs.SmsOptedOutAt
		flags.checks = append(flags.checks, flagCheck{val: prefs.SmsEnabled, desc: "sms notifications"})
		appointments, medications, documents = prefs.SmsAppointments, prefs.SmsMedications, prefs.SmsDocuments
	case domain.ChannelEmail:
		flags.optedOutAt = prefs.EmailOptedOutAt
		flags.checks = append(flags.checks, flagCheck{val: prefs.EmailEnabled, desc: "email notifications"})
		appointments, medications, documents = prefs.EmailAppointments, prefs.EmailMedications, prefs.EmailDocuments
	case domain.ChannelWhatsApp:
		flags.optedOutAt = prefs.WhatsappOptedOutAt
		flags.checks = append(flags.checks,
			flagCheck{val: prefs.WhatsappEnabled, desc: "whatsapp notifications"},
			flagCheck{val: prefs.WhatsappConsented, desc: "whatsapp consent"},
		)
		appointments, medications, documents = prefs.WhatsappAppointments, prefs.WhatsappMedications, prefs.WhatsappDocuments
	}

	// general 用途只看渠道总开关
	switch category {
	case domain.CategoryAppointment:
		flags.checks = append(flags.checks, flagCheck{val: appointments, desc: fmt.Sprintf("%s appointment reminders", channel)})
	case domain.CategoryMedication:
		flags.checks = append(flags.checks, flagCheck{val: medications, desc: fmt.Sprintf("%s medication reminders", channel)})
	case domain.CategoryDocument:
		flags.checks = append(flags.checks, flagCheck{val: documents, desc: fmt.Sprintf("%s document notifications", channel)})
	}
	return flags
}

func joinTypes(types []domain.ConsentType) string {
	strs := make([]string, 0, len(types))
	for _, t := range types {
		strs = append(strs, t.String())
	}
	return strings.Join(strs, ", ")
}
