package channel

import (
	"context"
	"fmt"
	"strings"

	"github.com/JrMarcco/jreminder/internal/domain"
	"github.com/JrMarcco/jreminder/internal/errs"
	"github.com/JrMarcco/jreminder/internal/service/provider"
	"go.uber.org/zap"
)

var _ Channel = (*baseChannel)(nil)

type baseChannel struct {
	sb       provider.SelectorBuilder
	validate func(dest string) error
	logger   *zap.Logger
}

// Send 依次尝试各供应商，直到有一个成功。
//
// 全部供应商都失败时，只有每个失败都是不可重试的才返回不可重试错误。
func (bc *baseChannel) Send(ctx context.Context, msg domain.Message) (domain.SendResult, error) {
	if err := bc.validate(msg.Destination); err != nil {
		return domain.SendResult{}, errs.Terminal(err)
	}

	selector, err := bc.sb.Build()
	if err != nil {
		return domain.SendResult{}, errs.Terminal(fmt.Errorf("%w: %w", errs.ErrFailedToSend, err))
	}

	var lastErr error
	allTerminal := true
	for {
		p, selectErr := selector.Next(ctx, msg)
		if selectErr != nil {
			break
		}

		res, sendErr := p.Send(ctx, msg)
		if sendErr == nil {
			return res, nil
		}

		bc.logger.Warn(
			"[jreminder] provider failed to send, try next provider",
			zap.String("provider", p.Name()),
			zap.String("channel", msg.Channel.String()),
			zap.String("correlation_id", msg.CorrelationId),
			zap.Int32("attempt", msg.Attempt),
			zap.Error(sendErr),
		)
		lastErr = sendErr
		allTerminal = allTerminal && errs.IsTerminal(sendErr)
	}

	if lastErr == nil {
		return domain.SendResult{}, errs.Terminal(fmt.Errorf("%w: channel = %s", errs.ErrNoAvailableProvider, msg.Channel))
	}
	if allTerminal {
		return domain.SendResult{}, lastErr
	}
	return domain.SendResult{}, errs.Retryable(lastErr)
}

func requirePhone(dest string) error {
	if strings.TrimSpace(dest) == "" {
		return fmt.Errorf("%w: phone number is empty", errs.ErrMissingDestination)
	}
	return nil
}

func requireEmail(dest string) error {
	if strings.TrimSpace(dest) == "" {
		return fmt.Errorf("%w: email address is empty", errs.ErrMissingDestination)
	}
	if !strings.Contains(dest, "@") {
		return fmt.Errorf("%w: malformed email address %q", errs.ErrMissingDestination, dest)
	}
	return nil
}

var _ Channel = (*SmsChannel)(nil)

type SmsChannel struct {
	baseChannel
}

func NewSmsChannel(sb provider.SelectorBuilder, logger *zap.Logger) *SmsChannel {
	return &SmsChannel{
		baseChannel: baseChannel{
			sb:       sb,
			validate: requirePhone,
			logger:   logger,
		},
	}
}

var _ Channel = (*EmailChannel)(nil)

type EmailChannel struct {
	baseChannel
}

func NewEmailChannel(sb provider.SelectorBuilder, logger *zap.Logger) *EmailChannel {
	return &EmailChannel{
		baseChannel: baseChannel{
			sb:       sb,
			validate: requireEmail,
			logger:   logger,
		},
	}
}

var _ Channel = (*WhatsAppChannel)(nil)

type WhatsAppChannel struct {
	baseChannel
}

func NewWhatsAppChannel(sb provider.SelectorBuilder, logger *zap.Logger) *WhatsAppChannel {
	return &WhatsAppChannel{
		baseChannel: baseChannel{
			sb:       sb,
			validate: requirePhone,
			logger:   logger,
		},
	}
}
