package twilio

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/JrMarcco/jreminder/internal/domain"
	"github.com/JrMarcco/jreminder/internal/errs"
	"github.com/JrMarcco/jreminder/internal/service/provider"
	"github.com/twilio/twilio-go"
	twclient "github.com/twilio/twilio-go/client"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

const (
	SmsProviderName      = "twilio_sms"
	WhatsAppProviderName = "twilio_whatsapp"

	whatsappPrefix = "whatsapp:"

	defaultTimeout = 10 * time.Second
)

type messageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

type Config struct {
	AccountSid   string `mapstructure:"account_sid"`
	AuthToken    string `mapstructure:"auth_token"`
	SmsFrom      string `mapstructure:"sms_from"`
	WhatsAppFrom string `mapstructure:"whatsapp_from"` // 格式 "whatsapp:+1234567890"
	// Timeout 单次 HTTP 请求超时，默认 10s
	Timeout time.Duration `mapstructure:"timeout"`
}

var _ provider.Provider = (*Provider)(nil)

// Provider twilio 短信 / WhatsApp 供应商，两者只有收发号码格式不同。
type Provider struct {
	name     string
	creator  messageCreator
	from     string
	whatsapp bool
}

func (p *Provider) Name() string {
	return p.name
}

// Send twilio SDK 不支持 ctx，ctx 结束时直接返回，请求本身由 HTTP 客户端超时兜底。
func (p *Provider) Send(ctx context.Context, msg domain.Message) (domain.SendResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.SendResult{}, errs.Retryable(fmt.Errorf("%w: %w", errs.ErrFailedToSend, err))
	}

	to := msg.Destination
	if p.whatsapp {
		to = whatsappPrefix + to
	}

	params := &twilioApi.CreateMessageParams{}
	params.SetTo(to)
	params.SetFrom(p.from)
	params.SetBody(msg.Template.Content)

	type result struct {
		resp *twilioApi.ApiV2010Message
		err  error
	}
	done := make(chan result, 1)
	go func() {
		resp, err := p.creator.CreateMessage(params)
		done <- result{resp: resp, err: err}
	}()

	var r result
	select {
	case r = <-done:
	case <-ctx.Done():
		r.err = ctx.Err()
	}
	if r.err != nil {
		return domain.SendResult{}, classify(r.err)
	}

	res := domain.SendResult{Provider: p.name}
	if r.resp != nil && r.resp.Sid != nil {
		res.ProviderCorrelationId = *r.resp.Sid
	}
	return res, nil
}

// classify 429 和 5xx 可以重试，其它 4xx（号码非法、未开通 WhatsApp 等）重试无效
func classify(err error) error {
	wrapped := fmt.Errorf("%w: %w", errs.ErrFailedToSend, err)

	var restErr *twclient.TwilioRestError
	if errors.As(err, &restErr) {
		if restErr.Status == http.StatusTooManyRequests || restErr.Status >= http.StatusInternalServerError {
			return errs.Retryable(wrapped)
		}
		return errs.Terminal(wrapped)
	}
	return errs.Retryable(wrapped)
}

func newRestClient(cfg Config) *twilio.RestClient {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	c := &twclient.Client{
		Credentials: twclient.NewCredentials(cfg.AccountSid, cfg.AuthToken),
		HTTPClient:  &http.Client{Timeout: timeout},
	}
	c.SetAccountSid(cfg.AccountSid)
	return twilio.NewRestClientWithParams(
		twilio.ClientParams{
			Username: cfg.AccountSid,
			Password: cfg.AuthToken,
			Client:   c,
		},
	)
}

func validate(cfg Config, from string) error {
	if cfg.AccountSid == "" || cfg.AuthToken == "" {
		return fmt.Errorf("%w: twilio account sid and auth token should not be empty", errs.ErrInvalidParam)
	}
	if from == "" {
		return fmt.Errorf("%w: twilio sender number should not be empty", errs.ErrInvalidParam)
	}
	return nil
}

func NewSmsProvider(cfg Config) (*Provider, error) {
	if err := validate(cfg, cfg.SmsFrom); err != nil {
		return nil, err
	}
	return &Provider{
		name:    SmsProviderName,
		creator: newRestClient(cfg).Api,
		from:    cfg.SmsFrom,
	}, nil
}

func NewWhatsAppProvider(cfg Config) (*Provider, error) {
	if err := validate(cfg, cfg.WhatsAppFrom); err != nil {
		return nil, err
	}
	return &Provider{
		name:     WhatsAppProviderName,
		creator:  newRestClient(cfg).Api,
		from:     cfg.WhatsAppFrom,
		whatsapp: true,
	}, nil
}
