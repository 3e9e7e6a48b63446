package email

import (
	"context"
	"errors"
	"fmt"
	"net/textproto"
	"strings"
	"time"

	"github.com/JrMarcco/jreminder/internal/domain"
	"github.com/JrMarcco/jreminder/internal/errs"
	"github.com/JrMarcco/jreminder/internal/service/provider"
	"github.com/google/uuid"
	"github.com/wneessen/go-mail"
)

const (
	SmtpProviderName = "smtp"

	defaultDialTimeout = 10 * time.Second
)

// mailSender 由 *mail.Client 实现
type mailSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

type SmtpConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	// TLS mandatory / opportunistic / none，默认 opportunistic
	TLS     string        `mapstructure:"tls"`
	Timeout time.Duration `mapstructure:"timeout"`
}

var _ provider.Provider = (*SmtpProvider)(nil)

type SmtpProvider struct {
	client mailSender
	from   string
	domain string
	now    func() time.Time
}

func (p *SmtpProvider) Name() string {
	return SmtpProviderName
}

// Send 发送在 ctx 结束时立即返回，不等待卡住的 SMTP 会话。
func (p *SmtpProvider) Send(ctx context.Context, msg domain.Message) (domain.SendResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.SendResult{}, errs.Retryable(fmt.Errorf("%w: %w", errs.ErrFailedToSend, err))
	}

	messageId := fmt.Sprintf("%s@%s", uuid.NewString(), p.domain)
	m, err := p.compose(messageId, msg)
	if err != nil {
		return domain.SendResult{}, errs.Terminal(fmt.Errorf("%w: %w", errs.ErrInvalidParam, err))
	}

	done := make(chan error, 1)
	go func() {
		done <- p.client.DialAndSendWithContext(ctx, m)
	}()

	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		return domain.SendResult{}, classify(err)
	}
	return domain.SendResult{
		Provider:              SmtpProviderName,
		ProviderCorrelationId: "<" + messageId + ">",
	}, nil
}

var headerSanitizer = strings.NewReplacer("\r", " ", "\n", " ")

func (p *SmtpProvider) compose(messageId string, msg domain.Message) (*mail.Msg, error) {
	subject := msg.Template.Subject
	if subject == "" {
		subject = msg.Template.Name
	}

	m := mail.NewMsg()
	if err := m.From(p.from); err != nil {
		return nil, err
	}
	if err := m.To(msg.Destination); err != nil {
		return nil, err
	}
	m.Subject(headerSanitizer.Replace(subject))
	m.SetMessageIDWithValue(messageId)
	m.SetDateWithValue(p.now())
	m.SetGenHeader("X-Correlation-Id", headerSanitizer.Replace(msg.CorrelationId))
	m.SetBodyString(mail.TypeTextPlain, msg.Template.Content)
	return m, nil
}

// classify 5xx 是永久性失败（邮箱不存在、被拒收），4xx、超时和网络错误可以重试
func classify(err error) error {
	wrapped := fmt.Errorf("%w: %w", errs.ErrFailedToSend, err)

	var sendErr *mail.SendError
	if errors.As(err, &sendErr) && sendErr.ErrorCode() >= 500 {
		return errs.Terminal(wrapped)
	}
	var tpErr *textproto.Error
	if errors.As(err, &tpErr) && tpErr.Code >= 500 {
		return errs.Terminal(wrapped)
	}
	return errs.Retryable(wrapped)
}

func tlsPolicyOf(s string) (mail.TLSPolicy, error) {
	switch strings.ToLower(s) {
	case "", "opportunistic":
		return mail.TLSOpportunistic, nil
	case "mandatory":
		return mail.TLSMandatory, nil
	case "none":
		return mail.NoTLS, nil
	}
	return mail.NoTLS, fmt.Errorf("%w: unknown smtp tls policy %q", errs.ErrInvalidParam, s)
}

func NewSmtpProvider(cfg SmtpConfig) (*SmtpProvider, error) {
	if cfg.Host == "" || cfg.From == "" {
		return nil, fmt.Errorf("%w: smtp host and from should not be empty", errs.ErrInvalidParam)
	}

	policy, err := tlsPolicyOf(cfg.TLS)
	if err != nil {
		return nil, err
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}

	opts := []mail.Option{
		mail.WithTLSPolicy(policy),
		mail.WithTimeout(timeout),
	}
	if cfg.Port > 0 {
		opts = append(opts, mail.WithPort(cfg.Port))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errs.ErrInvalidParam, err)
	}

	senderDomain := cfg.Host
	if at := strings.LastIndex(cfg.From, "@"); at >= 0 {
		senderDomain = strings.Trim(cfg.From[at+1:], "<> ")
	}

	return &SmtpProvider{
		client: client,
		from:   cfg.From,
		domain: senderDomain,
		now:    time.Now,
	}, nil
}
