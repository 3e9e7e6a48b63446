package ioc

import (
	"github.com/JrMarcco/jreminder/internal/domain"
	"github.com/JrMarcco/jreminder/internal/service/channel"
	"github.com/JrMarcco/jreminder/internal/service/dispatch"
	"github.com/JrMarcco/jreminder/internal/service/provider"
	"github.com/JrMarcco/jreminder/internal/service/provider/email"
	"github.com/JrMarcco/jreminder/internal/service/provider/selector"
	"github.com/JrMarcco/jreminder/internal/service/provider/sms"
	"github.com/JrMarcco/jreminder/internal/service/provider/twilio"
	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ServiceFxOpt = fx.Options(
	// provider
	fx.Provide(
		fx.Annotate(
			InitSmsProviders,
			fx.ResultTags(`name:"sms_providers"`),
		),
		fx.Annotate(
			InitEmailProviders,
			fx.ResultTags(`name:"email_providers"`),
		),
		fx.Annotate(
			InitWhatsAppProviders,
			fx.ResultTags(`name:"whatsapp_providers"`),
		),
	),

	// selector builder
	fx.Provide(
		fx.Annotate(
			selector.NewSeqSelectorBuilder,
			fx.As(new(provider.SelectorBuilder)),
			fx.ParamTags(`name:"sms_providers"`),
			fx.ResultTags(`name:"sms_selector_builder"`),
		),
		fx.Annotate(
			selector.NewSeqSelectorBuilder,
			fx.As(new(provider.SelectorBuilder)),
			fx.ParamTags(`name:"email_providers"`),
			fx.ResultTags(`name:"email_selector_builder"`),
		),
		fx.Annotate(
			selector.NewSeqSelectorBuilder,
			fx.As(new(provider.SelectorBuilder)),
			fx.ParamTags(`name:"whatsapp_providers"`),
			fx.ResultTags(`name:"whatsapp_selector_builder"`),
		),
	),

	// channel
	fx.Provide(
		fx.Annotate(
			channel.NewSmsChannel,
			fx.ParamTags(`name:"sms_selector_builder"`),
		),
		fx.Annotate(
			channel.NewEmailChannel,
			fx.ParamTags(`name:"email_selector_builder"`),
		),
		fx.Annotate(
			channel.NewWhatsAppChannel,
			fx.ParamTags(`name:"whatsapp_selector_builder"`),
		),
		// channel dispatcher
		fx.Annotate(
			InitChannelMap,
			fx.ParamTags(``, ``, ``, `name:"sms_providers"`, `name:"email_providers"`, `name:"whatsapp_providers"`),
		),
		fx.Annotate(
			channel.NewDispatcher,
			fx.As(new(dispatch.Sender)),
		),
	),
)

type throttleConfig struct {
	QPS   float64 `mapstructure:"qps"`
	Burst int     `mapstructure:"burst"`
}

func InitSmsProviders(logger *zap.Logger) []provider.Provider {
	type tencentConfig struct {
		sms.TencentConfig `mapstructure:",squash"`
		Throttle          throttleConfig `mapstructure:"throttle"`
	}

	var providers []provider.Provider

	tcCfg := &tencentConfig{}
	if err := viper.UnmarshalKey("sms.tencent", tcCfg); err != nil {
		panic(err)
	}
	if tcCfg.SecretId != "" {
		p, err := sms.NewTencentProvider(tcCfg.TencentConfig)
		if err != nil {
			panic(err)
		}
		providers = append(providers, provider.NewThrottled(p, tcCfg.Throttle.QPS, tcCfg.Throttle.Burst))
	}

	// twilio 作为腾讯云短信的备用供应商
	twCfg := loadTwilioConfig()
	if twCfg.AccountSid != "" && twCfg.SmsFrom != "" {
		p, err := twilio.NewSmsProvider(twCfg.Config)
		if err != nil {
			panic(err)
		}
		providers = append(providers, provider.NewThrottled(p, twCfg.Throttle.QPS, twCfg.Throttle.Burst))
	}

	logProviders(logger, domain.ChannelSMS, providers)
	return providers
}

func InitEmailProviders(logger *zap.Logger) []provider.Provider {
	type smtpConfig struct {
		email.SmtpConfig `mapstructure:",squash"`
		Throttle         throttleConfig `mapstructure:"throttle"`
	}

	cfg := &smtpConfig{}
	if err := viper.UnmarshalKey("smtp", cfg); err != nil {
		panic(err)
	}

	var providers []provider.Provider
	if cfg.Host != "" {
		p, err := email.NewSmtpProvider(cfg.SmtpConfig)
		if err != nil {
			panic(err)
		}
		providers = append(providers, provider.NewThrottled(p, cfg.Throttle.QPS, cfg.Throttle.Burst))
	}

	logProviders(logger, domain.ChannelEmail, providers)
	return providers
}

func InitWhatsAppProviders(logger *zap.Logger) []provider.Provider {
	cfg := loadTwilioConfig()

	var providers []provider.Provider
	if cfg.AccountSid != "" && cfg.WhatsAppFrom != "" {
		p, err := twilio.NewWhatsAppProvider(cfg.Config)
		if err != nil {
			panic(err)
		}
		providers = append(providers, provider.NewThrottled(p, cfg.Throttle.QPS, cfg.Throttle.Burst))
	}

	logProviders(logger, domain.ChannelWhatsApp, providers)
	return providers
}

type twilioConfig struct {
	twilio.Config `mapstructure:",squash"`
	Throttle      throttleConfig `mapstructure:"throttle"`
}

func loadTwilioConfig() *twilioConfig {
	cfg := &twilioConfig{}
	if err := viper.UnmarshalKey("twilio", cfg); err != nil {
		panic(err)
	}
	return cfg
}

func logProviders(logger *zap.Logger, c domain.Channel, providers []provider.Provider) {
	names := make([]string, 0, len(providers))
	for _, p := range providers {
		names = append(names, p.Name())
	}
	logger.Info("[jreminder] channel providers loaded", zap.String("channel", c.String()), zap.Strings("providers", names))
}

// InitChannelMap 只注册配置了供应商的渠道
func InitChannelMap(
	smsChannel *channel.SmsChannel,
	emailChannel *channel.EmailChannel,
	whatsappChannel *channel.WhatsAppChannel,
	smsProviders []provider.Provider,
	emailProviders []provider.Provider,
	whatsappProviders []provider.Provider,
) map[domain.Channel]channel.Channel {
	channels := make(map[domain.Channel]channel.Channel, 3)
	if len(smsProviders) > 0 {
		channels[domain.ChannelSMS] = smsChannel
	}
	if len(emailProviders) > 0 {
		channels[domain.ChannelEmail] = emailChannel
	}
	if len(whatsappProviders) > 0 {
		channels[domain.ChannelWhatsApp] = whatsappChannel
	}
	return channels
}
