package sms

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JrMarcco/jreminder/internal/domain"
	"github.com/JrMarcco/jreminder/internal/errs"
	"github.com/JrMarcco/jreminder/internal/service/provider"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	tcerr "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/errors"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
	tcsms "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/sms/v20210111"
)

const TencentProviderName = "tencent_sms"

type tencentClient interface {
	SendSmsWithContext(ctx context.Context, req *tcsms.SendSmsRequest) (*tcsms.SendSmsResponse, error)
}

// TencentConfig 腾讯云短信配置。
//
// 腾讯云只能发送审核通过的模板，Templates 维护提醒模板名到腾讯云模板 id 的映射，
// 腾讯云模板只包含一个变量，取值为渲染好的提醒内容。
// viper 会把 map 的 key 转成小写，模板名匹配不区分大小写。
type TencentConfig struct {
	SecretId  string            `mapstructure:"secret_id"`
	SecretKey string            `mapstructure:"secret_key"`
	Region    string            `mapstructure:"region"`
	AppId     string            `mapstructure:"app_id"`
	SignName  string            `mapstructure:"sign_name"`
	Templates map[string]string `mapstructure:"templates"`
}

var _ provider.Provider = (*TencentProvider)(nil)

type TencentProvider struct {
	client    tencentClient
	appId     string
	signName  string
	templates map[string]string
}

func (p *TencentProvider) Name() string {
	return TencentProviderName
}

func (p *TencentProvider) Send(ctx context.Context, msg domain.Message) (domain.SendResult, error) {
	tplId, ok := p.templates[strings.ToLower(msg.Template.Name)]
	if !ok {
		return domain.SendResult{}, errs.Terminal(
			fmt.Errorf("%w: no tencent template for %s", errs.ErrFailedToSend, msg.Template.Name),
		)
	}

	req := tcsms.NewSendSmsRequest()
	req.SmsSdkAppId = common.StringPtr(p.appId)
	req.SignName = common.StringPtr(p.signName)
	req.TemplateId = common.StringPtr(tplId)
	req.TemplateParamSet = common.StringPtrs([]string{msg.Template.Content})
	req.PhoneNumberSet = common.StringPtrs([]string{msg.Destination})
	req.SessionContext = common.StringPtr(msg.CorrelationId)

	resp, err := p.client.SendSmsWithContext(ctx, req)
	if err != nil {
		return domain.SendResult{}, classifySdkErr(err)
	}
	if resp == nil || resp.Response == nil || len(resp.Response.SendStatusSet) == 0 {
		return domain.SendResult{}, errs.Retryable(
			fmt.Errorf("%w: empty tencent sms response", errs.ErrFailedToSend),
		)
	}

	status := resp.Response.SendStatusSet[0]
	code := deref(status.Code)
	if !strings.EqualFold(code, "Ok") {
		err = fmt.Errorf(
			"%w: Response Code = %s, Response Message = %s",
			errs.ErrFailedToSend, code, deref(status.Message),
		)
		if retryableCode(code) {
			return domain.SendResult{}, errs.Retryable(err)
		}
		return domain.SendResult{}, errs.Terminal(err)
	}

	return domain.SendResult{
		Provider:              TencentProviderName,
		ProviderCorrelationId: deref(status.SerialNo),
	}, nil
}

func classifySdkErr(err error) error {
	var sdkErr *tcerr.TencentCloudSDKError
	if errors.As(err, &sdkErr) {
		wrapped := fmt.Errorf("%w: %w", errs.ErrFailedToSend, err)
		if retryableCode(sdkErr.GetCode()) {
			return errs.Retryable(wrapped)
		}
		return errs.Terminal(wrapped)
	}
	// 网络错误
	return errs.Retryable(fmt.Errorf("%w: %w", errs.ErrFailedToSend, err))
}

// retryableCode 限频和服务端内部错误可以重试，参数、签名、余额等问题重试无效
func retryableCode(code string) bool {
	return code == "" ||
		strings.HasPrefix(code, "LimitExceeded") ||
		strings.HasPrefix(code, "InternalError") ||
		strings.HasPrefix(code, "RequestLimitExceeded") ||
		strings.HasPrefix(code, "ResourceUnavailable")
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func NewTencentProvider(cfg TencentConfig) (*TencentProvider, error) {
	credential := common.NewCredential(cfg.SecretId, cfg.SecretKey)
	client, err := tcsms.NewClient(credential, cfg.Region, profile.NewClientProfile())
	if err != nil {
		return nil, err
	}
	return newTencentProvider(client, cfg), nil
}

func newTencentProvider(client tencentClient, cfg TencentConfig) *TencentProvider {
	templates := make(map[string]string, len(cfg.Templates))
	for name, id := range cfg.Templates {
		templates[strings.ToLower(name)] = id
	}
	return &TencentProvider{
		client:    client,
		appId:     cfg.AppId,
		signName:  cfg.SignName,
		templates: templates,
	}
}
