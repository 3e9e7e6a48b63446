package provider

import (
	"context"

	"github.com/JrMarcco/jreminder/internal/domain"
)

//go:generate mockgen -source=./types.go -destination=./mock/provider.mock.go -package=providermock -typed Provider

// Provider 供应商接口。
//
// 返回的错误需要用 errs.Retryable / errs.Terminal 标记类别，未标记的按可重试处理。
type Provider interface {
	Name() string
	Send(ctx context.Context, msg domain.Message) (domain.SendResult, error)
}

// Selector 供应商选择器，每次发送构建一个新的实例，非并发安全。
type Selector interface {
	Next(ctx context.Context, msg domain.Message) (Provider, error)
}

type SelectorBuilder interface {
	Build() (Selector, error)
}
