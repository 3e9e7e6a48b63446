package selector

import (
	"context"
	"fmt"

	"github.com/JrMarcco/jreminder/internal/domain"
	"github.com/JrMarcco/jreminder/internal/errs"
	"github.com/JrMarcco/jreminder/internal/service/provider"
)

var _ provider.Selector = (*SeqSelector)(nil)

// SeqSelector 按配置顺序依次返回供应商
type SeqSelector struct {
	index     int
	providers []provider.Provider
}

func (ss *SeqSelector) Next(_ context.Context, msg domain.Message) (provider.Provider, error) {
	if len(ss.providers) == ss.index {
		return nil, fmt.Errorf("%w: channel = %s", errs.ErrNoAvailableProvider, msg.Channel)
	}

	p := ss.providers[ss.index]
	ss.index++
	return p, nil
}

var _ provider.SelectorBuilder = (*SeqSelectorBuilder)(nil)

type SeqSelectorBuilder struct {
	providers []provider.Provider
}

func (ssb *SeqSelectorBuilder) Build() (provider.Selector, error) {
	if len(ssb.providers) == 0 {
		return nil, fmt.Errorf("%w: no provider configured", errs.ErrNoAvailableProvider)
	}
	return &SeqSelector{
		providers: ssb.providers,
	}, nil
}

func NewSeqSelectorBuilder(providers []provider.Provider) *SeqSelectorBuilder {
	return &SeqSelectorBuilder{
		providers: providers,
	}
}
