package channel

import (
	"context"
	"fmt"

	"github.com/JrMarcco/jreminder/internal/domain"
	"github.com/JrMarcco/jreminder/internal/errs"
)

// Channel 发送渠道接口。
type Channel interface {
	Send(ctx context.Context, msg domain.Message) (domain.SendResult, error)
}

var _ Channel = (*Dispatcher)(nil)

// Dispatcher 渠道分发器，作为对外统一入口。
type Dispatcher struct {
	channels map[domain.Channel]Channel
}

func (d *Dispatcher) Send(ctx context.Context, msg domain.Message) (domain.SendResult, error) {
	if channel, ok := d.channels[msg.Channel]; ok {
		return channel.Send(ctx, msg)
	}
	return domain.SendResult{}, errs.Terminal(fmt.Errorf("%w: channel = %s", errs.ErrInvalidChannel, msg.Channel))
}

// Supports 是否配置了该渠道
func (d *Dispatcher) Supports(c domain.Channel) bool {
	_, ok := d.channels[c]
	return ok
}

func NewDispatcher(channels map[domain.Channel]Channel) *Dispatcher {
	return &Dispatcher{
		channels: channels,
	}
}
