package conf

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"

	"github.com/JrMarcco/jreminder/internal/pkg/retry"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.uber.org/zap"
)

// PolicyProvider 提供当前生效的重试策略，每个批次开始时读取一次。
type PolicyProvider interface {
	Policy() retry.Policy
}

var _ PolicyProvider = (*StaticPolicyProvider)(nil)

type StaticPolicyProvider struct {
	policy retry.Policy
}

func (s *StaticPolicyProvider) Policy() retry.Policy {
	return s.policy
}

func NewStaticPolicyProvider(policy retry.Policy) *StaticPolicyProvider {
	return &StaticPolicyProvider{
		policy: policy,
	}
}

var _ PolicyProvider = (*EtcdPolicyProvider)(nil)

// EtcdPolicyProvider 监听 etcd 中的策略配置（json 格式的 retry.PolicyConfig），
// 配置非法时保留当前策略。
type EtcdPolicyProvider struct {
	client  *clientv3.Client
	key     string
	current atomic.Pointer[retry.Policy]
	logger  *zap.Logger
}

func (p *EtcdPolicyProvider) Policy() retry.Policy {
	return *p.current.Load()
}

// Load 读取一次当前配置，返回读取时的 revision
func (p *EtcdPolicyProvider) Load(ctx context.Context) (int64, error) {
	resp, err := p.client.Get(ctx, p.key)
	if err != nil {
		return 0, fmt.Errorf("[jreminder] failed to get retry policy from etcd: %w", err)
	}
	for _, kv := range resp.Kvs {
		p.update(kv.Value)
	}
	return resp.Header.Revision, nil
}

// Watch 从 fromRev 开始持续监听变更，直到 ctx 结束。fromRev <= 0 时从当前开始。
func (p *EtcdPolicyProvider) Watch(ctx context.Context, fromRev int64) error {
	var opts []clientv3.OpOption
	if fromRev > 0 {
		opts = append(opts, clientv3.WithRev(fromRev))
	}

	watchChan := p.client.Watch(ctx, p.key, opts...)
	for watchResp := range watchChan {
		if watchErr := watchResp.Err(); watchErr != nil {
			p.logger.Warn("[jreminder] retry policy watch error", zap.Error(watchErr))
			continue
		}
		for _, ev := range watchResp.Events {
			if ev.Type == clientv3.EventTypePut {
				p.update(ev.Kv.Value)
			}
		}
	}
	return ctx.Err()
}

func (p *EtcdPolicyProvider) update(data []byte) {
	policy, err := parsePolicy(data)
	if err != nil {
		p.logger.Warn("[jreminder] invalid retry policy, keep current one", zap.ByteString("value", data), zap.Error(err))
		return
	}
	p.current.Store(&policy)
	p.logger.Info(
		"[jreminder] retry policy updated",
		zap.Int32("max_attempts", policy.MaxAttempts()),
		zap.Int32("escalation_threshold", policy.EscalationThreshold()),
	)
}

func parsePolicy(data []byte) (retry.Policy, error) {
	var cfg retry.PolicyConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return retry.Policy{}, err
	}
	return retry.NewPolicyFromConfig(cfg)
}

func NewEtcdPolicyProvider(client *clientv3.Client, key string, fallback retry.Policy, logger *zap.Logger) *EtcdPolicyProvider {
	p := &EtcdPolicyProvider{
		client: client,
		key:    key,
		logger: logger,
	}
	p.current.Store(&fallback)
	return p
}
