package errs

import (
	"errors"
	"fmt"
)

// AttemptErrKind 单次发送失败的类别
type AttemptErrKind string

const (
	// AttemptErrRetryable 网络抖动、供应商限流、超时等，可以重试
	AttemptErrRetryable AttemptErrKind = "retryable"
	// AttemptErrTerminal 缺少联系方式、号码非法、模板被拒等，重试也不会成功
	AttemptErrTerminal AttemptErrKind = "terminal"
)

func (k AttemptErrKind) String() string {
	return string(k)
}

// AttemptError 渠道 / 供应商返回的带类别的发送错误。
//
// 执行器只依据 Kind 决定继续重试还是立即升级，不解析错误文本。
type AttemptError struct {
	Kind AttemptErrKind
	Err  error
}

func (e *AttemptError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("[jreminder] %s attempt error", e.Kind)
	}
	return fmt.Sprintf("[jreminder] %s attempt error: %s", e.Kind, e.Err.Error())
}

func (e *AttemptError) Unwrap() error {
	return e.Err
}

func Retryable(err error) error {
	if err == nil {
		return nil
	}
	return &AttemptError{Kind: AttemptErrRetryable, Err: err}
}

func Terminal(err error) error {
	if err == nil {
		return nil
	}
	return &AttemptError{Kind: AttemptErrTerminal, Err: err}
}

// IsTerminal 判断错误是否被标记为不可重试。
// 未标记类别的错误按可重试处理。
func IsTerminal(err error) bool {
	var ae *AttemptError
	if errors.As(err, &ae) {
		return ae.Kind == AttemptErrTerminal
	}
	return false
}
