package domain

import (
	"fmt"

	"github.com/JrMarcco/jreminder/internal/errs"
)

// Template 提醒模板（变量替换在外部完成，这里只是渲染好的内容）
type Template struct {
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Subject  string   `json:"subject,omitempty"`
	Content  string   `json:"content"`
}

func (t Template) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("%w: template name should not be empty", errs.ErrInvalidParam)
	}
	if !t.Category.Validate() {
		return fmt.Errorf("%w: category = %q", errs.ErrInvalidCategory, t.Category)
	}
	if t.Content == "" {
		return fmt.Errorf("%w: template content should not be empty", errs.ErrInvalidParam)
	}
	return nil
}

// DispatchOutcome 单个患者在一次批量发送中的结果
type DispatchOutcome struct {
	PatientId      uint64           `json:"patient_id"`
	Success        bool             `json:"success"`
	NotificationId uint64           `json:"notification_id,omitempty"`
	CorrelationId  string           `json:"correlation_id"`
	Err            error            `json:"-"`
	Retry          *RetryState      `json:"retry,omitempty"` // 未进入重试流程（如授权拒绝）时为 nil
	Consent        *ConsentDecision `json:"consent,omitempty"`
	HighPriority   bool             `json:"high_priority"`
}

// BatchResult 批量发送的汇总结果
type BatchResult struct {
	Sent    int               `json:"sent"`
	Failed  int               `json:"failed"`
	Partial bool              `json:"partial"`
	Results []DispatchOutcome `json:"results"`
}

// NewBatchResult 按结果列表汇总，Partial = Sent > 0 && Failed > 0
func NewBatchResult(results []DispatchOutcome) BatchResult {
	res := BatchResult{Results: results}
	for _, r := range results {
		if r.Success {
			res.Sent++
			continue
		}
		res.Failed++
	}
	res.Partial = res.Sent > 0 && res.Failed > 0
	return res
}
