package queue

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/tiffin-next/internal/constants"

	"github.com/hibiken/asynq"
)

const (
	// TaskCheckoutHandoff 结账交接投递任务
	TaskCheckoutHandoff = constants.TaskCheckoutHandoff
)

// ErrPayloadInvalid 任务载荷非法
var ErrPayloadInvalid = errors.New("task payload invalid")

// CheckoutHandoffPayload 结账交接投递任务载荷
type CheckoutHandoffPayload struct {
	HandoffNo string `json:"handoff_no"`
	SessionID string `json:"session_id,omitempty"`
}

// NewCheckoutHandoffTask 创建结账交接投递任务
func NewCheckoutHandoffTask(payload CheckoutHandoffPayload) (*asynq.Task, error) {
	if strings.TrimSpace(payload.HandoffNo) == "" {
		return nil, ErrPayloadInvalid
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskCheckoutHandoff, body), nil
}

// ParseCheckoutHandoffPayload 解析结账交接投递任务载荷
func ParseCheckoutHandoffPayload(body []byte) (CheckoutHandoffPayload, error) {
	var payload CheckoutHandoffPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return payload, err
	}
	payload.HandoffNo = strings.TrimSpace(payload.HandoffNo)
	if payload.HandoffNo == "" {
		return payload, ErrPayloadInvalid
	}
	return payload, nil
}
