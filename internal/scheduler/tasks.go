package scheduler

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const TaskSinkRetry = "distribution.sink.retry"

const TaskBatchQuotaCompleted = "batch.quota.completed"

type SinkRetryPayload struct {
	DistributionID string `json:"distributionId"`
}

type BatchQuotaCompletedPayload struct {
	BatchID       string `json:"batchId"`
	CustomerID    string `json:"customerId"`
	Category      string `json:"category"`
	TotalCapacity int    `json:"totalCapacity"`
}

func NewSinkRetryTask(payload SinkRetryPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSinkRetry, data), nil
}

func ParseSinkRetryPayload(task *asynq.Task) (SinkRetryPayload, error) {
	var payload SinkRetryPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return SinkRetryPayload{}, err
	}
	return payload, nil
}

func NewBatchQuotaCompletedTask(payload BatchQuotaCompletedPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBatchQuotaCompleted, data), nil
}

func ParseBatchQuotaCompletedPayload(task *asynq.Task) (BatchQuotaCompletedPayload, error) {
	var payload BatchQuotaCompletedPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return BatchQuotaCompletedPayload{}, err
	}
	return payload, nil
}
