package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type EventType string

const (
	EventExecutionStarted   EventType = "execution.started"
	EventExecutionCompleted EventType = "execution.completed"
	EventExecutionFailed    EventType = "execution.failed"
)

// Event is what collaborators (webhook fan-out, cost accounting) observe on
// the per-tenant channel. They watch; they never steer scheduling.
type Event struct {
	Type        EventType              `json:"type"`
	TenantID    uuid.UUID              `json:"tenant_id"`
	TaskID      uuid.UUID              `json:"task_id"`
	ExecutionID uuid.UUID              `json:"execution_id"`
	AgentName   string                 `json:"agent_name"`
	Data        map[string]interface{} `json:"data,omitempty"`
	Timestamp   time.Time              `json:"timestamp"`
}

type Publisher struct {
	redis *redis.Client
}

func NewPublisher(redisClient *redis.Client) *Publisher {
	return &Publisher{redis: redisClient}
}

// Publish is best-effort: a broken broker must never fail a dispatch.
func (p *Publisher) Publish(ctx context.Context, event *Event) {
	if p == nil || p.redis == nil {
		return
	}
	event.Timestamp = time.Now().UTC()

	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("type", string(event.Type)).Msg("Failed to encode event")
		return
	}

	channel := "tenant:" + event.TenantID.String()
	if err := p.redis.Publish(ctx, channel, data).Err(); err != nil {
		log.Warn().Err(err).Str("channel", channel).Msg("Failed to publish event")
	}
}

func (p *Publisher) ExecutionStarted(ctx context.Context, tenantID, taskID, executionID uuid.UUID, agentName, triggerType string) {
	p.Publish(ctx, &Event{
		Type:        EventExecutionStarted,
		TenantID:    tenantID,
		TaskID:      taskID,
		ExecutionID: executionID,
		AgentName:   agentName,
		Data: map[string]interface{}{
			"trigger_type": triggerType,
			"status":       "running",
		},
	})
}

func (p *Publisher) ExecutionCompleted(ctx context.Context, tenantID, taskID, executionID uuid.UUID, agentName string, tokensUsed int, costUSD float64, durationMs int64) {
	p.Publish(ctx, &Event{
		Type:        EventExecutionCompleted,
		TenantID:    tenantID,
		TaskID:      taskID,
		ExecutionID: executionID,
		AgentName:   agentName,
		Data: map[string]interface{}{
			"status":      "completed",
			"tokens_used": tokensUsed,
			"cost_usd":    costUSD,
			"duration_ms": durationMs,
		},
	})
}

func (p *Publisher) ExecutionFailed(ctx context.Context, tenantID, taskID, executionID uuid.UUID, agentName, errorMsg string) {
	p.Publish(ctx, &Event{
		Type:        EventExecutionFailed,
		TenantID:    tenantID,
		TaskID:      taskID,
		ExecutionID: executionID,
		AgentName:   agentName,
		Data: map[string]interface{}{
			"status": "failed",
			"error":  errorMsg,
		},
	})
}
