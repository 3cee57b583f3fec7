package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// 事件频道
const (
	ChannelAlerts = "roster:events:alerts"
	ChannelSwaps  = "roster:events:swaps"
)

// EventPublisher 事件发布接口（通知投递由外部订阅方负责）
// pkg/redis.Client 实现该接口
type EventPublisher interface {
	Publish(ctx context.Context, channel string, payload interface{}) error
}

// Event 发布到外部的领域事件
type Event struct {
	Type       string            `json:"type"` // alert.created | alert.acknowledged | swap.executed ...
	EntityID   string            `json:"entity_id"`
	FacultyIDs []string          `json:"faculty_ids,omitempty"`
	Actor      string            `json:"actor,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// publishEvent 事务提交后尽力发布，失败只记录日志
func publishEvent(ctx context.Context, publisher EventPublisher, logger *zap.Logger, channel string, evt Event) {
	if publisher == nil {
		return
	}
	if err := publisher.Publish(ctx, channel, evt); err != nil {
		logger.Warn("发布事件失败",
			zap.String("channel", channel),
			zap.String("type", evt.Type),
			zap.String("entity_id", evt.EntityID),
			zap.Error(err),
		)
	}
}
