package sms

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/carepulse/carepulse/internal/platform"
)

const messageLogKey = "carepulse:sms:messages"

// MessageLog keeps recent message receipts in a capped Redis list.
type MessageLog struct {
	redis       *redis.Client
	tracer      trace.Tracer
	ttl         time.Duration
	maxMessages int64
}

// NewMessageLog returns nil when redisClient is nil; a nil log ignores writes.
func NewMessageLog(redisClient *redis.Client, ttl time.Duration, maxMessages int64) *MessageLog {
	if redisClient == nil {
		return nil
	}
	return &MessageLog{
		redis:       redisClient,
		tracer:      otel.Tracer("carepulse.internal.platform.sms.message_log"),
		ttl:         ttl,
		maxMessages: maxMessages,
	}
}

// Append stores a receipt at the tail of the list.
func (l *MessageLog) Append(ctx context.Context, msg *platform.Message) error {
	if l == nil || l.redis == nil {
		return nil
	}
	if msg == nil {
		return errors.New("sms: message required")
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("sms: marshal message receipt: %w", err)
	}

	ctx, span := l.tracer.Start(ctx, "sms.message_log.append")
	defer span.End()

	pipe := l.redis.TxPipeline()
	pipe.RPush(ctx, messageLogKey, data)
	if l.ttl > 0 {
		pipe.Expire(ctx, messageLogKey, l.ttl)
	}
	if l.maxMessages > 0 {
		pipe.LTrim(ctx, messageLogKey, -l.maxMessages, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("sms: append message receipt: %w", err)
	}
	return nil
}

// List returns up to limit of the most recent receipts, oldest first. A
// non-positive limit returns everything kept.
func (l *MessageLog) List(ctx context.Context, limit int64) ([]platform.Message, error) {
	if l == nil || l.redis == nil {
		return []platform.Message{}, nil
	}
	ctx, span := l.tracer.Start(ctx, "sms.message_log.list")
	defer span.End()

	start := int64(0)
	if limit > 0 {
		start = -limit
	}
	raw, err := l.redis.LRange(ctx, messageLogKey, start, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []platform.Message{}, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("sms: list message receipts: %w", err)
	}
	out := make([]platform.Message, 0, len(raw))
	for _, item := range raw {
		var msg platform.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			span.RecordError(err)
			continue
		}
		out = append(out, msg)
	}
	return out, nil
}
