package mqhandler

import (
	"context"
	"encoding/json"
	"hash/fnv"
	"strconv"

	"go.uber.org/zap"

	"tandem/pkg/logger"
	"tandem/pkg/mq"
	"tandem/pkg/util"
)

const maxRetries = 5

type DLQPublisher interface {
	PublishToDLQ(ctx context.Context, routingKey string, payload []byte, originalError string) error
}

// Guard decides ack, requeue or dead-letter for a handler's failures.
type Guard struct {
	name       string
	routingKey string
	retries    *util.RetryCounter
	dlq        DLQPublisher
	logger     *zap.Logger
}

func NewGuard(name, routingKey string, retries *util.RetryCounter, dlq DLQPublisher, logger *zap.Logger) *Guard {
	return &Guard{name: name, routingKey: routingKey, retries: retries, dlq: dlq, logger: logger}
}

func bodyKey(raw json.RawMessage) string {
	h := fnv.New64a()
	_, _ = h.Write(raw)
	return strconv.FormatUint(h.Sum64(), 16)
}

// Wrap returns a handler that acks on success, requeues retryable failures
// up to maxRetries attempts and parks everything else in the DLQ.
func (g *Guard) Wrap(handle mq.MessageHandler) mq.MessageHandler {
	return func(ctx context.Context, raw json.RawMessage) error {
		retryKey := util.FormatRetryKey(g.name, bodyKey(raw))
		err := handle(ctx, raw)
		if err == nil {
			_ = g.retries.Reset(ctx, retryKey)
			return nil
		}

		log := logger.WithTrace(ctx, g.logger).With(zap.String("handler", g.name))
		retryable, errType := util.IsRetryableError(err)
		if retryable {
			count, cerr := g.retries.IncrementAndGet(ctx, retryKey)
			if cerr != nil {
				log.Warn("Retry counter unavailable", zap.Error(cerr))
			}
			if util.ShouldRetry(count, maxRetries, true) {
				log.Warn("Handler failed, requeueing",
					zap.String("error_type", errType),
					zap.Int64("attempt", count),
					zap.Error(err),
				)
				return err
			}
			_ = g.retries.Reset(ctx, retryKey)
		}

		log.Error("Handler failed, dead-lettering",
			zap.String("error_type", errType),
			zap.Bool("retryable", retryable),
			zap.Error(err),
		)
		if g.dlq == nil {
			return nil
		}
		if derr := g.dlq.PublishToDLQ(ctx, g.routingKey, raw, errType+": "+err.Error()); derr != nil {
			log.Error("Failed to publish to DLQ", zap.Error(derr))
			return err
		}
		return nil
	}
}
