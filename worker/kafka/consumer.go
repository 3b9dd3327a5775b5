package kafka

import (
	"context"
	"encoding/json"

	"github.com/IBM/sarama"

	"treeAnalysis/worker/pool"
)

type MessageHandler func(ctx context.Context, msg *TaskMessage) error

// TaskMessage mirrors the producer-side job reference. The queue gives
// at-least-once delivery; handlers must tolerate redelivery.
type TaskMessage struct {
	TaskID       int64  `json:"task_id"`
	TraceID      string `json:"trace_id"`
	OwnerID      int64  `json:"owner_id"`
	OriginalPath string `json:"original_path"`
}

type Consumer struct {
	consumer sarama.ConsumerGroup
	workers  *pool.WorkerPool
}

func NewConsumer(brokers []string, groupID string, workers *pool.WorkerPool) (*Consumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Group.Rebalance.Strategy = sarama.BalanceStrategyRoundRobin
	config.Consumer.Offsets.Initial = sarama.OffsetOldest

	c, err := sarama.NewConsumerGroup(brokers, groupID, config)
	if err != nil {
		return nil, err
	}

	return &Consumer{consumer: c, workers: workers}, nil
}

type consumerHandler struct {
	fn      MessageHandler
	ctx     context.Context
	workers *pool.WorkerPool
}

func (h *consumerHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *consumerHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *consumerHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		var taskMsg TaskMessage
		if err := json.Unmarshal(msg.Value, &taskMsg); err != nil {
			// Poison message, nothing to do but skip it.
			session.MarkMessage(msg, "")
			continue
		}

		// The offset is committed only once the handler finishes without
		// error. A task interrupted by shutdown, or one that never ran
		// because its submission was dropped, keeps its offset and is
		// redelivered; the claim guard makes the rerun safe.
		raw := msg
		h.workers.Submit(h.ctx, func() {
			if err := h.fn(h.ctx, &taskMsg); err == nil {
				session.MarkMessage(raw, "")
			}
		})
	}
	return nil
}

func (c *Consumer) Consume(ctx context.Context, topic string, handler MessageHandler) error {
	h := &consumerHandler{fn: handler, ctx: ctx, workers: c.workers}
	return c.consumer.Consume(ctx, []string{topic}, h)
}

func (c *Consumer) Close() error {
	return c.consumer.Close()
}
