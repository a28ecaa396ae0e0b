package job

import (
	"context"
	"time"

	"compsystem/internal/model"

	"go.uber.org/zap"
)

// Publisher 事件投递目标，mq.Producer 与 mq.LogPublisher 都满足它
type Publisher interface {
	Publish(topic, key, value string) error
}

// OutboxStore outbox 表的读写，由 repository.OutboxRepository 实现
type OutboxStore interface {
	GetPendingMessages(ctx context.Context, limit int) ([]*model.OutboxMessage, error)
	MarkAsSent(ctx context.Context, id int64) error
	IncrementRetryCount(ctx context.Context, id int64) error
	MarkAsFailed(ctx context.Context, id int64) error
}

// OutboxSender 轮询待发送的补偿事件并投递，超过最大重试次数标记为失败
type OutboxSender struct {
	outbox        OutboxStore
	publisher     Publisher
	maxRetryCount int
	interval      time.Duration
	batchSize     int
	log           *zap.Logger
}

func NewOutboxSender(outbox OutboxStore, publisher Publisher, maxRetryCount int, log *zap.Logger) *OutboxSender {
	return &OutboxSender{
		outbox:        outbox,
		publisher:     publisher,
		maxRetryCount: maxRetryCount,
		interval:      500 * time.Millisecond,
		batchSize:     100,
		log:           log.Named("outbox_sender"),
	}
}

// Run 阻塞运行直到 ctx 取消
func (s *OutboxSender) Run(ctx context.Context) error {
	s.log.Info("消息发送任务启动")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.log.Info("收到停止信号，任务退出")
			return nil
		case <-ticker.C:
			s.processPendingMessages(ctx)
		}
	}
}

func (s *OutboxSender) processPendingMessages(ctx context.Context) {
	messages, err := s.outbox.GetPendingMessages(ctx, s.batchSize)
	if err != nil {
		s.log.Error("查询消息失败", zap.Error(err))
		return
	}

	for _, msg := range messages {
		s.sendMessage(ctx, msg)
	}
}

func (s *OutboxSender) sendMessage(ctx context.Context, msg *model.OutboxMessage) {
	err := s.publisher.Publish(msg.Topic, msg.MessageKey, msg.Payload)
	if err == nil {
		if updateErr := s.outbox.MarkAsSent(ctx, msg.ID); updateErr != nil {
			s.log.Error("更新消息状态失败", zap.Int64("id", msg.ID), zap.Error(updateErr))
			return
		}
		s.log.Debug("消息发送成功",
			zap.Int64("id", msg.ID),
			zap.String("event", msg.EventType),
			zap.String("key", msg.MessageKey),
		)
		return
	}

	s.log.Warn("消息发送失败", zap.Int64("id", msg.ID), zap.Int("retry_count", msg.RetryCount), zap.Error(err))

	if msg.RetryCount+1 >= s.maxRetryCount {
		if err := s.outbox.MarkAsFailed(ctx, msg.ID); err != nil {
			s.log.Error("标记消息失败状态失败", zap.Int64("id", msg.ID), zap.Error(err))
			return
		}
		s.log.Error("消息超过最大重试次数，标记为失败", zap.Int64("id", msg.ID))
		return
	}

	if err := s.outbox.IncrementRetryCount(ctx, msg.ID); err != nil {
		s.log.Error("增加重试次数失败", zap.Int64("id", msg.ID), zap.Error(err))
	}
}
