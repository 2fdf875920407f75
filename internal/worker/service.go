package worker

import (
	"context"
	"errors"
	"time"

	"github.com/dujiao-next/mall/internal/config"
	"github.com/dujiao-next/mall/internal/logger"
	"github.com/dujiao-next/mall/internal/queue"

	"github.com/hibiken/asynq"
)

const defaultSettleInterval = time.Minute

type dueSettler interface {
	SettleDue(ctx context.Context) (int, error)
}

// Service 异步队列服务
type Service struct {
	name           string
	server         *asynq.Server
	mux            *asynq.ServeMux
	settler        dueSettler
	settleInterval time.Duration
}

// NewService 创建异步队列服务，settler 为空时不启动众筹到期结算轮询
func NewService(cfg *config.QueueConfig, consumer *Consumer, settler dueSettler, settleInterval time.Duration) (*Service, error) {
	if cfg == nil || !cfg.Enabled {
		return nil, errors.New("queue disabled")
	}
	if consumer == nil {
		return nil, errors.New("consumer is nil")
	}
	if settleInterval <= 0 {
		settleInterval = defaultSettleInterval
	}
	opt, serverCfg := queue.BuildServerConfig(cfg)
	serverCfg.IsFailure = isRetryableFailure
	serverCfg.Logger = logger.Named("asynq")
	server := asynq.NewServer(opt, serverCfg)
	mux := asynq.NewServeMux()
	consumer.Register(mux)
	return &Service{
		name:           "worker",
		server:         server,
		mux:            mux,
		settler:        settler,
		settleInterval: settleInterval,
	}, nil
}

// Name 服务名称
func (s *Service) Name() string {
	if s == nil || s.name == "" {
		return "worker"
	}
	return s.name
}

// Start 启动消费者并阻塞到 ctx 取消；信号由 Runner 统一处理
func (s *Service) Start(ctx context.Context) error {
	if s == nil || s.server == nil || s.mux == nil {
		return errors.New("worker not initialized")
	}
	if err := s.server.Start(s.mux); err != nil {
		return err
	}
	if s.settler != nil {
		go s.runSettleLoop(ctx)
	}
	<-ctx.Done()
	return nil
}

// Stop 等待进行中的任务完成后关闭
func (s *Service) Stop(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}
	s.server.Shutdown()
	return nil
}

func (s *Service) runSettleLoop(ctx context.Context) {
	runOnce := func() {
		settled, err := s.settler.SettleDue(ctx)
		if err != nil {
			logger.Warnw("worker_crowdfunding_settle_due_failed", "error", err)
			return
		}
		if settled > 0 {
			logger.Infow("worker_crowdfunding_settle_due", "settled", settled)
		}
	}
	runOnce()

	ticker := time.NewTicker(s.settleInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runOnce()
		}
	}
}

// isRetryableFailure 跳过重试的任务不计入失败统计
func isRetryableFailure(err error) bool {
	return err != nil && !errors.Is(err, asynq.SkipRetry)
}
