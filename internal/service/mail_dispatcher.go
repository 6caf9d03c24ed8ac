package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/d60-Lab/microblog/internal/model"
	"github.com/d60-Lab/microblog/pkg/logger"
	"github.com/d60-Lab/microblog/pkg/mail"
	"github.com/d60-Lab/microblog/pkg/metrics"
)

type mailJob struct {
	msg   mail.Message
	enqAt time.Time
}

// MailDispatcher 本地异步发信队列；投递失败只记日志，不回滚业务
type MailDispatcher struct {
	sender  mail.Sender
	baseURL string
	ch      chan mailJob
	timeout time.Duration
}

func NewMailDispatcher(sender mail.Sender, baseURL string, queueSize int) *MailDispatcher {
	if queueSize <= 0 {
		queueSize = 1000
	}
	return &MailDispatcher{sender: sender, baseURL: baseURL, ch: make(chan mailJob, queueSize), timeout: 10 * time.Second}
}

// Start 启动若干 worker；返回停止函数
func (d *MailDispatcher) Start(workers int) func(context.Context) error {
	if workers <= 0 {
		workers = 2
	}
	stopCh := make(chan struct{})
	for i := 0; i < workers; i++ {
		go func() {
			for {
				select {
				case job := <-d.ch:
					d.deliver(job)
				case <-stopCh:
					return
				}
			}
		}()
	}
	return func(ctx context.Context) error {
		// 先等待队列排空一小段时间，再停止 worker
		timeout := time.After(2 * time.Second)
		defer close(stopCh)
		for {
			select {
			case <-timeout:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			default:
				if len(d.ch) == 0 {
					return nil
				}
				time.Sleep(50 * time.Millisecond)
			}
		}
	}
}

func (d *MailDispatcher) deliver(job mailJob) {
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	metrics.MailQueueLength.Set(float64(len(d.ch)))
	if err := d.sender.Send(ctx, job.msg); err != nil {
		metrics.MailDeliveries.WithLabelValues("failed").Inc()
		logger.Error("mail delivery failed", zap.String("to", job.msg.To), zap.Error(err))
		return
	}
	metrics.MailDeliveries.WithLabelValues("sent").Inc()
	logger.Debug("mail delivered", zap.String("to", job.msg.To), zap.Duration("queued", time.Since(job.enqAt)))
}

// Enqueue never blocks; a full queue drops the message.
func (d *MailDispatcher) Enqueue(msg mail.Message) bool {
	select {
	case d.ch <- mailJob{msg: msg, enqAt: time.Now()}:
		metrics.MailQueueLength.Set(float64(len(d.ch)))
		return true
	default:
		metrics.MailDeliveries.WithLabelValues("dropped").Inc()
		logger.Warn("mail queue full, drop message", zap.String("to", msg.To), zap.String("subject", msg.Subject))
		return false
	}
}

func (d *MailDispatcher) SendPasswordResetEmail(u *model.User, token string) {
	link := fmt.Sprintf("%s/reset_password/%s", d.baseURL, token)
	d.Enqueue(mail.Message{
		To:      u.Email,
		Subject: "[Microblog] Reset Your Password",
		Body: fmt.Sprintf("Dear %s,\n\nTo reset your password click on the following link:\n\n%s\n\n"+
			"If you have not requested a password reset simply ignore this message.\n", u.Username, link),
	})
}

// QueueLen 返回当前队列长度（采样值）
func (d *MailDispatcher) QueueLen() int { return len(d.ch) }
