package email

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SanchitCoder/PortIQ/internal/logger"
	"github.com/SanchitCoder/PortIQ/internal/metrics"
	"github.com/SanchitCoder/PortIQ/internal/subscription"

	"github.com/redis/go-redis/v9"
)

const (
	queueKey    = "portiq:emails"
	failedKey   = "portiq:emails:failed"
	maxAttempts = 3
	popTimeout  = 2 * time.Second
)

const (
	TypeSubscriptionActivated = "subscription_activated"
	TypeSubscriptionCancelled = "subscription_cancelled"
)

type EmailJob struct {
	Type    string    `json:"type"`
	To      string    `json:"to"`
	Name    string    `json:"name"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	Tries   int       `json:"tries"`
	Created time.Time `json:"created"`
}

type Config struct {
	From      string
	FromName  string
	SMTPHost  string
	SMTPPort  int
	SMTPUser  string
	SMTPPass  string
	RedisAddr string
}

// Service queues emails in Redis and delivers them from a background worker.
type Service struct {
	redis      *redis.Client
	sender     Sender
	retryDelay time.Duration
	// idleBackoff is the pause after a failed queue read.
	idleBackoff time.Duration
}

func New(cfg Config) *Service {
	return &Service{
		redis: redis.NewClient(&redis.Options{
			Addr: cfg.RedisAddr,
		}),
		sender:      NewSMTPSender(cfg),
		retryDelay:  5 * time.Second,
		idleBackoff: 5 * time.Second,
	}
}

func (s *Service) enqueue(ctx context.Context, job EmailJob) error {
	job.Created = time.Now()

	data, err := json.Marshal(job)
	if err != nil {
		logger.Errorf("Failed to marshal email job: %v", err)
		return err
	}

	n, err := s.redis.LPush(ctx, queueKey, string(data)).Result()
	if err != nil {
		logger.Errorf("Failed to queue email to %s: %v", job.To, err)
		return err
	}
	metrics.EmailQueueLength.Set(float64(n))

	logger.Infof("Email queued: %s to %s", job.Subject, job.To)
	return nil
}

// Start runs the delivery loop until ctx is cancelled.
func (s *Service) Start(ctx context.Context) {
	logger.Info("Email service started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Email service stopped")
			return
		default:
		}

		if err := s.processNext(ctx); err != nil && ctx.Err() == nil {
			logger.Warn("email queue unavailable", "error", err, "retry_in", s.idleBackoff.String())
			select {
			case <-ctx.Done():
			case <-time.After(s.idleBackoff):
			}
		}
	}
}

// processNext delivers at most one queued email. It returns an error only
// when the queue itself could not be read; an empty queue is not an error.
func (s *Service) processNext(ctx context.Context) error {
	result, err := s.redis.BRPop(ctx, popTimeout, queueKey).Result()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	if err != nil {
		return err
	}

	var job EmailJob
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Errorf("Bad email data: %v", err)
		return nil
	}

	job.Tries++
	logger.Infof("Sending email to %s (attempt %d)", job.To, job.Tries)
	if err := s.sender.Send(job); err != nil {
		logger.Errorf("Failed to send email to %s: %v", job.To, err)

		if job.Tries < maxAttempts {
			s.requeue(ctx, job)
		} else {
			logger.Errorf("Email to %s failed after %d attempts", job.To, maxAttempts)
			metrics.RecordEmail(job.Type, "failed")
			s.saveFailed(job, err)
		}
		return nil
	}

	metrics.RecordEmail(job.Type, "success")
	metrics.EmailQueueLength.Set(float64(s.QueueLength(ctx)))
	logger.Infof("Email sent successfully to %s", job.To)
	return nil
}

func (s *Service) requeue(ctx context.Context, job EmailJob) {
	select {
	case <-ctx.Done():
	case <-time.After(s.retryDelay):
	}
	data, _ := json.Marshal(job)
	s.redis.LPush(context.Background(), queueKey, string(data))
	logger.Infof("Retrying email to %s (attempt %d)", job.To, job.Tries+1)
}

func (s *Service) saveFailed(job EmailJob, err error) {
	failed := map[string]interface{}{
		"job":   job,
		"error": err.Error(),
		"time":  time.Now(),
	}
	data, _ := json.Marshal(failed)
	s.redis.LPush(context.Background(), failedKey, string(data))
	logger.Errorf("Email moved to failed queue: %s", job.To)
}

func (s *Service) QueueLength(ctx context.Context) int64 {
	length, _ := s.redis.LLen(ctx, queueKey).Result()
	return length
}

func (s *Service) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx).Err()
}

func (s *Service) Close() error {
	return s.redis.Close()
}

func greeting(name string) string {
	if name == "" {
		return "Hi there,"
	}
	return fmt.Sprintf("Hi %s,", name)
}

func (s *Service) SendSubscriptionActivated(ctx context.Context, to, name string, plan subscription.Plan, until time.Time) error {
	body := fmt.Sprintf(`%s

Thanks for subscribing to PortIQ!

Plan: %s
Price: %s
Valid until: %s

You now have unlimited access to Portfolio Monitor, Stock Analyzer and AlphaEdge Evaluator.

- PortIQ Team`, greeting(name), plan.Name, plan.DisplayPrice(), until.Format("Jan 2, 2006"))

	return s.enqueue(ctx, EmailJob{
		Type:    TypeSubscriptionActivated,
		To:      to,
		Name:    name,
		Subject: "Your PortIQ " + plan.Name + " is active",
		Body:    body,
	})
}

func (s *Service) SendSubscriptionCancelled(ctx context.Context, to, name string) error {
	body := fmt.Sprintf(`%s

Your PortIQ subscription has been cancelled. You are back on the free plan
and can keep using your remaining free analyses.

You can upgrade again at any time from the pricing page.

- PortIQ Team`, greeting(name))

	return s.enqueue(ctx, EmailJob{
		Type:    TypeSubscriptionCancelled,
		To:      to,
		Name:    name,
		Subject: "Your PortIQ subscription was cancelled",
		Body:    body,
	})
}
