package events

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const publishTimeout = 5 * time.Second

// Broker is the message transport. mq.Publisher implements it.
type Broker interface {
	Publish(ctx context.Context, routingKey string, payload any) error
	Close()
}

// AsyncPublisher sends each event on its own goroutine.
type AsyncPublisher struct {
	broker  Broker
	logger  *zap.Logger
	pending sync.WaitGroup
}

func NewAsyncPublisher(broker Broker, logger *zap.Logger) *AsyncPublisher {
	return &AsyncPublisher{broker: broker, logger: logger}
}

func (p *AsyncPublisher) Publish(ctx context.Context, e Event) {
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}
	p.pending.Add(1)
	go func() {
		defer p.pending.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()
		if err := p.broker.Publish(ctx, e.Type, e); err != nil {
			p.logger.Warn("Failed to publish event", zap.String("type", e.Type), zap.Error(err))
			return
		}
		p.logger.Debug("Event published", zap.String("type", e.Type))
	}()
}

// Close waits for in-flight events (bounded by ctx) and closes the broker.
func (p *AsyncPublisher) Close(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.pending.Wait()
		close(done)
	}()
	var err error
	select {
	case <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	p.broker.Close()
	return err
}
