package history

import (
	"context"
	"encoding/json"
	"time"

	log "github.com/sirupsen/logrus"

	"tasktrail/storage"
)

// Queue is the source of history messages.
type Queue interface {
	Dequeue(ctx context.Context) (*storage.QueueMessage, error)
	Delete(ctx context.Context, id, receipt string) error
}

// Sink stores projected history entries.
type Sink interface {
	InsertStatusHistory(ctx context.Context, env storage.HistoryEnvelope) error
}

// Projector moves status changes from the history queue into the history
// table.
type Projector struct {
	queue        Queue
	sink         Sink
	pollInterval time.Duration
	maxDequeue   int64
}

func NewProjector(queue Queue, sink Sink, pollInterval time.Duration, maxDequeue int64) *Projector {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	if maxDequeue <= 0 {
		maxDequeue = 5
	}
	return &Projector{queue: queue, sink: sink, pollInterval: pollInterval, maxDequeue: maxDequeue}
}

// Run drains the queue until ctx is cancelled, sleeping when it is empty.
func (p *Projector) Run(ctx context.Context) {
	log.Info("history projector starting")
	for {
		if ctx.Err() != nil {
			log.Info("history projector stopped")
			return
		}
		handled, err := p.Step(ctx)
		if err != nil {
			log.WithError(err).Error("history projection failed")
		}
		if !handled || err != nil {
			select {
			case <-ctx.Done():
			case <-time.After(p.pollInterval):
			}
		}
	}
}

// Step processes at most one message. It reports whether a message was
// dequeued. A message that fails to project stays on the queue and becomes
// visible again; poison messages are deleted.
func (p *Projector) Step(ctx context.Context) (bool, error) {
	msg, err := p.queue.Dequeue(ctx)
	if err != nil {
		return false, err
	}
	if msg == nil {
		return false, nil
	}
	var env storage.HistoryEnvelope
	if err := json.Unmarshal([]byte(msg.Text), &env); err != nil || env.UserID == "" || env.Change.TaskID == "" {
		log.WithFields(log.Fields{"message": msg.ID, "error": err}).Warn("dropping malformed history message")
		return true, p.queue.Delete(ctx, msg.ID, msg.PopReceipt)
	}
	if err := p.sink.InsertStatusHistory(ctx, env); err != nil {
		if msg.DequeueCount >= p.maxDequeue {
			log.WithError(err).WithFields(log.Fields{"message": msg.ID, "dequeues": msg.DequeueCount}).Error("dropping history message after repeated failures")
			return true, p.queue.Delete(ctx, msg.ID, msg.PopReceipt)
		}
		return true, err
	}
	log.WithFields(log.Fields{"user": env.UserID, "task": env.Change.TaskID, "to": env.Change.ToStatusID}).Debug("status change projected")
	return true, p.queue.Delete(ctx, msg.ID, msg.PopReceipt)
}
