package storage

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/google/uuid"

	"tasktrail/domain"
)

// HistoryEnvelope is the queue message carrying one status change.
type HistoryEnvelope struct {
	ID     string              `json:"id"`
	UserID string              `json:"userId"`
	Change domain.StatusChange `json:"change"`
}

// QueueMessage is a message dequeued from the history queue.
type QueueMessage struct {
	ID           string
	PopReceipt   string
	Text         string
	DequeueCount int64
}

// CreateTaskStatusHistory enqueues a status change. The history projector
// writes it to the history table.
func (s *Storage) CreateTaskStatusHistory(ctx context.Context, userID string, change domain.StatusChange) error {
	env := HistoryEnvelope{ID: uuid.NewString(), UserID: userID, Change: change}
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	_, err = s.historyQueue.EnqueueMessage(ctx, string(data), nil)
	return err
}

// Dequeue retrieves a single message from the history queue.
func (s *Storage) Dequeue(ctx context.Context) (*QueueMessage, error) {
	resp, err := s.historyQueue.DequeueMessage(ctx, nil)
	if err != nil {
		return nil, err
	}
	if len(resp.Messages) == 0 {
		return nil, nil
	}
	m := resp.Messages[0]
	msg := &QueueMessage{}
	if m.MessageID != nil {
		msg.ID = *m.MessageID
	}
	if m.PopReceipt != nil {
		msg.PopReceipt = *m.PopReceipt
	}
	if m.MessageText != nil {
		msg.Text = *m.MessageText
	}
	if m.DequeueCount != nil {
		msg.DequeueCount = *m.DequeueCount
	}
	return msg, nil
}

// Delete removes a processed message from the queue.
func (s *Storage) Delete(ctx context.Context, id, receipt string) error {
	_, err := s.historyQueue.DeleteMessage(ctx, id, receipt, nil)
	return err
}

// InsertStatusHistory writes one history row. The row key is derived from
// the envelope id, so a redelivered message is stored once.
func (s *Storage) InsertStatusHistory(ctx context.Context, env HistoryEnvelope) error {
	payload, err := json.Marshal(newHistoryEntity(env.UserID, historyRowKey(env.Change, env.ID), env.Change))
	if err != nil {
		return err
	}
	if _, err := s.historyTable.AddEntity(ctx, payload, nil); err != nil {
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && (respErr.StatusCode == 409 || respErr.ErrorCode == "EntityAlreadyExists") {
			return nil
		}
		return err
	}
	return nil
}

// ListStatusHistory returns a task's status changes, oldest first.
func (s *Storage) ListStatusHistory(ctx context.Context, userID, taskID string) ([]domain.StatusChange, error) {
	filter := partitionFilter(userID, "TaskId eq "+quote(taskID))
	pager := s.historyTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	out := []domain.StatusChange{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			var ent historyEntity
			if err := json.Unmarshal(e, &ent); err != nil {
				return nil, err
			}
			c, err := ent.change()
			if err != nil {
				return nil, err
			}
			out = append(out, c)
		}
	}
	return out, nil
}
