package api

import (
	"context"

	"tasktrail/board"
	"tasktrail/domain"
)

const maxBodySize = 64 * 1024 // 64 KiB

// Boards hands out per-user boards.
type Boards interface {
	Board(ctx context.Context, userID string) (*board.Board, error)
}

// Store is the read side that handlers query directly, bypassing the board.
type Store interface {
	ListTasksByDate(ctx context.Context, userID, date string) ([]domain.Task, error)
	FetchArchivedTasks(ctx context.Context, userID string) ([]domain.Task, error)
	ListStatusHistory(ctx context.Context, userID, taskID string) ([]domain.StatusChange, error)
}

// Authenticator is implemented by types able to extract user IDs from headers.
type Authenticator interface {
	UserIDFromAuthHeader(string) (string, error)
}

// Deduper prevents processing of duplicate batches.
type Deduper interface {
	// Add records the idempotency key and returns true if it was newly added.
	Add(ctx context.Context, userID, key string) (bool, error)
	// Remove deletes a previously added key, used when processing fails.
	Remove(ctx context.Context, userID, key string) error
}

// Checker reports whether a dependency is reachable.
type Checker func(ctx context.Context) error

type errorResponse struct {
	Error string `json:"error"`
}

type tasksResponse struct {
	Tasks []domain.Task `json:"tasks"`
}

type listResponse struct {
	Tasks  []domain.Task     `json:"tasks"`
	Counts domain.RoleCounts `json:"counts"`
	Range  domain.DateRange  `json:"range"`
}

type batchRequest struct {
	Tasks []board.TaskInput `json:"tasks"`
}

type batchResponse struct {
	Tasks     []domain.Task `json:"tasks"`
	Duplicate bool          `json:"duplicate,omitempty"`
}

type statusRequest struct {
	StatusID string `json:"statusId"`
}

type nameRequest struct {
	Name string `json:"name"`
}

type dateRequest struct {
	Date string `json:"date"`
}

type textRequest struct {
	Text string `json:"text"`
}

type dragResponse struct {
	Kind  domain.DragKind `json:"kind"`
	Tasks []domain.Task   `json:"tasks,omitempty"`
}

type historyResponse struct {
	History []domain.StatusChange `json:"history"`
}

type statusesResponse struct {
	Statuses []domain.Status `json:"statuses"`
}

type importResponse struct {
	Mode  string        `json:"mode"`
	Tasks []domain.Task `json:"tasks"`
}
