package board

import (
	"context"

	"tasktrail/domain"
)

// Store defines the persistence calls a board issues. Every call is scoped to
// one user and independent of the others.
type Store interface {
	ListTasks(ctx context.Context, userID string) ([]domain.Task, error)
	FetchArchivedTasks(ctx context.Context, userID string) ([]domain.Task, error)
	CreateTask(ctx context.Context, userID string, in domain.NewTask) (domain.Task, error)
	CreateTasks(ctx context.Context, userID string, in []domain.NewTask) ([]domain.Task, error)
	UpdateTask(ctx context.Context, userID, taskID string, upd domain.TaskUpdate) (domain.Task, error)
	DeleteTask(ctx context.Context, userID, taskID string) error

	ListStatuses(ctx context.Context, userID string) ([]domain.Status, error)
	EnsureDefaultStatuses(ctx context.Context, userID string, names domain.RoleNames) ([]domain.Status, error)
	CreateStatus(ctx context.Context, userID, name string, order int) (domain.Status, error)
	UpdateStatus(ctx context.Context, userID, statusID string, upd domain.StatusUpdate) (domain.Status, error)
	DeleteStatus(ctx context.Context, userID, statusID string) error

	CreateTaskStatusHistory(ctx context.Context, userID string, change domain.StatusChange) error
}
