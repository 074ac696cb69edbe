package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/google/uuid"

	"tasktrail/domain"
)

// maxBatch is the entity-group transaction limit of Table Storage.
const maxBatch = 100

// Config names the Azure resources used by Storage.
type Config struct {
	ConnectionString string
	TasksTable       string
	StatusesTable    string
	HistoryTable     string
	HistoryQueue     string
}

// ConfigFromEnv reads the storage resource names, defaulting unset names.
func ConfigFromEnv(getenv func(string) string) Config {
	get := func(key, def string) string {
		if v := getenv(key); v != "" {
			return v
		}
		return def
	}
	return Config{
		ConnectionString: getenv("STORAGE_CONNECTION_STRING"),
		TasksTable:       get("TASKS_TABLE", "Tasks"),
		StatusesTable:    get("STATUSES_TABLE", "Statuses"),
		HistoryTable:     get("HISTORY_TABLE", "TaskStatusHistory"),
		HistoryQueue:     get("HISTORY_QUEUE", "task-status-history"),
	}
}

// Storage persists boards in Azure Table Storage. Each user is one partition.
type Storage struct {
	taskTable    *aztables.Client
	statusTable  *aztables.Client
	historyTable *aztables.Client
	historyQueue *azqueue.QueueClient
	now          func() time.Time
}

var retryStatusCodes = []int{408, 429, 500, 502, 503, 504}

// New creates a Storage instance from the given configuration.
func New(cfg Config) (*Storage, error) {
	tablesClientOptions := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   retryStatusCodes,
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(cfg.ConnectionString, &tablesClientOptions)
	if err != nil {
		return nil, err
	}
	queueClientOptions := azqueue.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    5,
				TryTimeout:    time.Minute * 5,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 60,
				StatusCodes:   retryStatusCodes,
			},
		},
	}
	hq, err := azqueue.NewQueueClientFromConnectionString(cfg.ConnectionString, cfg.HistoryQueue, &queueClientOptions)
	if err != nil {
		return nil, err
	}
	return &Storage{
		taskTable:    svc.NewClient(cfg.TasksTable),
		statusTable:  svc.NewClient(cfg.StatusesTable),
		historyTable: svc.NewClient(cfg.HistoryTable),
		historyQueue: hq,
		now:          func() time.Time { return time.Now().UTC() },
	}, nil
}

func isNotFound(err error) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == 404
}

func (s *Storage) listTasks(ctx context.Context, filter string) ([]domain.Task, error) {
	pager := s.taskTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	tasks := []domain.Task{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			var ent taskEntity
			if err := json.Unmarshal(e, &ent); err != nil {
				return nil, err
			}
			t, err := ent.task()
			if err != nil {
				return nil, err
			}
			tasks = append(tasks, t)
		}
	}
	return tasks, nil
}

// ListTasks returns the user's non-archived tasks.
func (s *Storage) ListTasks(ctx context.Context, userID string) ([]domain.Task, error) {
	return s.listTasks(ctx, partitionFilter(userID, "IsArchived eq false"))
}

// ListTasksByDate returns the user's non-archived tasks dated date.
func (s *Storage) ListTasksByDate(ctx context.Context, userID, date string) ([]domain.Task, error) {
	tasks, err := s.listTasks(ctx, partitionFilter(userID, "IsArchived eq false", "Date eq "+quote(date)))
	if err != nil {
		return nil, err
	}
	sortTasks(tasks, func(a, b domain.Task) bool { return a.Order < b.Order })
	return tasks, nil
}

// FetchArchivedTasks returns the user's archived tasks, most recently
// archived first.
func (s *Storage) FetchArchivedTasks(ctx context.Context, userID string) ([]domain.Task, error) {
	tasks, err := s.listTasks(ctx, partitionFilter(userID, "IsArchived eq true"))
	if err != nil {
		return nil, err
	}
	archivedFirst(tasks)
	return tasks, nil
}

func (s *Storage) newTask(in domain.NewTask) domain.Task {
	now := s.now()
	return domain.Task{
		ID:          uuid.NewString(),
		Title:       in.Title,
		StatusID:    in.StatusID,
		Date:        in.Date,
		Order:       in.Order,
		CreatedAt:   now,
		UpdatedAt:   now,
		StartedAt:   in.StartedAt,
		CompletedAt: in.CompletedAt,
	}
}

// CreateTask stores a new task.
func (s *Storage) CreateTask(ctx context.Context, userID string, in domain.NewTask) (domain.Task, error) {
	t := s.newTask(in)
	payload, err := json.Marshal(newTaskEntity(userID, t))
	if err != nil {
		return domain.Task{}, err
	}
	if _, err := s.taskTable.AddEntity(ctx, payload, nil); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

// CreateTasks stores tasks in entity-group transactions. Each transaction is
// atomic; a failure leaves earlier chunks stored.
func (s *Storage) CreateTasks(ctx context.Context, userID string, in []domain.NewTask) ([]domain.Task, error) {
	created := make([]domain.Task, 0, len(in))
	for start := 0; start < len(in); start += maxBatch {
		end := min(start+maxBatch, len(in))
		actions := make([]aztables.TransactionAction, 0, end-start)
		chunk := make([]domain.Task, 0, end-start)
		for _, nt := range in[start:end] {
			t := s.newTask(nt)
			payload, err := json.Marshal(newTaskEntity(userID, t))
			if err != nil {
				return created, err
			}
			actions = append(actions, aztables.TransactionAction{ActionType: aztables.TransactionTypeAdd, Entity: payload})
			chunk = append(chunk, t)
		}
		if _, err := s.taskTable.SubmitTransaction(ctx, actions, nil); err != nil {
			return created, fmt.Errorf("create tasks batch at %d: %w", start, err)
		}
		created = append(created, chunk...)
	}
	return created, nil
}

func (s *Storage) getTask(ctx context.Context, userID, taskID string) (domain.Task, error) {
	resp, err := s.taskTable.GetEntity(ctx, userID, taskID, nil)
	if err != nil {
		if isNotFound(err) {
			return domain.Task{}, domain.ErrTaskNotFound
		}
		return domain.Task{}, err
	}
	var ent taskEntity
	if err := json.Unmarshal(resp.Value, &ent); err != nil {
		return domain.Task{}, err
	}
	return ent.task()
}

// UpdateTask applies a partial update and replaces the stored entity. The
// last write wins.
func (s *Storage) UpdateTask(ctx context.Context, userID, taskID string, upd domain.TaskUpdate) (domain.Task, error) {
	t, err := s.getTask(ctx, userID, taskID)
	if err != nil {
		return domain.Task{}, err
	}
	t = upd.Apply(t)
	t.UpdatedAt = s.now()
	payload, err := json.Marshal(newTaskEntity(userID, t))
	if err != nil {
		return domain.Task{}, err
	}
	et := azcore.ETagAny
	if _, err := s.taskTable.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{IfMatch: &et, UpdateMode: aztables.UpdateModeReplace}); err != nil {
		if isNotFound(err) {
			return domain.Task{}, domain.ErrTaskNotFound
		}
		return domain.Task{}, err
	}
	return t, nil
}

// DeleteTask removes a task. Deleting a missing task succeeds.
func (s *Storage) DeleteTask(ctx context.Context, userID, taskID string) error {
	if _, err := s.taskTable.DeleteEntity(ctx, userID, taskID, nil); err != nil && !isNotFound(err) {
		return err
	}
	return nil
}
