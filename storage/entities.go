package storage

import (
	"fmt"
	"strings"
	"time"

	"tasktrail/domain"
)

// Entity represents base table entity keys.
type Entity struct {
	PartitionKey string `json:"PartitionKey"`
	RowKey       string `json:"RowKey"`
}

const (
	EdmInt32    = "Edm.Int32"
	EdmBoolean  = "Edm.Boolean"
	EdmDateTime = "Edm.DateTime"
)

// taskEntity is a task row. Nullable timestamps are omitted when unset, so
// replacing the entity clears them.
type taskEntity struct {
	Entity
	Title           string  `json:"Title"`
	StatusID        string  `json:"StatusId"`
	Date            string  `json:"Date"`
	Order           int     `json:"Order"`
	OrderType       string  `json:"Order@odata.type"`
	IsArchived      bool    `json:"IsArchived"`
	IsArchivedType  string  `json:"IsArchived@odata.type"`
	CreatedAt       string  `json:"CreatedAt"`
	CreatedAtType   string  `json:"CreatedAt@odata.type"`
	UpdatedAt       string  `json:"UpdatedAt"`
	UpdatedAtType   string  `json:"UpdatedAt@odata.type"`
	StartedAt       *string `json:"StartedAt,omitempty"`
	StartedAtType   *string `json:"StartedAt@odata.type,omitempty"`
	CompletedAt     *string `json:"CompletedAt,omitempty"`
	CompletedAtType *string `json:"CompletedAt@odata.type,omitempty"`
	ArchivedAt      *string `json:"ArchivedAt,omitempty"`
	ArchivedAtType  *string `json:"ArchivedAt@odata.type,omitempty"`
}

type statusEntity struct {
	Entity
	Name          string `json:"Name"`
	Order         int    `json:"Order"`
	OrderType     string `json:"Order@odata.type"`
	CreatedAt     string `json:"CreatedAt"`
	CreatedAtType string `json:"CreatedAt@odata.type"`
}

type historyEntity struct {
	Entity
	TaskID        string `json:"TaskId"`
	FromStatusID  string `json:"FromStatusId"`
	ToStatusID    string `json:"ToStatusId"`
	ChangedAt     string `json:"ChangedAt"`
	ChangedAtType string `json:"ChangedAt@odata.type"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse time %q: %w", s, err)
	}
	return t.UTC(), nil
}

func formatOptional(t *time.Time) (*string, *string) {
	if t == nil {
		return nil, nil
	}
	v := formatTime(*t)
	typ := EdmDateTime
	return &v, &typ
}

func parseOptional(s *string) (*time.Time, error) {
	if s == nil || *s == "" {
		return nil, nil
	}
	t, err := parseTime(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func newTaskEntity(userID string, t domain.Task) taskEntity {
	ent := taskEntity{
		Entity:         Entity{PartitionKey: userID, RowKey: t.ID},
		Title:          t.Title,
		StatusID:       t.StatusID,
		Date:           t.Date,
		Order:          t.Order,
		OrderType:      EdmInt32,
		IsArchived:     t.IsArchived,
		IsArchivedType: EdmBoolean,
		CreatedAt:      formatTime(t.CreatedAt),
		CreatedAtType:  EdmDateTime,
		UpdatedAt:      formatTime(t.UpdatedAt),
		UpdatedAtType:  EdmDateTime,
	}
	ent.StartedAt, ent.StartedAtType = formatOptional(t.StartedAt)
	ent.CompletedAt, ent.CompletedAtType = formatOptional(t.CompletedAt)
	ent.ArchivedAt, ent.ArchivedAtType = formatOptional(t.ArchivedAt)
	return ent
}

func (e taskEntity) task() (domain.Task, error) {
	t := domain.Task{
		ID:         e.RowKey,
		Title:      e.Title,
		StatusID:   e.StatusID,
		Date:       e.Date,
		Order:      e.Order,
		IsArchived: e.IsArchived,
	}
	var err error
	if t.CreatedAt, err = parseTime(e.CreatedAt); err != nil {
		return domain.Task{}, err
	}
	if t.UpdatedAt, err = parseTime(e.UpdatedAt); err != nil {
		return domain.Task{}, err
	}
	if t.StartedAt, err = parseOptional(e.StartedAt); err != nil {
		return domain.Task{}, err
	}
	if t.CompletedAt, err = parseOptional(e.CompletedAt); err != nil {
		return domain.Task{}, err
	}
	if t.ArchivedAt, err = parseOptional(e.ArchivedAt); err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

func newStatusEntity(userID string, s domain.Status) statusEntity {
	return statusEntity{
		Entity:        Entity{PartitionKey: userID, RowKey: s.ID},
		Name:          s.Name,
		Order:         s.Order,
		OrderType:     EdmInt32,
		CreatedAt:     formatTime(s.CreatedAt),
		CreatedAtType: EdmDateTime,
	}
}

func (e statusEntity) status() (domain.Status, error) {
	created, err := parseTime(e.CreatedAt)
	if err != nil {
		return domain.Status{}, err
	}
	return domain.Status{ID: e.RowKey, Name: e.Name, Order: e.Order, CreatedAt: created}, nil
}

// historyRowKey sorts entries of a partition by change time.
func historyRowKey(c domain.StatusChange, id string) string {
	return fmt.Sprintf("%019d_%s", c.ChangedAt.UnixNano(), id)
}

func newHistoryEntity(userID, rowKey string, c domain.StatusChange) historyEntity {
	return historyEntity{
		Entity:        Entity{PartitionKey: userID, RowKey: rowKey},
		TaskID:        c.TaskID,
		FromStatusID:  c.FromStatusID,
		ToStatusID:    c.ToStatusID,
		ChangedAt:     formatTime(c.ChangedAt),
		ChangedAtType: EdmDateTime,
	}
}

func (e historyEntity) change() (domain.StatusChange, error) {
	at, err := parseTime(e.ChangedAt)
	if err != nil {
		return domain.StatusChange{}, err
	}
	return domain.StatusChange{TaskID: e.TaskID, FromStatusID: e.FromStatusID, ToStatusID: e.ToStatusID, ChangedAt: at}, nil
}

// quote renders s as an OData string literal.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

func partitionFilter(userID string, clauses ...string) string {
	parts := append([]string{"PartitionKey eq " + quote(userID)}, clauses...)
	return strings.Join(parts, " and ")
}
