package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"
	"github.com/google/uuid"

	"tasktrail/domain"
)

// ListStatuses returns the user's statuses by order.
func (s *Storage) ListStatuses(ctx context.Context, userID string) ([]domain.Status, error) {
	filter := partitionFilter(userID)
	pager := s.statusTable.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	statuses := []domain.Status{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, e := range resp.Entities {
			var ent statusEntity
			if err := json.Unmarshal(e, &ent); err != nil {
				return nil, err
			}
			st, err := ent.status()
			if err != nil {
				return nil, err
			}
			statuses = append(statuses, st)
		}
	}
	return domain.SortStatuses(statuses), nil
}

// EnsureDefaultStatuses creates the canonical statuses on an empty board and
// upgrades legacy status names. It returns all of the user's statuses.
func (s *Storage) EnsureDefaultStatuses(ctx context.Context, userID string, names domain.RoleNames) ([]domain.Status, error) {
	existing, err := s.ListStatuses(ctx, userID)
	if err != nil {
		return nil, err
	}
	renames, missing := planDefaults(existing, names)
	if len(renames) == 0 && len(missing) == 0 {
		return existing, nil
	}
	for _, r := range renames {
		name, order := r.name, r.order
		if _, err := s.UpdateStatus(ctx, userID, r.id, domain.StatusUpdate{Name: &name, Order: &order}); err != nil {
			return nil, fmt.Errorf("rename legacy status %s: %w", r.id, err)
		}
	}
	for _, m := range missing {
		if _, err := s.CreateStatus(ctx, userID, m.Name, m.Order); err != nil {
			return nil, fmt.Errorf("create default status %s: %w", m.Name, err)
		}
	}
	return s.ListStatuses(ctx, userID)
}

// CreateStatus stores a new status.
func (s *Storage) CreateStatus(ctx context.Context, userID, name string, order int) (domain.Status, error) {
	st := domain.Status{ID: uuid.NewString(), Name: name, Order: order, CreatedAt: s.now()}
	payload, err := json.Marshal(newStatusEntity(userID, st))
	if err != nil {
		return domain.Status{}, err
	}
	if _, err := s.statusTable.AddEntity(ctx, payload, nil); err != nil {
		return domain.Status{}, err
	}
	return st, nil
}

// UpdateStatus renames or reorders a status.
func (s *Storage) UpdateStatus(ctx context.Context, userID, statusID string, upd domain.StatusUpdate) (domain.Status, error) {
	resp, err := s.statusTable.GetEntity(ctx, userID, statusID, nil)
	if err != nil {
		if isNotFound(err) {
			return domain.Status{}, domain.ErrStatusNotFound
		}
		return domain.Status{}, err
	}
	var ent statusEntity
	if err := json.Unmarshal(resp.Value, &ent); err != nil {
		return domain.Status{}, err
	}
	st, err := ent.status()
	if err != nil {
		return domain.Status{}, err
	}
	if upd.Name != nil {
		st.Name = *upd.Name
	}
	if upd.Order != nil {
		st.Order = *upd.Order
	}
	payload, err := json.Marshal(newStatusEntity(userID, st))
	if err != nil {
		return domain.Status{}, err
	}
	et := azcore.ETagAny
	if _, err := s.statusTable.UpdateEntity(ctx, payload, &aztables.UpdateEntityOptions{IfMatch: &et, UpdateMode: aztables.UpdateModeReplace}); err != nil {
		return domain.Status{}, err
	}
	return st, nil
}

// DeleteStatus removes a status. Its tasks are removed by the caller.
func (s *Storage) DeleteStatus(ctx context.Context, userID, statusID string) error {
	if _, err := s.statusTable.DeleteEntity(ctx, userID, statusID, nil); err != nil && !isNotFound(err) {
		return err
	}
	return nil
}
