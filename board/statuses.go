package board

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"tasktrail/domain"
)

// Statuses returns the board's statuses by order.
func (b *Board) Statuses() []domain.Status {
	b.mu.Lock()
	defer b.mu.Unlock()
	return domain.SortStatuses(b.statuses)
}

// AddStatus appends a status after the last one.
func (b *Board) AddStatus(ctx context.Context, name string) (domain.Status, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Status{}, domain.ErrEmptyName
	}
	s, err := b.store.CreateStatus(ctx, b.userID, name, domain.NextStatusOrder(b.statuses))
	if err != nil {
		b.logFailure("add_status", err)
		return domain.Status{}, err
	}
	b.statuses = append(b.statuses, s)
	b.resolveRoles()
	b.changed(ctx)
	return s, nil
}

// RenameStatus changes a status name. Roles are re-resolved afterwards, so a
// rename can give or take away a role.
func (b *Board) RenameStatus(ctx context.Context, statusID, name string) (domain.Status, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Status{}, domain.ErrEmptyName
	}
	i, err := b.statusIndex(statusID)
	if err != nil {
		return domain.Status{}, err
	}
	if b.statuses[i].Name == name {
		return b.statuses[i], nil
	}
	b.statuses[i].Name = name
	b.resolveRoles()
	s, err := b.store.UpdateStatus(ctx, b.userID, statusID, domain.StatusUpdate{Name: &name})
	if err != nil {
		b.logFailure("rename_status", err)
		return b.statuses[i], err
	}
	b.statuses[i] = s
	b.changed(ctx)
	return s, nil
}

// DeleteStatus removes a status together with all of its tasks, archived
// ones included.
func (b *Board) DeleteStatus(ctx context.Context, statusID string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	i, err := b.statusIndex(statusID)
	if err != nil {
		return err
	}
	archived, err := b.store.FetchArchivedTasks(ctx, b.userID)
	if err != nil {
		return fmt.Errorf("fetch archived tasks: %w", err)
	}
	var doomed []string
	for _, t := range append(domain.InStatus(b.tasks, statusID), domain.InStatus(archived, statusID)...) {
		doomed = append(doomed, t.ID)
	}

	b.statuses = append(b.statuses[:i:i], b.statuses[i+1:]...)
	kept := b.tasks[:0:0]
	for _, t := range b.tasks {
		if t.StatusID != statusID {
			kept = append(kept, t)
		}
	}
	b.tasks = kept
	b.resolveRoles()

	var g errgroup.Group
	g.SetLimit(b.opts.Concurrency)
	for _, id := range doomed {
		g.Go(func() error {
			if err := b.store.DeleteTask(ctx, b.userID, id); err != nil {
				return fmt.Errorf("delete task %s: %w", id, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		b.logFailure("delete_status", err)
		return err
	}
	if err := b.store.DeleteStatus(ctx, b.userID, statusID); err != nil {
		b.logFailure("delete_status", err)
		return err
	}
	b.changed(ctx)
	return nil
}

// ReorderStatusesOnDrag moves the dragged status to the position of the one it
// was dropped on and renumbers all statuses 1..n.
func (b *Board) ReorderStatusesOnDrag(ctx context.Context, ev domain.DragEvent) ([]domain.Status, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ordered := domain.SortStatuses(b.statuses)
	if ev.IsNoOp() {
		return ordered, nil
	}
	from, to := -1, -1
	for i, s := range ordered {
		switch s.ID {
		case ev.Active.ID:
			from = i
		case ev.Over.ID:
			to = i
		}
	}
	if from < 0 || to < 0 {
		return ordered, nil
	}
	ordered = domain.Reorder(ordered, from, to)
	type write struct {
		id    string
		order int
	}
	var writes []write
	for i := range ordered {
		if ordered[i].Order != i+1 {
			ordered[i].Order = i + 1
			writes = append(writes, write{id: ordered[i].ID, order: i + 1})
		}
	}
	if len(writes) == 0 {
		return ordered, nil
	}
	b.statuses = ordered

	var g errgroup.Group
	g.SetLimit(b.opts.Concurrency)
	for _, w := range writes {
		g.Go(func() error {
			order := w.order
			if _, err := b.store.UpdateStatus(ctx, b.userID, w.id, domain.StatusUpdate{Order: &order}); err != nil {
				return fmt.Errorf("update status %s: %w", w.id, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		b.logFailure("reorder_statuses", err)
		return domain.SortStatuses(b.statuses), err
	}
	b.resolveRoles()
	b.changed(ctx)
	return domain.SortStatuses(b.statuses), nil
}

func (b *Board) resolveRoles() {
	b.roles = domain.ResolveRoles(b.statuses, b.opts.Names)
}
