package storage

import (
	"sort"
	"strings"

	"tasktrail/domain"
)

type statusRename struct {
	id    string
	name  string
	order int
}

// planDefaults works out how to bring a user's statuses to the canonical
// set: an empty board gets all of them, legacy names are renamed to the name
// of the role they stood for, and roles still missing afterwards are added.
// A legacy status is not renamed when its canonical name already exists.
func planDefaults(existing []domain.Status, names domain.RoleNames) ([]statusRename, []domain.Status) {
	defaults := domain.DefaultStatuses(names)
	if len(existing) == 0 {
		return nil, defaults
	}
	present := map[string]bool{}
	for _, s := range existing {
		present[strings.ToLower(s.Name)] = true
	}
	complete := true
	for _, d := range defaults {
		if !present[strings.ToLower(d.Name)] {
			complete = false
		}
	}
	var renames []statusRename
	if !complete {
		for _, s := range domain.SortStatuses(existing) {
			role, ok := domain.LegacyRole(s.Name)
			if !ok {
				continue
			}
			want := names.Name(role)
			if strings.EqualFold(s.Name, want) || present[strings.ToLower(want)] {
				continue
			}
			renames = append(renames, statusRename{id: s.ID, name: want, order: defaultOrder(defaults, want)})
			present[strings.ToLower(want)] = true
		}
	}
	var missing []domain.Status
	next := domain.NextStatusOrder(existing)
	for _, d := range defaults {
		if present[strings.ToLower(d.Name)] {
			continue
		}
		d.Order = next
		next++
		missing = append(missing, d)
	}
	return renames, missing
}

func defaultOrder(defaults []domain.Status, name string) int {
	for _, d := range defaults {
		if d.Name == name {
			return d.Order
		}
	}
	return 0
}

func sortTasks(tasks []domain.Task, less func(a, b domain.Task) bool) {
	sort.SliceStable(tasks, func(i, j int) bool { return less(tasks[i], tasks[j]) })
}
