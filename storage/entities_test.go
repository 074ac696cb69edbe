package storage

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"tasktrail/domain"
)

func TestTaskEntityRoundTrip(t *testing.T) {
	created := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	started := created.Add(time.Hour)
	task := domain.Task{
		ID: "t1", Title: "Write", StatusID: "s1", Date: "2026-03-01", Order: 3,
		CreatedAt: created, UpdatedAt: started, StartedAt: &started,
	}
	payload, err := json.Marshal(newTaskEntity("u1", task))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var ent taskEntity
	if err := json.Unmarshal(payload, &ent); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ent.PartitionKey != "u1" || ent.RowKey != "t1" {
		t.Fatalf("keys = %s/%s", ent.PartitionKey, ent.RowKey)
	}
	got, err := ent.task()
	if err != nil {
		t.Fatalf("task: %v", err)
	}
	if diff := cmp.Diff(task, got); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestTaskEntityOmitsUnsetTimestamps(t *testing.T) {
	payload, err := json.Marshal(newTaskEntity("u1", domain.Task{ID: "t1", Title: "x"}))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var raw map[string]any
	if err := json.Unmarshal(payload, &raw); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, k := range []string{"StartedAt", "CompletedAt", "ArchivedAt", "StartedAt@odata.type"} {
		if _, ok := raw[k]; ok {
			t.Fatalf("%s should be omitted", k)
		}
	}
	if raw["Order@odata.type"] != EdmInt32 || raw["IsArchived@odata.type"] != EdmBoolean || raw["CreatedAt@odata.type"] != EdmDateTime {
		t.Fatalf("missing type annotations: %v", raw)
	}
}

func TestHistoryRowKeySortsByTime(t *testing.T) {
	early := domain.StatusChange{ChangedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	late := domain.StatusChange{ChangedAt: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)}
	if historyRowKey(early, "b") >= historyRowKey(late, "a") {
		t.Fatalf("row keys not time ordered")
	}
	if !strings.HasSuffix(historyRowKey(early, "abc"), "_abc") {
		t.Fatalf("row key should carry the id")
	}
}

func TestPartitionFilterEscapesQuotes(t *testing.T) {
	got := partitionFilter("o'brien", "TaskId eq "+quote("t'1"))
	want := "PartitionKey eq 'o''brien' and TaskId eq 't''1'"
	if got != want {
		t.Fatalf("filter = %s", got)
	}
}
