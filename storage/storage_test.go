package storage

import "testing"

func TestConfigFromEnv(t *testing.T) {
	env := map[string]string{
		"STORAGE_CONNECTION_STRING": "UseDevelopmentStorage=true",
		"HISTORY_QUEUE":             "history-dev",
	}
	cfg := ConfigFromEnv(func(k string) string { return env[k] })
	want := Config{
		ConnectionString: "UseDevelopmentStorage=true",
		TasksTable:       "Tasks",
		StatusesTable:    "Statuses",
		HistoryTable:     "TaskStatusHistory",
		HistoryQueue:     "history-dev",
	}
	if cfg != want {
		t.Fatalf("ConfigFromEnv = %+v, want %+v", cfg, want)
	}
}
