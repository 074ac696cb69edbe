package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"tasktrail/ai"
	"tasktrail/board"
	"tasktrail/domain"
)

const idempotencyHeader = "Idempotency-Key"

// Deps are the collaborators of the HTTP handlers. Deduper, Hub and Checks
// are optional.
type Deps struct {
	Boards  Boards
	Store   Store
	Auth    Authenticator
	Deduper Deduper
	Parser  *ai.Parser
	Hub     *Hub
	Checks  map[string]Checker
	Logger  *log.Logger
	Now     func() time.Time
}

type handlers struct {
	Deps
}

// Register wires up all API routes on the provided Echo instance.
func Register(e *echo.Echo, d Deps) {
	if d.Logger == nil {
		d.Logger = log.StandardLogger()
	}
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Parser == nil {
		d.Parser = ai.NewParser(nil)
	}
	if d.Hub == nil {
		d.Hub = NewHub()
	}
	h := &handlers{Deps: d}

	g := e.Group("/api", RequestMetrics(d.Logger), RequireUser(d.Auth))
	g.GET("/board", h.getBoard)
	g.POST("/board/drag", h.dragTask)

	g.GET("/tasks", h.listTasks)
	g.POST("/tasks", h.addTask)
	g.GET("/tasks/archived", h.listArchived)
	g.POST("/tasks/batch", h.addTasks)
	g.PATCH("/tasks/:id", h.updateTask)
	g.DELETE("/tasks/:id", h.deleteTask)
	g.POST("/tasks/:id/status", h.changeStatus)
	g.POST("/tasks/:id/advance", h.taskCommand("advance", (*board.Board).AdvanceTask))
	g.POST("/tasks/:id/toggle-done", h.taskCommand("toggle_done", (*board.Board).ToggleTaskDone))
	g.POST("/tasks/:id/archive", h.taskCommand("archive", (*board.Board).ArchiveTask))
	g.POST("/tasks/:id/unarchive", h.taskCommand("unarchive", (*board.Board).UnarchiveTask))
	g.GET("/tasks/:id/history", h.taskHistory)

	g.GET("/statuses", h.listStatuses)
	g.POST("/statuses", h.addStatus)
	g.POST("/statuses/drag", h.dragStatus)
	g.PATCH("/statuses/:id", h.renameStatus)
	g.DELETE("/statuses/:id", h.deleteStatus)

	g.GET("/working-date", h.getWorkingDate)
	g.PUT("/working-date", h.setWorkingDate)

	g.GET("/ai/status", h.aiStatus)
	g.POST("/ai/parse", h.aiParse)
	g.POST("/ai/suggest", h.aiSuggest)
	g.POST("/ai/import", h.aiImport)

	g.GET("/stream", h.streamBoard)

	e.GET("/healthz", h.healthz)
}

func (h *handlers) board(c echo.Context) (*board.Board, error) {
	return h.Boards.Board(c.Request().Context(), userFrom(c))
}

func (h *handlers) healthz(c echo.Context) error {
	failed := map[string]string{}
	for name, check := range h.Checks {
		if err := check(c.Request().Context()); err != nil {
			failed[name] = err.Error()
		}
	}
	if len(failed) > 0 {
		log.WithField("checks", failed).Warn("health check failed")
		return c.JSON(http.StatusServiceUnavailable, map[string]any{"status": "unavailable", "checks": failed})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) getBoard(c echo.Context) error {
	b, err := h.board(c)
	if err != nil {
		return fail(c, "bootstrap", err)
	}
	snap := b.Snapshot()
	metricsFrom(c).Set("tasks_returned", len(snap.Tasks))
	return c.JSON(http.StatusOK, snap)
}

// listTasks serves either the stored tasks of one day (?date=) or the list
// view of a date range (?from=&to=) with per-tab counts, narrowed to one tab
// by ?role=.
func (h *handlers) listTasks(c echo.Context) error {
	ctx := c.Request().Context()
	m := metricsFrom(c)
	if date := c.QueryParam("date"); date != "" {
		if !domain.ValidDate(date) {
			return fail(c, "validate", domain.ErrInvalidDate)
		}
		tasks, err := h.Store.ListTasksByDate(ctx, userFrom(c), date)
		if err != nil {
			return fail(c, "storage", err)
		}
		m.Set("tasks_returned", len(tasks))
		return c.JSON(http.StatusOK, tasksResponse{Tasks: tasks})
	}

	r := domain.DateRange{From: c.QueryParam("from"), To: c.QueryParam("to")}
	if (r.From != "" && !domain.ValidDate(r.From)) || (r.To != "" && !domain.ValidDate(r.To)) {
		return fail(c, "validate", domain.ErrInvalidDate)
	}
	if r.From == "" && r.To == "" {
		r = domain.DefaultRange(h.Now())
	}
	r = r.Normalize()

	role := domain.RoleNone
	if raw := c.QueryParam("role"); raw != "" {
		var ok bool
		if role, ok = domain.ParseRole(raw); !ok {
			return fail(c, "validate", errInvalidQuery)
		}
	}

	b, err := h.board(c)
	if err != nil {
		return fail(c, "bootstrap", err)
	}
	snap := b.Snapshot()
	roles := b.Roles()
	tasks := domain.FilterRange(snap.Tasks, roles, r)
	if role != domain.RoleNone {
		filtered := tasks[:0]
		for _, t := range tasks {
			if roles.Of(t.StatusID) == role {
				filtered = append(filtered, t)
			}
		}
		tasks = filtered
		domain.SortForList(tasks, role)
	}
	m.Set("tasks_returned", len(tasks))
	return c.JSON(http.StatusOK, listResponse{
		Tasks:  tasks,
		Counts: domain.CountByRole(snap.Tasks, roles, r),
		Range:  r,
	})
}

func (h *handlers) listArchived(c echo.Context) error {
	tasks, err := h.Store.FetchArchivedTasks(c.Request().Context(), userFrom(c))
	if err != nil {
		return fail(c, "storage", err)
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	metricsFrom(c).Set("tasks_returned", len(tasks))
	return c.JSON(http.StatusOK, tasksResponse{Tasks: tasks})
}

func (h *handlers) addTask(c echo.Context) error {
	var in board.TaskInput
	if err := decodeBody(c, &in); err != nil {
		return fail(c, "decode", err)
	}
	b, err := h.board(c)
	if err != nil {
		return fail(c, "bootstrap", err)
	}
	task, err := b.AddTask(c.Request().Context(), in)
	if err != nil {
		return fail(c, "add_task", err)
	}
	return c.JSON(http.StatusCreated, task)
}

// addTasks creates a batch of tasks. A repeated Idempotency-Key is answered
// without creating anything.
func (h *handlers) addTasks(c echo.Context) error {
	ctx := c.Request().Context()
	var req batchRequest
	if err := decodeBody(c, &req); err != nil {
		return fail(c, "decode", err)
	}
	b, err := h.board(c)
	if err != nil {
		return fail(c, "bootstrap", err)
	}

	userID := userFrom(c)
	key := strings.TrimSpace(c.Request().Header.Get(idempotencyHeader))
	recorded := false
	if key != "" && h.Deduper != nil {
		added, err := h.Deduper.Add(ctx, userID, key)
		switch {
		case err != nil:
			log.WithError(err).WithField("user", userID).Warn("idempotency check failed; processing batch")
		case !added:
			metricsFrom(c).Set("duplicate", true)
			return c.JSON(http.StatusOK, batchResponse{Tasks: []domain.Task{}, Duplicate: true})
		default:
			recorded = true
		}
	}

	tasks, err := b.AddTasks(ctx, req.Tasks)
	if err != nil {
		if recorded {
			if rerr := h.Deduper.Remove(ctx, userID, key); rerr != nil {
				log.WithError(rerr).WithField("user", userID).Warn("release idempotency key")
			}
		}
		return fail(c, "add_tasks", err)
	}
	metricsFrom(c).Set("tasks_created", len(tasks))
	return c.JSON(http.StatusCreated, batchResponse{Tasks: tasks})
}

func (h *handlers) updateTask(c echo.Context) error {
	var edit board.TaskEdit
	if err := decodeBody(c, &edit); err != nil {
		return fail(c, "decode", err)
	}
	b, err := h.board(c)
	if err != nil {
		return fail(c, "bootstrap", err)
	}
	task, err := b.UpdateTask(c.Request().Context(), c.Param("id"), edit)
	if err != nil {
		return fail(c, "update_task", err)
	}
	return c.JSON(http.StatusOK, task)
}

func (h *handlers) deleteTask(c echo.Context) error {
	b, err := h.board(c)
	if err != nil {
		return fail(c, "bootstrap", err)
	}
	if err := b.DeleteTask(c.Request().Context(), c.Param("id")); err != nil {
		return fail(c, "delete_task", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *handlers) changeStatus(c echo.Context) error {
	var req statusRequest
	if err := decodeBody(c, &req); err != nil {
		return fail(c, "decode", err)
	}
	b, err := h.board(c)
	if err != nil {
		return fail(c, "bootstrap", err)
	}
	task, err := b.ChangeTaskStatus(c.Request().Context(), c.Param("id"), req.StatusID)
	if err != nil {
		return fail(c, "change_status", err)
	}
	return c.JSON(http.StatusOK, task)
}

// taskCommand serves the body-less commands on a single task.
func (h *handlers) taskCommand(stage string, cmd func(*board.Board, context.Context, string) (domain.Task, error)) echo.HandlerFunc {
	return func(c echo.Context) error {
		b, err := h.board(c)
		if err != nil {
			return fail(c, "bootstrap", err)
		}
		task, err := cmd(b, c.Request().Context(), c.Param("id"))
		if err != nil {
			return fail(c, stage, err)
		}
		return c.JSON(http.StatusOK, task)
	}
}

func (h *handlers) taskHistory(c echo.Context) error {
	history, err := h.Store.ListStatusHistory(c.Request().Context(), userFrom(c), c.Param("id"))
	if err != nil {
		return fail(c, "storage", err)
	}
	if history == nil {
		history = []domain.StatusChange{}
	}
	return c.JSON(http.StatusOK, historyResponse{History: history})
}

func (h *handlers) dragTask(c echo.Context) error {
	var ev domain.DragEvent
	if err := decodeBody(c, &ev); err != nil {
		return fail(c, "decode", err)
	}
	b, err := h.board(c)
	if err != nil {
		return fail(c, "bootstrap", err)
	}
	plan, err := b.ReorderOnDrag(c.Request().Context(), ev)
	if err != nil {
		return fail(c, "drag", err)
	}
	m := metricsFrom(c)
	m.Set("drag_kind", string(plan.Kind))
	m.Set("writes", len(plan.Writes()))
	if !plan.Changed() {
		return c.JSON(http.StatusOK, dragResponse{Kind: domain.DragNoOp})
	}
	return c.JSON(http.StatusOK, dragResponse{Kind: plan.Kind, Tasks: b.Snapshot().Tasks})
}

func (h *handlers) getWorkingDate(c echo.Context) error {
	b, err := h.board(c)
	if err != nil {
		return fail(c, "bootstrap", err)
	}
	return c.JSON(http.StatusOK, dateRequest{Date: b.WorkingDate()})
}

func (h *handlers) setWorkingDate(c echo.Context) error {
	var req dateRequest
	if err := decodeBody(c, &req); err != nil {
		return fail(c, "decode", err)
	}
	b, err := h.board(c)
	if err != nil {
		return fail(c, "bootstrap", err)
	}
	date, err := b.SetWorkingDate(c.Request().Context(), strings.TrimSpace(req.Date))
	if err != nil {
		return fail(c, "working_date", err)
	}
	return c.JSON(http.StatusOK, dateRequest{Date: date})
}
