package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"

	"tasktrail/ai"
	"tasktrail/board"
	"tasktrail/domain"
)

type suggestResponse struct {
	Tasks []string `json:"tasks"`
}

func (h *handlers) aiStatus(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]bool{"enabled": h.Parser.Enabled()})
}

func (h *handlers) aiParse(c echo.Context) error {
	var req textRequest
	if err := decodeBody(c, &req); err != nil {
		return fail(c, "decode", err)
	}
	res, err := h.Parser.Parse(c.Request().Context(), req.Text)
	if err != nil {
		return failWith(c, "ai_parse", err, "Failed to parse input")
	}
	metricsFrom(c).Set("ai_mode", res.Mode)
	return c.JSON(http.StatusOK, res)
}

func (h *handlers) aiSuggest(c echo.Context) error {
	var req textRequest
	if err := decodeBody(c, &req); err != nil {
		return fail(c, "decode", err)
	}
	titles, err := h.Parser.Suggest(c.Request().Context(), req.Text)
	switch {
	case errors.Is(err, ai.ErrDisabled):
		return failWith(c, "ai_suggest", err, "OPENAI_API_KEY is required")
	case err != nil:
		return failWith(c, "ai_suggest", err, "Failed to fetch AI suggestions")
	}
	return c.JSON(http.StatusOK, suggestResponse{Tasks: titles})
}

// aiImport parses free text and files the resulting tasks into Inbox. When
// the model fails the text is imported as a single literal task.
func (h *handlers) aiImport(c echo.Context) error {
	ctx := c.Request().Context()
	var req textRequest
	if err := decodeBody(c, &req); err != nil {
		return fail(c, "decode", err)
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return c.JSON(http.StatusOK, importResponse{Mode: ai.ModeFallback, Tasks: []domain.Task{}})
	}
	res, err := h.Parser.Parse(ctx, text)
	if err != nil {
		log.WithError(err).WithField("user", userFrom(c)).Warn("ai parse failed; importing literal text")
		res = ai.ParseResult{Mode: ai.ModeFallback, Items: []ai.Item{{Title: text}}}
	}

	b, err := h.board(c)
	if err != nil {
		return fail(c, "bootstrap", err)
	}
	inbox, _ := b.Roles().ID(domain.RoleInbox)
	inputs := make([]board.TaskInput, 0, len(res.Items))
	for _, it := range res.Items {
		inputs = append(inputs, board.TaskInput{Title: it.Title, StatusID: inbox, Date: it.Date})
	}
	tasks, err := b.AddTasks(ctx, inputs)
	if err != nil {
		return fail(c, "add_tasks", err)
	}
	metricsFrom(c).Set("ai_mode", res.Mode)
	metricsFrom(c).Set("tasks_created", len(tasks))
	return c.JSON(http.StatusCreated, importResponse{Mode: res.Mode, Tasks: tasks})
}
