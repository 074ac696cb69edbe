package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"tasktrail/domain"
)

func (h *handlers) listStatuses(c echo.Context) error {
	b, err := h.board(c)
	if err != nil {
		return fail(c, "bootstrap", err)
	}
	return c.JSON(http.StatusOK, statusesResponse{Statuses: b.Statuses()})
}

func (h *handlers) addStatus(c echo.Context) error {
	var req nameRequest
	if err := decodeBody(c, &req); err != nil {
		return fail(c, "decode", err)
	}
	b, err := h.board(c)
	if err != nil {
		return fail(c, "bootstrap", err)
	}
	s, err := b.AddStatus(c.Request().Context(), req.Name)
	if err != nil {
		return fail(c, "add_status", err)
	}
	return c.JSON(http.StatusCreated, s)
}

func (h *handlers) renameStatus(c echo.Context) error {
	var req nameRequest
	if err := decodeBody(c, &req); err != nil {
		return fail(c, "decode", err)
	}
	b, err := h.board(c)
	if err != nil {
		return fail(c, "bootstrap", err)
	}
	s, err := b.RenameStatus(c.Request().Context(), c.Param("id"), req.Name)
	if err != nil {
		return fail(c, "rename_status", err)
	}
	return c.JSON(http.StatusOK, s)
}

// deleteStatus removes a status and every task filed under it.
func (h *handlers) deleteStatus(c echo.Context) error {
	b, err := h.board(c)
	if err != nil {
		return fail(c, "bootstrap", err)
	}
	if err := b.DeleteStatus(c.Request().Context(), c.Param("id")); err != nil {
		return fail(c, "delete_status", err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *handlers) dragStatus(c echo.Context) error {
	var ev domain.DragEvent
	if err := decodeBody(c, &ev); err != nil {
		return fail(c, "decode", err)
	}
	b, err := h.board(c)
	if err != nil {
		return fail(c, "bootstrap", err)
	}
	statuses, err := b.ReorderStatusesOnDrag(c.Request().Context(), ev)
	if err != nil {
		return fail(c, "drag_status", err)
	}
	return c.JSON(http.StatusOK, statusesResponse{Statuses: statuses})
}
