package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/chnk8802/task-manager/internal/api/middleware"
	"github.com/chnk8802/task-manager/internal/service"
	"github.com/chnk8802/task-manager/pkg/utils/response"
	"github.com/labstack/echo/v4"
)

// TaskHandler is the handler for the task API
type TaskHandler struct {
	service *service.TaskService
}

// NewTaskHandler creates a new handler for the task API
func NewTaskHandler(service *service.TaskService) *TaskHandler {
	return &TaskHandler{service: service}
}

// Create adds a task for the authenticated account
func (h *TaskHandler) Create(c echo.Context) error {
	auth, ok := middleware.AuthFromContext(c)
	if !ok {
		return response.FromError(c, errNoAuthContext)
	}

	var in service.TaskInput
	if err := c.Bind(&in); err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, response.InputException, "Invalid request body")
	}

	task, err := h.service.Create(c.Request().Context(), auth.Account.ID, in)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.CreatedResponse(c, map[string]interface{}{
		"task":    task,
		"message": "Task Added Successfully",
	})
}

// List returns the authenticated account's tasks.
// Query: completed=true|false, sortBy=field[:asc|desc], limit, skip.
func (h *TaskHandler) List(c echo.Context) error {
	auth, ok := middleware.AuthFromContext(c)
	if !ok {
		return response.FromError(c, errNoAuthContext)
	}

	q, err := service.ParseTaskQuery(c.QueryParam("completed"), c.QueryParam("sortBy"), c.QueryParam("limit"), c.QueryParam("skip"))
	if err != nil {
		return response.FromError(c, err)
	}

	tasks, err := h.service.List(c.Request().Context(), auth.Account.ID, q)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessResponse(c, tasks)
}

// Get returns one task
func (h *TaskHandler) Get(c echo.Context) error {
	auth, ok := middleware.AuthFromContext(c)
	if !ok {
		return response.FromError(c, errNoAuthContext)
	}

	task, err := h.service.Get(c.Request().Context(), auth.Account.ID, c.Param("id"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessResponse(c, task)
}

// Update changes the description or completion of a task
func (h *TaskHandler) Update(c echo.Context) error {
	auth, ok := middleware.AuthFromContext(c)
	if !ok {
		return response.FromError(c, errNoAuthContext)
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(c.Request().Body).Decode(&body); err != nil {
		return response.ErrorResponse(c, http.StatusBadRequest, response.InputException, "Invalid request body")
	}
	patch, err := service.ParseTaskPatch(body)
	if err != nil {
		return response.FromError(c, err)
	}

	task, err := h.service.Update(c.Request().Context(), auth.Account.ID, c.Param("id"), patch)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessResponse(c, task)
}

// Delete removes a task
func (h *TaskHandler) Delete(c echo.Context) error {
	auth, ok := middleware.AuthFromContext(c)
	if !ok {
		return response.FromError(c, errNoAuthContext)
	}

	task, err := h.service.Delete(c.Request().Context(), auth.Account.ID, c.Param("id"))
	if err != nil {
		return response.FromError(c, err)
	}
	return response.SuccessResponse(c, task)
}
