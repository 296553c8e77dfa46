package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/chnk8802/task-manager/internal/models"
	"github.com/chnk8802/task-manager/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TaskInput is the body of a create task request
type TaskInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Completed   bool   `json:"completed"`
}

// TaskPatch holds the task fields an owner may change
type TaskPatch struct {
	Description *string
	Completed   *bool
}

// TaskQuery narrows a task listing
type TaskQuery struct {
	Completed *bool
	SortBy    string
	Desc      bool
	Limit     int
	Skip      int
}

var taskSortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"title":     "title",
	"completed": "completed",
}

// TaskService manages tasks on behalf of their owner
type TaskService struct {
	repo *repository.TaskRepository
}

// NewTaskService creates a new TaskService
func NewTaskService(db *gorm.DB) *TaskService {
	return &TaskService{repo: repository.NewTaskRepository(db)}
}

// ParseTaskQuery reads the completed, sortBy, limit and skip query parameters
func ParseTaskQuery(completed, sortBy, limit, skip string) (TaskQuery, error) {
	var q TaskQuery

	if completed != "" {
		v, err := strconv.ParseBool(completed)
		if err != nil {
			return q, validationError(ErrInvalidQuery, "completed must be true or false")
		}
		q.Completed = &v
	}

	if sortBy != "" {
		field, order, _ := strings.Cut(sortBy, ":")
		if _, ok := taskSortColumns[field]; !ok {
			return q, validationError(ErrInvalidQuery, fmt.Sprintf("Cannot sort by %q", field))
		}
		if order != "" && order != "asc" && order != "desc" {
			return q, validationError(ErrInvalidQuery, "Sort order must be asc or desc")
		}
		q.SortBy = field
		q.Desc = order == "desc"
	}

	var err error
	if q.Limit, err = parseNonNegative("limit", limit); err != nil {
		return q, err
	}
	if q.Skip, err = parseNonNegative("skip", skip); err != nil {
		return q, err
	}
	return q, nil
}

func parseNonNegative(name, value string) (int, error) {
	if value == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil || n < 0 {
		return 0, validationError(ErrInvalidQuery, fmt.Sprintf("%s must be a non-negative integer", name))
	}
	return n, nil
}

// ParseTaskPatch decodes a task update body. Only description and completed may change.
func ParseTaskPatch(body map[string]json.RawMessage) (TaskPatch, error) {
	var patch TaskPatch
	if len(body) == 0 {
		return patch, validationError(ErrInvalidUpdateField, "Invalid updates!")
	}
	for key, raw := range body {
		var err error
		switch key {
		case "description":
			patch.Description = new(string)
			err = decodeStrict(raw, patch.Description)
		case "completed":
			patch.Completed = new(bool)
			err = decodeStrict(raw, patch.Completed)
		default:
			return TaskPatch{}, validationError(ErrInvalidUpdateField, "Invalid updates!")
		}
		if err != nil {
			return TaskPatch{}, validationError(ErrInvalidProfile, fmt.Sprintf("Invalid value for %s", key))
		}
	}
	return patch, nil
}

// Create stores a new task owned by ownerID
func (s *TaskService) Create(ctx context.Context, ownerID string, in TaskInput) (*models.TaskModel, error) {
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)
	if title == "" || description == "" {
		return nil, validationError(ErrInvalidProfile, "Title and description are required")
	}

	task := &models.TaskModel{
		ID:          uuid.NewString(),
		Title:       title,
		Description: description,
		Completed:   in.Completed,
		OwnerID:     ownerID,
	}
	if err := s.repo.Create(ctx, task); err != nil {
		return nil, internalError(err)
	}
	return task, nil
}

// List returns the owner's tasks
func (s *TaskService) List(ctx context.Context, ownerID string, q TaskQuery) ([]models.TaskModel, error) {
	tasks, err := s.repo.List(ctx, ownerID, repository.TaskFilter{
		Completed:   q.Completed,
		OrderColumn: taskSortColumns[q.SortBy],
		Desc:        q.Desc,
		Limit:       q.Limit,
		Offset:      q.Skip,
	})
	if err != nil {
		return nil, internalError(err)
	}
	return tasks, nil
}

// Get returns one of the owner's tasks. Tasks of other owners are reported as not found.
func (s *TaskService) Get(ctx context.Context, ownerID, id string) (*models.TaskModel, error) {
	task, err := s.repo.FindOne(ctx, ownerID, id)
	if errors.Is(err, repository.ErrTaskNotFound) {
		return nil, notFound("No task found")
	}
	if err != nil {
		return nil, internalError(err)
	}
	return task, nil
}

// Update applies patch to one of the owner's tasks
func (s *TaskService) Update(ctx context.Context, ownerID, id string, patch TaskPatch) (*models.TaskModel, error) {
	if patch.Description != nil && strings.TrimSpace(*patch.Description) == "" {
		return nil, validationError(ErrInvalidProfile, "Description is required")
	}

	fields := map[string]interface{}{}
	if patch.Description != nil {
		fields["description"] = strings.TrimSpace(*patch.Description)
	}
	if patch.Completed != nil {
		fields["completed"] = *patch.Completed
	}
	if len(fields) == 0 {
		return s.Get(ctx, ownerID, id)
	}

	task, err := s.repo.Update(ctx, ownerID, id, fields)
	if errors.Is(err, repository.ErrTaskNotFound) {
		return nil, notFound("No task found")
	}
	if err != nil {
		return nil, internalError(err)
	}
	return task, nil
}

// Delete removes one of the owner's tasks and returns it
func (s *TaskService) Delete(ctx context.Context, ownerID, id string) (*models.TaskModel, error) {
	task, err := s.repo.Delete(ctx, ownerID, id)
	if errors.Is(err, repository.ErrTaskNotFound) {
		return nil, notFound("No task found")
	}
	if err != nil {
		return nil, internalError(err)
	}
	return task, nil
}
