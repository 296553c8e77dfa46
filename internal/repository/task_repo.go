package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/chnk8802/task-manager/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrTaskNotFound is returned when the task does not exist or belongs to another owner
var ErrTaskNotFound = errors.New("task not found")

// TaskFilter narrows and orders a task listing.
// OrderColumn must be a column name checked by the caller.
type TaskFilter struct {
	Completed   *bool
	OrderColumn string
	Desc        bool
	Limit       int
	Offset      int
}

// TaskRepository persists tasks
type TaskRepository struct {
	DB *gorm.DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{DB: db}
}

// Create inserts a task
func (r *TaskRepository) Create(ctx context.Context, task *models.TaskModel) error {
	if err := r.DB.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("failed to create task: %v", err)
	}
	return nil
}

// List returns the owner's tasks matching filter
func (r *TaskRepository) List(ctx context.Context, ownerID string, filter TaskFilter) ([]models.TaskModel, error) {
	q := r.DB.WithContext(ctx).Where("owner_id = ?", ownerID)
	if filter.Completed != nil {
		q = q.Where("completed = ?", *filter.Completed)
	}
	if filter.OrderColumn != "" {
		q = q.Order(clause.OrderByColumn{Column: clause.Column{Name: filter.OrderColumn}, Desc: filter.Desc})
	}
	// stable order for pagination
	q = q.Order("id")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	tasks := []models.TaskModel{}
	if err := q.Find(&tasks).Error; err != nil {
		return nil, fmt.Errorf("failed to list tasks: %v", err)
	}
	return tasks, nil
}

// FindOne returns the task with id if it belongs to ownerID
func (r *TaskRepository) FindOne(ctx context.Context, ownerID, id string) (*models.TaskModel, error) {
	var task models.TaskModel
	err := r.DB.WithContext(ctx).Where("id = ? AND owner_id = ?", id, ownerID).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %v", err)
	}
	return &task, nil
}

// Update sets fields on the owner's task and returns the stored result.
// A task that is gone or owned by someone else is never written.
func (r *TaskRepository) Update(ctx context.Context, ownerID, id string, fields map[string]interface{}) (*models.TaskModel, error) {
	var task models.TaskModel
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.TaskModel{}).Where("id = ? AND owner_id = ?", id, ownerID).Updates(fields)
		if result.Error != nil {
			return fmt.Errorf("failed to update task: %v", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrTaskNotFound
		}
		if err := tx.Where("id = ? AND owner_id = ?", id, ownerID).First(&task).Error; err != nil {
			return fmt.Errorf("failed to reload task: %v", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// Delete removes the owner's task and returns it
func (r *TaskRepository) Delete(ctx context.Context, ownerID, id string) (*models.TaskModel, error) {
	task, err := r.FindOne(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	result := r.DB.WithContext(ctx).Where("owner_id = ?", ownerID).Delete(task)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to delete task: %v", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrTaskNotFound
	}
	return task, nil
}
