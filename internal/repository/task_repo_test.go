package repository

import (
	"context"
	"testing"
	"time"

	"github.com/chnk8802/task-manager/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTasks(t *testing.T, repo *TaskRepository, ownerID string) {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, title := range []string{"c", "a", "b"} {
		task := &models.TaskModel{
			ID:          ownerID + "-" + string(rune('x'+i)),
			Title:       title,
			Description: "d",
			Completed:   i == 1,
			OwnerID:     ownerID,
			CreatedAt:   base.Add(time.Duration(i) * time.Hour),
		}
		require.NoError(t, repo.Create(context.Background(), task))
	}
}

func titles(tasks []models.TaskModel) []string {
	out := make([]string, len(tasks))
	for i, task := range tasks {
		out[i] = task.Title
	}
	return out
}

func TestTaskRepository_List(t *testing.T) {
	repo := NewTaskRepository(newTestDB(t))
	ctx := context.Background()
	seedTasks(t, repo, "owner")
	seedTasks(t, repo, "other")

	all, err := repo.List(ctx, "owner", TaskFilter{OrderColumn: "created_at"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, titles(all))

	byTitle, err := repo.List(ctx, "owner", TaskFilter{OrderColumn: "title", Desc: true})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "b", "a"}, titles(byTitle))

	done := true
	completed, err := repo.List(ctx, "owner", TaskFilter{Completed: &done})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, titles(completed))

	page, err := repo.List(ctx, "owner", TaskFilter{OrderColumn: "title", Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, titles(page))
}

func TestTaskRepository_OwnerScoping(t *testing.T) {
	repo := NewTaskRepository(newTestDB(t))
	ctx := context.Background()
	seedTasks(t, repo, "owner")

	_, err := repo.FindOne(ctx, "intruder", "owner-x")
	assert.ErrorIs(t, err, ErrTaskNotFound)
	_, err = repo.Delete(ctx, "intruder", "owner-x")
	assert.ErrorIs(t, err, ErrTaskNotFound)

	_, err = repo.Update(ctx, "intruder", "owner-x", map[string]interface{}{"completed": true})
	assert.ErrorIs(t, err, ErrTaskNotFound)

	task, err := repo.Update(ctx, "owner", "owner-x", map[string]interface{}{"completed": true})
	require.NoError(t, err)
	assert.True(t, task.Completed)

	deleted, err := repo.Delete(ctx, "owner", "owner-x")
	require.NoError(t, err)
	assert.True(t, deleted.Completed)

	_, err = repo.FindOne(ctx, "owner", "owner-x")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestTaskRepository_UpdateDoesNotResurrectDeletedTask(t *testing.T) {
	repo := NewTaskRepository(newTestDB(t))
	ctx := context.Background()
	seedTasks(t, repo, "owner")

	loaded, err := repo.FindOne(ctx, "owner", "owner-x")
	require.NoError(t, err)
	_, err = repo.Delete(ctx, "owner", loaded.ID)
	require.NoError(t, err)

	_, err = repo.Update(ctx, "owner", loaded.ID, map[string]interface{}{"completed": !loaded.Completed})
	assert.ErrorIs(t, err, ErrTaskNotFound)

	_, err = repo.FindOne(ctx, "owner", loaded.ID)
	assert.ErrorIs(t, err, ErrTaskNotFound)

	var count int64
	require.NoError(t, repo.DB.Model(&models.TaskModel{}).Where("id = ?", loaded.ID).Count(&count).Error)
	assert.Zero(t, count)
}
