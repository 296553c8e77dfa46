package models

import "time"

const TasksTableName = "tasks"

// TaskModel is a to-do item owned by exactly one account
type TaskModel struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)" json:"_id"`
	Title       string    `gorm:"not null" json:"title"`
	Description string    `gorm:"not null" json:"description"`
	Completed   bool      `gorm:"not null;default:false;index" json:"completed"`
	OwnerID     string    `gorm:"type:varchar(36);not null;index" json:"owner"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (TaskModel) TableName() string {
	return TasksTableName
}
