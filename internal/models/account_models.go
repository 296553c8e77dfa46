// Package models contains the models for the Task Manager API
package models

import (
	"time"

	"gorm.io/datatypes"
)

const AccountsTableName = "accounts"

// AccountModel is a registered user together with its live session tokens.
// Password, Tokens and Avatar never leave the server.
type AccountModel struct {
	ID        string                      `gorm:"primaryKey;type:varchar(36)" json:"_id"`
	Name      string                      `gorm:"not null" json:"name"`
	Email     string                      `gorm:"uniqueIndex;not null" json:"email"`
	Age       *int                        `json:"age,omitempty"`
	Password  string                      `gorm:"not null" json:"-"`
	Tokens    datatypes.JSONSlice[string] `json:"-"`
	Avatar    []byte                      `json:"-"`
	CreatedAt time.Time                   `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time                   `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (AccountModel) TableName() string {
	return AccountsTableName
}

// HasToken reports whether token is one of the account's live sessions
func (a *AccountModel) HasToken(token string) bool {
	for _, t := range a.Tokens {
		if t == token {
			return true
		}
	}
	return false
}

// RemoveToken drops every entry equal to token and reports whether any was removed
func (a *AccountModel) RemoveToken(token string) bool {
	kept := a.Tokens[:0]
	removed := false
	for _, t := range a.Tokens {
		if t == token {
			removed = true
			continue
		}
		kept = append(kept, t)
	}
	a.Tokens = kept
	return removed
}
