package model

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	Id                  uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionId           string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	Name                *string   `gorm:"type:varchar(255)"`
	PreferredModel      string    `gorm:"type:varchar(100);not null;default:'mistral-small-latest'"`
	Persona             *string   `gorm:"type:text"`
	UsePersona          bool      `gorm:"default:false"`
	EnableSummarization bool      `gorm:"default:true"`
	MessageHistoryLimit int       `gorm:"not null;default:20"`
	CreatedAt           time.Time `gorm:"autoCreateTime"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime"`
}

func (User) TableName() string {
	return "users"
}
