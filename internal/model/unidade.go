package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Unidade is a physical business location. Units are seeded administratively;
// Ativa=false hides a unit from new closings but keeps its history readable.
type Unidade struct {
	ID        string `gorm:"type:varchar(36);primaryKey"`
	Nome      string `gorm:"type:varchar(150);uniqueIndex;not null"`
	Endereco  *string
	Ativa     bool `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (u *Unidade) BeforeCreate(_ *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}
