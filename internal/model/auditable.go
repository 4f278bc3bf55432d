package model

import (
	"context"
	"time"

	"github.com/crudkit/sampleapi/internal/currentuser"
	"gorm.io/gorm"
)

// Auditable is embedded by every model that records who created and who last
// modified it. Timestamps are maintained by gorm.
type Auditable struct {
	CreatedByID *uint     `gorm:"index" json:"created_by"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedByID *uint     `gorm:"index" json:"updated_by"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Stamp attributes a pending write to the principal of ctx.
// created_by is written once and never overwritten; updated_by follows the
// latest authenticated writer. Without an authenticated principal nothing is
// touched.
func Stamp(ctx context.Context, a *Auditable) {
	if a == nil {
		return
	}
	id := currentuser.ID(ctx)
	if id == nil {
		return
	}
	if a.CreatedByID == nil {
		created := *id
		a.CreatedByID = &created
	}
	a.UpdatedByID = id
}

// BeforeSave runs on every gorm Create and Save of an embedding model.
func (a *Auditable) BeforeSave(tx *gorm.DB) error {
	if tx == nil || tx.Statement == nil {
		return nil
	}
	Stamp(tx.Statement.Context, a)
	return nil
}
