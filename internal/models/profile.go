package models

import (
	"time"

	"github.com/lib/pq"
)

// Profile is read only here; résumé upload and editing live in another service.
type Profile struct {
	UserID   string `gorm:"column:user_id;type:uuid;primaryKey" json:"user_id"`
	FullName string `gorm:"column:full_name;type:text" json:"full_name"`
	CVText   string `gorm:"column:cv_text;type:text" json:"cv_text"`

	// TargetRole is the job the candidate is practising for, e.g. "backend engineer".
	TargetRole string `gorm:"column:target_role;type:text" json:"target_role"`

	Skills pq.StringArray `gorm:"column:skills;type:text[]" json:"skills"`

	UpdatedAt time.Time `gorm:"column:updated_at;type:timestamptz" json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }
