package model

import (
	"encoding/json"

	baseModel "github.com/oraharon2020/tavati-sub001/pkg/model"
)

// ReminderLog is the append-only audit of one scheduler batch. Rows are
// never mutated after insert.
type ReminderLog struct {
	baseModel.BaseModel
	Tier    int             `gorm:"not null" json:"tier"`
	Sent    int             `gorm:"default:0" json:"sent"`
	Failed  int             `gorm:"default:0" json:"failed"`
	Skipped int             `gorm:"default:0" json:"skipped"`
	Details json.RawMessage `gorm:"type:jsonb" json:"details,omitempty"`
}
