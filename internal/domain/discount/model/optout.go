package model

import "time"

// OptOut lists phones that must never receive outbound messages. Presence
// of a row is authoritative and unconditional.
type OptOut struct {
	Phone      string    `gorm:"primaryKey" json:"phone"` // canonical
	OptedOutAt time.Time `gorm:"not null" json:"optedOutAt"`
}

func (OptOut) TableName() string {
	return "opt_outs"
}
