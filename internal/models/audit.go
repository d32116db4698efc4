package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	PriorityInfo        = 0
	PrioritySuspicious  = 1
	PrioritySystemEvent = 2
	// PriorityPending marks a system event still waiting to be delivered to the station.
	PriorityPending = 99
)

type AuditLog struct {
	ID        uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	Actor     string         `gorm:"not null;index" json:"user"`
	Action    string         `gorm:"not null" json:"action"`
	Reason    string         `gorm:"not null;default:'--'" json:"reason"`
	Priority  int            `gorm:"not null;index" json:"-"`
	Details   datatypes.JSON `gorm:"type:jsonb" json:"details,omitempty"`
	CreatedAt time.Time      `gorm:"not null;autoCreateTime" json:"time"`
}

// PriorityLabel renders a priority the way operators read it in the log view.
func PriorityLabel(p int) string {
	switch p {
	case PriorityInfo:
		return "Info"
	case PrioritySuspicious:
		return "Suspicious Action"
	default:
		return "System Event"
	}
}

// ValidPriority reports whether p belongs to the audit taxonomy.
func ValidPriority(p int) bool {
	switch p {
	case PriorityInfo, PrioritySuspicious, PrioritySystemEvent, PriorityPending:
		return true
	}
	return false
}
