package model

import "gorm.io/datatypes"

type AlertLevel string

const (
	AlertInfo  AlertLevel = "info"
	AlertWarn  AlertLevel = "warn"
	AlertError AlertLevel = "error"
)

// AlertModel maps to the 'alerts' audit table.
type AlertModel struct {
	ID        int64          `gorm:"column:id;primaryKey;autoIncrement"`
	Level     AlertLevel     `gorm:"column:level"`
	Message   string         `gorm:"column:message"`
	Details   datatypes.JSON `gorm:"column:details;type:TEXT"`
	Timestamp int64          `gorm:"column:ts;index"`
}

func (AlertModel) TableName() string { return "alerts" }
