package models

import (
	"database/sql/driver"
	"encoding/json"
)

// AuditLog tracks create/update/delete actions on patients and analyses
type AuditLog struct {
	BaseModel
	EntityType string     `gorm:"size:50;index" json:"entityType"`
	EntityID   string     `gorm:"size:36;index" json:"entityId"`
	Action     string     `gorm:"size:50" json:"action"`
	Changes    ChangeData `gorm:"type:json" json:"changes,omitempty"`
	IPAddress  string     `gorm:"size:50" json:"ipAddress,omitempty"`
	UserAgent  string     `gorm:"size:500" json:"userAgent,omitempty"`
}

// ChangeData is a free-form JSON document describing what changed
type ChangeData map[string]interface{}

func (c ChangeData) Value() (driver.Value, error) {
	if c == nil {
		return json.Marshal(map[string]interface{}{})
	}
	return json.Marshal(c)
}

func (c *ChangeData) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	}
	return nil
}
