package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// AuditChanges holds the before/after snapshot of an admin action.
type AuditChanges struct {
	Before interface{} `json:"before,omitempty"`
	After  interface{} `json:"after,omitempty"`
}

// Value implements driver.Valuer.
func (c AuditChanges) Value() (driver.Value, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (c *AuditChanges) Scan(src interface{}) error {
	return scanJSON(src, c)
}

// AdminAuditEntry is the model for the append-only 'admin_audit_log' table.
type AdminAuditEntry struct {
	ID          string       `json:"id" db:"id"`
	AdminUser   string       `json:"adminUser" db:"admin_user"`
	Action      string       `json:"action" db:"action"`
	TargetType  string       `json:"targetType" db:"target_type"`
	TargetID    string       `json:"targetId" db:"target_id"`
	Changes     AuditChanges `json:"changes" db:"changes"`
	Description string       `json:"description" db:"description"`
	Timestamp   time.Time    `json:"timestamp" db:"created_at"`

	// Request metadata
	IPAddress string `json:"ipAddress,omitempty" db:"ip_address"`
	UserAgent string `json:"userAgent,omitempty" db:"user_agent"`
	RequestID string `json:"requestId,omitempty" db:"request_id"`
}
