package audit

import (
	"context"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/artisanmarket/promo-engine/internal/apperr"
	"github.com/artisanmarket/promo-engine/internal/models"
	"github.com/artisanmarket/promo-engine/internal/validation"
)

// Page size bounds for List.
const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// Filter narrows a List query. Zero values are ignored.
type Filter struct {
	AdminUser  string     `form:"adminUser" json:"adminUser" validate:"max=64"`
	Action     string     `form:"action" json:"action" validate:"max=64"`
	TargetType string     `form:"targetType" json:"targetType" validate:"max=64"`
	TargetID   string     `form:"targetId" json:"targetId" validate:"max=64"`
	From       *time.Time `form:"from" json:"from" time_format:"2006-01-02T15:04:05Z07:00"`
	To         *time.Time `form:"to" json:"to" time_format:"2006-01-02T15:04:05Z07:00"`
	Page       int        `form:"page" json:"page" validate:"gte=0"`
	Limit      int        `form:"limit" json:"limit" validate:"gte=0,lte=200"`
}

// Page is one page of audit entries, newest first.
type Page struct {
	Entries []models.AdminAuditEntry `json:"entries"`
	Total   int                      `json:"total"`
	Page    int                      `json:"page"`
	Limit   int                      `json:"limit"`
}

// Store persists audit entries in the 'admin_audit_log' table.
type Store struct {
	db *sqlx.DB
}

// NewStore creates a Store.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// Append inserts one entry.
func (s *Store) Append(ctx context.Context, e models.AdminAuditEntry) error {
	query := `
		INSERT INTO admin_audit_log
			(id, admin_user, action, target_type, target_id, changes, description,
			 ip_address, user_agent, request_id, created_at)
		VALUES
			(:id, :admin_user, :action, :target_type, :target_id, :changes, :description,
			 :ip_address, :user_agent, :request_id, :created_at)`
	_, err := s.db.NamedExecContext(ctx, query, e)
	return apperr.Persistence("append audit entry", err)
}

// List returns the page of entries matching f.
func (s *Store) List(ctx context.Context, f Filter) (Page, error) {
	if err := validation.Struct(f); err != nil {
		return Page{}, err
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return Page{}, apperr.NewValidation("to", "must not be before from")
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultLimit
	}

	var (
		where []string
		args  []interface{}
	)
	add := func(cond string, arg interface{}) {
		where = append(where, cond)
		args = append(args, arg)
	}
	if f.AdminUser != "" {
		add("admin_user = ?", f.AdminUser)
	}
	if f.Action != "" {
		add("action = ?", f.Action)
	}
	if f.TargetType != "" {
		add("target_type = ?", f.TargetType)
	}
	if f.TargetID != "" {
		add("target_id = ?", f.TargetID)
	}
	if f.From != nil {
		add("created_at >= ?", f.From.UTC())
	}
	if f.To != nil {
		add("created_at <= ?", f.To.UTC())
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	page := Page{Page: f.Page, Limit: f.Limit, Entries: []models.AdminAuditEntry{}}
	if err := s.db.GetContext(ctx, &page.Total, "SELECT COUNT(*) FROM admin_audit_log"+clause, args...); err != nil {
		return Page{}, apperr.Persistence("count audit entries", err)
	}

	query := `
		SELECT id, admin_user, action, target_type, target_id, changes, description,
		       ip_address, user_agent, request_id, created_at
		FROM admin_audit_log` + clause + `
		ORDER BY created_at DESC, id DESC
		LIMIT ? OFFSET ?`
	args = append(args, f.Limit, (f.Page-1)*f.Limit)
	if err := s.db.SelectContext(ctx, &page.Entries, query, args...); err != nil {
		return Page{}, apperr.Persistence("list audit entries", err)
	}
	return page, nil
}
