package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Priority levels, strictest first. The rank is load-bearing: the default
// listing order sorts by it before falling back to creation time.
type Priority string

const (
	PriorityUrgent Priority = "urgent"
	PriorityHigh   Priority = "high"
	PriorityNormal Priority = "normal"
	PriorityLow    Priority = "low"
)

// Rank returns the ordering weight of a priority (urgent=1 .. low=4).
// Unknown values rank below low so they never jump the queue.
func (p Priority) Rank() int {
	switch p {
	case PriorityUrgent:
		return 1
	case PriorityHigh:
		return 2
	case PriorityNormal:
		return 3
	case PriorityLow:
		return 4
	}
	return 5
}

// IsValid reports whether p is one of the four known priorities.
func (p Priority) IsValid() bool {
	return p.Rank() < 5
}

// Notification is a single inbox entry delivered to one user.
// Read and archive are independent axes: each pairs a flag with a timestamp,
// and the repository always writes both fields of a pair together so that
// flag=false always means timestamp=nil.
type Notification struct {
	ID                primitive.ObjectID     `bson:"_id,omitempty" json:"id"`
	UserID            primitive.ObjectID     `bson:"user_id" json:"user_id"`
	Type              string                 `bson:"type" json:"type"` // e.g. "achievement", "goal_progress", "reminder"
	Title             string                 `bson:"title" json:"title"`
	Message           string                 `bson:"message" json:"message"`
	Icon              string                 `bson:"icon,omitempty" json:"icon,omitempty"`
	ImageURL          string                 `bson:"image_url,omitempty" json:"image_url,omitempty"`
	ActionURL         string                 `bson:"action_url,omitempty" json:"action_url,omitempty"`
	ActionLabel       string                 `bson:"action_label,omitempty" json:"action_label,omitempty"`
	Category          string                 `bson:"category,omitempty" json:"category,omitempty"`
	Priority          Priority               `bson:"priority" json:"priority"`
	PriorityRank      int                    `bson:"priority_rank" json:"-"` // derived from Priority at write time, sort key only
	IsRead            bool                   `bson:"is_read" json:"is_read"`
	ReadAt            *time.Time             `bson:"read_at,omitempty" json:"read_at,omitempty"`
	IsArchived        bool                   `bson:"is_archived" json:"is_archived"`
	ArchivedAt        *time.Time             `bson:"archived_at,omitempty" json:"archived_at,omitempty"`
	RelatedEntityType string                 `bson:"related_entity_type,omitempty" json:"related_entity_type,omitempty"` // "goal", "plan", "achievement"...
	RelatedEntityID   *primitive.ObjectID    `bson:"related_entity_id,omitempty" json:"related_entity_id,omitempty"`
	Metadata          map[string]interface{} `bson:"metadata,omitempty" json:"metadata,omitempty"`
	ExpiresAt         *time.Time             `bson:"expires_at,omitempty" json:"expires_at,omitempty"`
	CreatedAt         time.Time              `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time              `bson:"updated_at" json:"updated_at"`
}

const (
	// DefaultPageLimit is used when the caller does not ask for a page size.
	DefaultPageLimit = 20
	// MaxPageLimit caps a single listing page.
	MaxPageLimit = 100
	// MaxBulkIDs is the hard ceiling on ids accepted by one bulk mutation.
	MaxBulkIDs = 100
)

// NotificationFilter describes a listing request. Zero values mean
// "no constraint" except IsArchived, which defaults to active-only.
type NotificationFilter struct {
	Page       int64
	Limit      int64
	Type       string
	Priority   string
	IsRead     *bool
	IsArchived bool
	Category   string
	SortBy     string // "createdAt" (default), "priority" or "type"
	SortOrder  string // "asc" or "desc" (default)
}

// Normalize clamps pagination bounds and falls back to defaults for
// unrecognized sort fields. Listing never fails on bad filter input.
func (f *NotificationFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageLimit
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
	switch f.SortBy {
	case "priority", "type", "createdAt":
	default:
		f.SortBy = "createdAt"
	}
	if f.SortOrder != "asc" {
		f.SortOrder = "desc"
	}
}

// NotificationPage is one page of a user's feed plus the total match count
// so the client can do pagination math.
type NotificationPage struct {
	Notifications []Notification `json:"notifications"`
	Total         int64          `json:"total"`
	Page          int64          `json:"page"`
	Limit         int64          `json:"limit"`
}

// UnreadSummary backs the badge counters in the app shell.
type UnreadSummary struct {
	Unread int64 `json:"unread"`
	Urgent int64 `json:"urgent"`
	High   int64 `json:"high"`
}

// NotificationStats aggregates a user's whole feed. Unread and Read cover
// active notifications only; Archived counts both read and unread rows.
// Unlike listing, stats include expired rows until the sweeper removes them.
type NotificationStats struct {
	Total      int64            `json:"total"`
	Unread     int64            `json:"unread"`
	Read       int64            `json:"read"`
	Archived   int64            `json:"archived"`
	ByType     map[string]int64 `json:"by_type"`
	ByPriority map[string]int64 `json:"by_priority"`
}

// CreateNotificationRequest is the payload accepted from internal callers
// creating a notification on a user's behalf.
type CreateNotificationRequest struct {
	UserID            string                 `json:"user_id" validate:"required"`
	Type              string                 `json:"type" validate:"required"`
	Title             string                 `json:"title" validate:"required"`
	Message           string                 `json:"message" validate:"required"`
	Icon              string                 `json:"icon,omitempty"`
	ImageURL          string                 `json:"image_url,omitempty"`
	ActionURL         string                 `json:"action_url,omitempty"`
	ActionLabel       string                 `json:"action_label,omitempty"`
	Category          string                 `json:"category,omitempty"`
	Priority          Priority               `json:"priority,omitempty" validate:"omitempty,oneof=urgent high normal low"`
	RelatedEntityType string                 `json:"related_entity_type,omitempty"`
	RelatedEntityID   string                 `json:"related_entity_id,omitempty"`
	Metadata          map[string]interface{} `json:"metadata,omitempty"`
	ExpiresAt         *time.Time             `json:"expires_at,omitempty"`
}

// BulkIDsRequest carries the id list for bulk read/delete operations.
type BulkIDsRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,max=100"`
}

// MarkAllReadRequest optionally narrows mark-all-read by type and category.
type MarkAllReadRequest struct {
	Type     string `json:"type,omitempty"`
	Category string `json:"category,omitempty"`
}
