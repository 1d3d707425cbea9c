package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPriorityRankOrdering(t *testing.T) {
	// Urgent must outrank everything; unknown values never jump the queue.
	assert.Less(t, PriorityUrgent.Rank(), PriorityHigh.Rank())
	assert.Less(t, PriorityHigh.Rank(), PriorityNormal.Rank())
	assert.Less(t, PriorityNormal.Rank(), PriorityLow.Rank())
	assert.Less(t, PriorityLow.Rank(), Priority("unknown").Rank())
}

func TestPriorityIsValid(t *testing.T) {
	for _, p := range []Priority{PriorityUrgent, PriorityHigh, PriorityNormal, PriorityLow} {
		assert.True(t, p.IsValid(), "expected %q to be valid", p)
	}
	assert.False(t, Priority("critical").IsValid())
	assert.False(t, Priority("").IsValid())
}

func TestFilterNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   NotificationFilter
		want NotificationFilter
	}{
		{
			name: "zero values get defaults",
			in:   NotificationFilter{},
			want: NotificationFilter{Page: 1, Limit: DefaultPageLimit, SortBy: "createdAt", SortOrder: "desc"},
		},
		{
			name: "negative page clamps to first",
			in:   NotificationFilter{Page: -3, Limit: 10},
			want: NotificationFilter{Page: 1, Limit: 10, SortBy: "createdAt", SortOrder: "desc"},
		},
		{
			name: "oversized limit clamps to max",
			in:   NotificationFilter{Page: 2, Limit: 500},
			want: NotificationFilter{Page: 2, Limit: MaxPageLimit, SortBy: "createdAt", SortOrder: "desc"},
		},
		{
			name: "unrecognized sort falls back to createdAt",
			in:   NotificationFilter{Page: 1, Limit: 20, SortBy: "updatedAt", SortOrder: "sideways"},
			want: NotificationFilter{Page: 1, Limit: 20, SortBy: "createdAt", SortOrder: "desc"},
		},
		{
			name: "explicit priority sort survives",
			in:   NotificationFilter{Page: 1, Limit: 20, SortBy: "priority", SortOrder: "asc"},
			want: NotificationFilter{Page: 1, Limit: 20, SortBy: "priority", SortOrder: "asc"},
		},
		{
			name: "type sort survives",
			in:   NotificationFilter{Page: 1, Limit: 20, SortBy: "type"},
			want: NotificationFilter{Page: 1, Limit: 20, SortBy: "type", SortOrder: "desc"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.Normalize()
			assert.Equal(t, tt.want, tt.in)
		})
	}
}

func TestFilterNormalizeKeepsConstraints(t *testing.T) {
	isRead := true
	f := NotificationFilter{
		Type:       "reminder",
		Priority:   "urgent",
		Category:   "fitness",
		IsRead:     &isRead,
		IsArchived: true,
	}
	f.Normalize()

	assert.Equal(t, "reminder", f.Type)
	assert.Equal(t, "urgent", f.Priority)
	assert.Equal(t, "fitness", f.Category)
	assert.True(t, *f.IsRead)
	assert.True(t, f.IsArchived)
}
