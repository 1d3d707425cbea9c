package repository

import (
	"testing"
	"time"

	"github.com/healthcoach/notification-service/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func normalized(f models.NotificationFilter) *models.NotificationFilter {
	f.Normalize()
	return &f
}

func TestBuildListFilterScopesToUserAndActive(t *testing.T) {
	userID := primitive.NewObjectID()
	now := time.Now()

	filter := buildListFilter(userID, normalized(models.NotificationFilter{}), now)

	assert.Equal(t, userID, filter["user_id"])
	assert.Equal(t, false, filter["is_archived"])
	_, hasRead := filter["is_read"]
	assert.False(t, hasRead, "read state must stay unconstrained by default")
}

func TestBuildListFilterAlwaysExcludesExpired(t *testing.T) {
	userID := primitive.NewObjectID()
	now := time.Now()

	// The expiry exclusion must survive any filter combination.
	isRead := false
	filters := []*models.NotificationFilter{
		normalized(models.NotificationFilter{}),
		normalized(models.NotificationFilter{Type: "reminder", Priority: "urgent", Category: "sleep"}),
		normalized(models.NotificationFilter{IsRead: &isRead, IsArchived: true}),
	}

	for _, f := range filters {
		filter := buildListFilter(userID, f, now)
		clauses, ok := filter["$or"].([]bson.M)
		require.True(t, ok, "expected an expiry $or clause")
		require.Len(t, clauses, 3)
		assert.Equal(t, bson.M{"expires_at": bson.M{"$exists": false}}, clauses[0])
		assert.Equal(t, bson.M{"expires_at": nil}, clauses[1])
		assert.Equal(t, bson.M{"expires_at": bson.M{"$gt": now}}, clauses[2])
	}
}

func TestBuildListFilterAppliesConstraints(t *testing.T) {
	userID := primitive.NewObjectID()
	isRead := true

	filter := buildListFilter(userID, normalized(models.NotificationFilter{
		Type:       "achievement",
		Priority:   "high",
		Category:   "nutrition",
		IsRead:     &isRead,
		IsArchived: true,
	}), time.Now())

	assert.Equal(t, "achievement", filter["type"])
	assert.Equal(t, "high", filter["priority"])
	assert.Equal(t, "nutrition", filter["category"])
	assert.Equal(t, true, filter["is_read"])
	assert.Equal(t, true, filter["is_archived"])
}

func TestListSortSpecDefaultAppliesPriorityTieBreak(t *testing.T) {
	// Default createdAt descending: urgent rows first (rank ascending),
	// newest first within each priority band.
	sort := listSortSpec(normalized(models.NotificationFilter{}))

	require.Len(t, sort, 2)
	assert.Equal(t, "priority_rank", sort[0].Key)
	assert.Equal(t, 1, sort[0].Value)
	assert.Equal(t, "created_at", sort[1].Key)
	assert.Equal(t, -1, sort[1].Value)
}

func TestListSortSpecDefaultAscending(t *testing.T) {
	sort := listSortSpec(normalized(models.NotificationFilter{SortOrder: "asc"}))

	require.Len(t, sort, 2)
	assert.Equal(t, "priority_rank", sort[0].Key)
	assert.Equal(t, 1, sort[0].Value, "tie-break rank order is fixed regardless of sortOrder")
	assert.Equal(t, "created_at", sort[1].Key)
	assert.Equal(t, 1, sort[1].Value)
}

func TestListSortSpecExplicitPriorityBypassesTieBreak(t *testing.T) {
	sort := listSortSpec(normalized(models.NotificationFilter{SortBy: "priority", SortOrder: "asc"}))

	require.Len(t, sort, 1)
	assert.Equal(t, "priority_rank", sort[0].Key)
	assert.Equal(t, 1, sort[0].Value)
}

func TestListSortSpecExplicitTypeBypassesTieBreak(t *testing.T) {
	sort := listSortSpec(normalized(models.NotificationFilter{SortBy: "type"}))

	require.Len(t, sort, 1)
	assert.Equal(t, "type", sort[0].Key)
	assert.Equal(t, -1, sort[0].Value)
}

func TestReadStateUpdateKeepsPairTogether(t *testing.T) {
	now := time.Now()

	apply := readStateUpdate(true, now)
	assert.Equal(t, bson.M{"$set": bson.M{"is_read": true, "read_at": now, "updated_at": now}}, apply)
	_, hasUnset := apply["$unset"]
	assert.False(t, hasUnset, "marking read must not unset anything")

	reverse := readStateUpdate(false, now)
	assert.Equal(t, bson.M{"is_read": false, "updated_at": now}, reverse["$set"])
	assert.Equal(t, bson.M{"read_at": ""}, reverse["$unset"], "clearing the flag must clear the timestamp with it")
}

func TestArchiveStateUpdateKeepsPairTogether(t *testing.T) {
	now := time.Now()

	apply := archiveStateUpdate(true, now)
	assert.Equal(t, bson.M{"$set": bson.M{"is_archived": true, "archived_at": now, "updated_at": now}}, apply)
	_, hasUnset := apply["$unset"]
	assert.False(t, hasUnset, "archiving must not unset anything")

	reverse := archiveStateUpdate(false, now)
	assert.Equal(t, bson.M{"is_archived": false, "updated_at": now}, reverse["$set"])
	assert.Equal(t, bson.M{"archived_at": ""}, reverse["$unset"], "unarchiving must clear the timestamp with the flag")
}

func TestReadStateUpdateRewritesTimestampOnReapply(t *testing.T) {
	// The update carries no precondition on the current state, so marking an
	// already-read notification succeeds and moves read_at forward.
	first := time.Now()
	second := first.Add(time.Minute)

	assert.Equal(t, first, readStateUpdate(true, first)["$set"].(bson.M)["read_at"])
	assert.Equal(t, second, readStateUpdate(true, second)["$set"].(bson.M)["read_at"])
}

func TestStatsCountFiltersIncludeExpiredRows(t *testing.T) {
	userID := primitive.NewObjectID()
	filters := statsCountFilters(userID)

	require.Len(t, filters, 4)
	assert.Equal(t, bson.M{"user_id": userID}, filters["total"])
	assert.Equal(t, bson.M{"user_id": userID, "is_read": false, "is_archived": false}, filters["unread"])
	assert.Equal(t, bson.M{"user_id": userID, "is_read": true, "is_archived": false}, filters["read"])
	assert.Equal(t, bson.M{"user_id": userID, "is_archived": true}, filters["archived"],
		"archived counts read and unread rows alike")

	// Counts stay whole-feed: no expiry clause anywhere, unlike listing.
	for name, f := range filters {
		_, hasOr := f["$or"]
		assert.False(t, hasOr, "stats predicate %q must not exclude expired rows", name)
		_, hasExpiry := f["expires_at"]
		assert.False(t, hasExpiry, "stats predicate %q must not touch expires_at", name)
	}
}

func TestExpiredFilterMatchesStrictPastOnly(t *testing.T) {
	now := time.Now()

	// Strictly past: a row expiring exactly at the sweep instant survives this
	// run, matching the listing clause that already hides it.
	assert.Equal(t, bson.M{"expires_at": bson.M{"$lt": now}}, expiredFilter(now))
}
