package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/healthcoach/notification-service/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// NotificationRepository owns all access to the notifications collection.
// It is the only writer of the is_read/read_at and is_archived/archived_at
// pairs, which keeps the flag/timestamp invariant out of everyone else's way.
type NotificationRepository struct {
	collection *mongo.Collection
}

func NewNotificationRepository(db *mongo.Database) *NotificationRepository {
	return &NotificationRepository{
		collection: db.Collection("notifications"),
	}
}

// notExpiredClause matches documents without an expiry or with one still in
// the future. Applied to every listing-class query, never to stats.
func notExpiredClause(now time.Time) []bson.M {
	return []bson.M{
		{"expires_at": bson.M{"$exists": false}},
		{"expires_at": nil},
		{"expires_at": bson.M{"$gt": now}},
	}
}

// buildListFilter compiles a normalized NotificationFilter into a bson
// predicate scoped to one user and excluding expired documents.
func buildListFilter(userID primitive.ObjectID, f *models.NotificationFilter, now time.Time) bson.M {
	filter := bson.M{
		"user_id":     userID,
		"is_archived": f.IsArchived,
		"$or":         notExpiredClause(now),
	}
	if f.Type != "" {
		filter["type"] = f.Type
	}
	if f.Priority != "" {
		filter["priority"] = f.Priority
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.IsRead != nil {
		filter["is_read"] = *f.IsRead
	}
	return filter
}

// listSortSpec maps the filter's sort choice onto a Mongo sort document.
// The default createdAt sort applies the priority-first tie-break: urgent
// rows come before high/normal/low regardless of timestamp, and creation
// time only orders rows within the same priority band. An explicit
// sortBy=priority or sortBy=type sorts purely on that column.
func listSortSpec(f *models.NotificationFilter) bson.D {
	order := -1
	if f.SortOrder == "asc" {
		order = 1
	}
	switch f.SortBy {
	case "priority":
		return bson.D{{Key: "priority_rank", Value: order}}
	case "type":
		return bson.D{{Key: "type", Value: order}}
	default:
		return bson.D{
			{Key: "priority_rank", Value: 1},
			{Key: "created_at", Value: order},
		}
	}
}

// CreateNotification inserts a new notification, stamping timestamps and the
// denormalized priority rank.
func (r *NotificationRepository) CreateNotification(ctx context.Context, notif *models.Notification) (*models.Notification, error) {
	now := time.Now()
	notif.CreatedAt = now
	notif.UpdatedAt = now
	notif.PriorityRank = notif.Priority.Rank()

	result, err := r.collection.InsertOne(ctx, notif)
	if err != nil {
		logrus.WithError(err).Error("Failed to insert notification")
		return nil, fmt.Errorf("failed to create notification: %w", err)
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("failed to cast inserted notification ID")
	}
	notif.ID = insertedID
	return notif, nil
}

// FindNotifications returns one page of a user's feed plus the total count of
// matching non-expired documents.
func (r *NotificationRepository) FindNotifications(ctx context.Context, userID primitive.ObjectID, f *models.NotificationFilter) ([]models.Notification, int64, error) {
	filter := buildListFilter(userID, f, time.Now())

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count notifications: %w", err)
	}

	opts := options.Find().
		SetSort(listSortSpec(f)).
		SetSkip((f.Page - 1) * f.Limit).
		SetLimit(f.Limit)

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch notifications: %w", err)
	}
	defer cursor.Close(ctx)

	notifications := make([]models.Notification, 0, f.Limit)
	if err := cursor.All(ctx, &notifications); err != nil {
		return nil, 0, fmt.Errorf("failed to decode notifications: %w", err)
	}
	return notifications, total, nil
}

// GetNotificationByID fetches a single notification scoped to its owner.
// A foreign id and a missing id are the same ErrNotFound either way.
func (r *NotificationRepository) GetNotificationByID(ctx context.Context, userID, id primitive.ObjectID) (*models.Notification, error) {
	var notif models.Notification
	err := r.collection.FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&notif)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch notification: %w", err)
	}
	return &notif, nil
}

// readStateUpdate builds the update document for a read transition. Both
// fields of the is_read/read_at pair move together: the flag and a fresh
// timestamp on apply, the flag and an $unset on reverse. The document does
// not depend on the current state, so reapplying a transition succeeds and
// rewrites the timestamp.
func readStateUpdate(read bool, now time.Time) bson.M {
	if read {
		return bson.M{"$set": bson.M{"is_read": true, "read_at": now, "updated_at": now}}
	}
	return bson.M{
		"$set":   bson.M{"is_read": false, "updated_at": now},
		"$unset": bson.M{"read_at": ""},
	}
}

// archiveStateUpdate is readStateUpdate's counterpart on the archive axis.
func archiveStateUpdate(archived bool, now time.Time) bson.M {
	if archived {
		return bson.M{"$set": bson.M{"is_archived": true, "archived_at": now, "updated_at": now}}
	}
	return bson.M{
		"$set":   bson.M{"is_archived": false, "updated_at": now},
		"$unset": bson.M{"archived_at": ""},
	}
}

// SetReadState moves a notification between read and unread, rewriting the
// read_at timestamp together with the flag in a single update. Reapplying the
// current state succeeds and refreshes the timestamp.
func (r *NotificationRepository) SetReadState(ctx context.Context, userID, id primitive.ObjectID, read bool) (*models.Notification, error) {
	return r.findOneAndUpdate(ctx, userID, id, readStateUpdate(read, time.Now()))
}

// SetArchiveState moves a notification between active and archived, same
// contract as SetReadState on the orthogonal axis.
func (r *NotificationRepository) SetArchiveState(ctx context.Context, userID, id primitive.ObjectID, archived bool) (*models.Notification, error) {
	return r.findOneAndUpdate(ctx, userID, id, archiveStateUpdate(archived, time.Now()))
}

func (r *NotificationRepository) findOneAndUpdate(ctx context.Context, userID, id primitive.ObjectID, update bson.M) (*models.Notification, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var notif models.Notification
	err := r.collection.FindOneAndUpdate(ctx, bson.M{"_id": id, "user_id": userID}, update, opts).Decode(&notif)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrNotFound
		}
		logrus.WithError(err).WithField("notification_id", id.Hex()).Error("Failed to update notification state")
		return nil, fmt.Errorf("failed to update notification: %w", err)
	}
	return &notif, nil
}

// MarkManyRead marks the owned, currently unread subset of ids as read in one
// statement and returns how many documents actually changed.
func (r *NotificationRepository) MarkManyRead(ctx context.Context, userID primitive.ObjectID, ids []primitive.ObjectID) (int64, error) {
	now := time.Now()
	result, err := r.collection.UpdateMany(ctx,
		bson.M{"user_id": userID, "_id": bson.M{"$in": ids}, "is_read": false},
		readStateUpdate(true, now),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications as read: %w", err)
	}
	return result.ModifiedCount, nil
}

// MarkAllRead marks every unread, non-archived notification of the user as
// read, optionally narrowed by type and/or category.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, userID primitive.ObjectID, notifType, category string) (int64, error) {
	filter := bson.M{"user_id": userID, "is_read": false, "is_archived": false}
	if notifType != "" {
		filter["type"] = notifType
	}
	if category != "" {
		filter["category"] = category
	}

	result, err := r.collection.UpdateMany(ctx, filter, readStateUpdate(true, time.Now()))
	if err != nil {
		return 0, fmt.Errorf("failed to mark all notifications as read: %w", err)
	}
	return result.ModifiedCount, nil
}

// DeleteNotification removes a single owned notification.
func (r *NotificationRepository) DeleteNotification(ctx context.Context, userID, id primitive.ObjectID) error {
	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		logrus.WithError(err).WithField("notification_id", id.Hex()).Error("Failed to delete notification")
		return fmt.Errorf("failed to delete notification: %w", err)
	}
	if result.DeletedCount == 0 {
		return models.ErrNotFound
	}
	return nil
}

// DeleteManyByID deletes the owned subset of ids, silently skipping foreign
// or missing ones, and returns the number removed.
func (r *NotificationRepository) DeleteManyByID(ctx context.Context, userID primitive.ObjectID, ids []primitive.ObjectID) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"user_id": userID, "_id": bson.M{"$in": ids}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete notifications: %w", err)
	}
	return result.DeletedCount, nil
}

// DeleteAllRead removes every read notification of the user regardless of
// archive state.
func (r *NotificationRepository) DeleteAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, bson.M{"user_id": userID, "is_read": true})
	if err != nil {
		return 0, fmt.Errorf("failed to delete read notifications: %w", err)
	}
	return result.DeletedCount, nil
}

// CountUnreadSummary returns the badge counts: unread active notifications,
// with urgent and high broken out. Expired documents are excluded like in
// listing.
func (r *NotificationRepository) CountUnreadSummary(ctx context.Context, userID primitive.ObjectID) (*models.UnreadSummary, error) {
	base := bson.M{
		"user_id":     userID,
		"is_read":     false,
		"is_archived": false,
		"$or":         notExpiredClause(time.Now()),
	}

	summary := &models.UnreadSummary{}
	var err error
	if summary.Unread, err = r.collection.CountDocuments(ctx, base); err != nil {
		return nil, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	urgent := bson.M{"priority": models.PriorityUrgent}
	for k, v := range base {
		urgent[k] = v
	}
	if summary.Urgent, err = r.collection.CountDocuments(ctx, urgent); err != nil {
		return nil, fmt.Errorf("failed to count urgent notifications: %w", err)
	}

	high := bson.M{"priority": models.PriorityHigh}
	for k, v := range base {
		high[k] = v
	}
	if summary.High, err = r.collection.CountDocuments(ctx, high); err != nil {
		return nil, fmt.Errorf("failed to count high priority notifications: %w", err)
	}
	return summary, nil
}

// statsCountFilters returns the top-level count predicates feeding GetStats.
// None of them carries an expiry clause: stats keep counting expired rows
// until the sweeper physically removes them.
func statsCountFilters(userID primitive.ObjectID) map[string]bson.M {
	return map[string]bson.M{
		"total":    {"user_id": userID},
		"unread":   {"user_id": userID, "is_read": false, "is_archived": false},
		"read":     {"user_id": userID, "is_read": true, "is_archived": false},
		"archived": {"user_id": userID, "is_archived": true},
	}
}

// GetStats aggregates the user's whole feed. Unlike listing, expired rows are
// counted until the sweeper physically removes them.
func (r *NotificationRepository) GetStats(ctx context.Context, userID primitive.ObjectID) (*models.NotificationStats, error) {
	stats := &models.NotificationStats{}
	filters := statsCountFilters(userID)

	counts := []struct {
		dest   *int64
		filter bson.M
	}{
		{&stats.Total, filters["total"]},
		{&stats.Unread, filters["unread"]},
		{&stats.Read, filters["read"]},
		{&stats.Archived, filters["archived"]},
	}
	for _, c := range counts {
		n, err := r.collection.CountDocuments(ctx, c.filter)
		if err != nil {
			return nil, fmt.Errorf("failed to count notifications: %w", err)
		}
		*c.dest = n
	}

	var err error
	if stats.ByType, err = r.groupActiveBy(ctx, userID, "$type"); err != nil {
		return nil, err
	}
	if stats.ByPriority, err = r.groupActiveBy(ctx, userID, "$priority"); err != nil {
		return nil, err
	}
	return stats, nil
}

// groupActiveBy counts the user's non-archived notifications grouped by the
// given field reference.
func (r *NotificationRepository) groupActiveBy(ctx context.Context, userID primitive.ObjectID, field string) (map[string]int64, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"user_id": userID, "is_archived": false}}},
		{{Key: "$group", Value: bson.M{"_id": field, "count": bson.M{"$sum": 1}}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate notifications by %s: %w", field, err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Key   string `bson:"_id"`
		Count int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode aggregation rows: %w", err)
	}

	grouped := make(map[string]int64, len(rows))
	for _, row := range rows {
		grouped[row.Key] = row.Count
	}
	return grouped, nil
}

// expiredFilter matches documents whose expiry is strictly in the past.
func expiredFilter(now time.Time) bson.M {
	return bson.M{"expires_at": bson.M{"$lt": now}}
}

// DeleteExpiredNotifications removes notifications past their expiry across
// all users. Maintenance operation, safe to repeat.
func (r *NotificationRepository) DeleteExpiredNotifications(ctx context.Context) (int64, error) {
	result, err := r.collection.DeleteMany(ctx, expiredFilter(time.Now()))
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired notifications: %w", err)
	}
	if result.DeletedCount > 0 {
		logrus.Infof("Deleted %d expired notifications", result.DeletedCount)
	}
	return result.DeletedCount, nil
}
