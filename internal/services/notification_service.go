package services

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/healthcoach/notification-service/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// notificationStorage is the slice of the repository the service needs.
type notificationStorage interface {
	CreateNotification(ctx context.Context, notif *models.Notification) (*models.Notification, error)
	FindNotifications(ctx context.Context, userID primitive.ObjectID, f *models.NotificationFilter) ([]models.Notification, int64, error)
	GetNotificationByID(ctx context.Context, userID, id primitive.ObjectID) (*models.Notification, error)
	SetReadState(ctx context.Context, userID, id primitive.ObjectID, read bool) (*models.Notification, error)
	SetArchiveState(ctx context.Context, userID, id primitive.ObjectID, archived bool) (*models.Notification, error)
	MarkManyRead(ctx context.Context, userID primitive.ObjectID, ids []primitive.ObjectID) (int64, error)
	MarkAllRead(ctx context.Context, userID primitive.ObjectID, notifType, category string) (int64, error)
	DeleteNotification(ctx context.Context, userID, id primitive.ObjectID) error
	DeleteManyByID(ctx context.Context, userID primitive.ObjectID, ids []primitive.ObjectID) (int64, error)
	DeleteAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error)
	CountUnreadSummary(ctx context.Context, userID primitive.ObjectID) (*models.UnreadSummary, error)
	GetStats(ctx context.Context, userID primitive.ObjectID) (*models.NotificationStats, error)
	DeleteExpiredNotifications(ctx context.Context) (int64, error)
}

// NotificationService enforces the inbox contract: input validation, the
// bulk ceiling, priority defaulting. Ownership scoping itself lives in the
// repository predicates, so every call here is already per-user.
type NotificationService struct {
	repo     notificationStorage
	validate *validator.Validate
}

func NewNotificationService(repo notificationStorage) *NotificationService {
	return &NotificationService{
		repo:     repo,
		validate: validator.New(),
	}
}

// CreateNotification stores a notification for the target user. The caller
// is an internal principal acting on the user's behalf, never the user.
func (s *NotificationService) CreateNotification(ctx context.Context, req *models.CreateNotificationRequest) (*models.Notification, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
	}

	userID, err := primitive.ObjectIDFromHex(req.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user id", models.ErrValidation)
	}

	priority := req.Priority
	if priority == "" {
		priority = models.PriorityNormal
	}

	notif := &models.Notification{
		UserID:            userID,
		Type:              req.Type,
		Title:             req.Title,
		Message:           req.Message,
		Icon:              req.Icon,
		ImageURL:          req.ImageURL,
		ActionURL:         req.ActionURL,
		ActionLabel:       req.ActionLabel,
		Category:          req.Category,
		Priority:          priority,
		Metadata:          req.Metadata,
		RelatedEntityType: req.RelatedEntityType,
		ExpiresAt:         req.ExpiresAt,
	}
	if req.RelatedEntityID != "" {
		entityID, err := primitive.ObjectIDFromHex(req.RelatedEntityID)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid related entity id", models.ErrValidation)
		}
		notif.RelatedEntityID = &entityID
	}

	created, err := s.repo.CreateNotification(ctx, notif)
	if err != nil {
		return nil, err
	}
	logrus.WithFields(logrus.Fields{
		"user_id": req.UserID,
		"type":    req.Type,
	}).Info("Notification created")
	return created, nil
}

// GetNotifications returns one page of the user's feed. Bad filter values
// are normalized, never rejected.
func (s *NotificationService) GetNotifications(ctx context.Context, userID primitive.ObjectID, filter *models.NotificationFilter) (*models.NotificationPage, error) {
	filter.Normalize()

	notifications, total, err := s.repo.FindNotifications(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	return &models.NotificationPage{
		Notifications: notifications,
		Total:         total,
		Page:          filter.Page,
		Limit:         filter.Limit,
	}, nil
}

// GetNotification fetches a single owned notification.
func (s *NotificationService) GetNotification(ctx context.Context, userID, id primitive.ObjectID) (*models.Notification, error) {
	return s.repo.GetNotificationByID(ctx, userID, id)
}

// GetUnreadSummary returns the badge counts for the app shell.
func (s *NotificationService) GetUnreadSummary(ctx context.Context, userID primitive.ObjectID) (*models.UnreadSummary, error) {
	return s.repo.CountUnreadSummary(ctx, userID)
}

// GetStats aggregates the user's feed for the notification center header.
func (s *NotificationService) GetStats(ctx context.Context, userID primitive.ObjectID) (*models.NotificationStats, error) {
	return s.repo.GetStats(ctx, userID)
}

// MarkAsRead transitions a notification to read. Already-read notifications
// succeed again with a refreshed timestamp.
func (s *NotificationService) MarkAsRead(ctx context.Context, userID, id primitive.ObjectID) (*models.Notification, error) {
	return s.repo.SetReadState(ctx, userID, id, true)
}

// MarkAsUnread reverses a read transition.
func (s *NotificationService) MarkAsUnread(ctx context.Context, userID, id primitive.ObjectID) (*models.Notification, error) {
	return s.repo.SetReadState(ctx, userID, id, false)
}

// Archive soft-hides a notification from default views.
func (s *NotificationService) Archive(ctx context.Context, userID, id primitive.ObjectID) (*models.Notification, error) {
	return s.repo.SetArchiveState(ctx, userID, id, true)
}

// Unarchive returns an archived notification to the active feed.
func (s *NotificationService) Unarchive(ctx context.Context, userID, id primitive.ObjectID) (*models.Notification, error) {
	return s.repo.SetArchiveState(ctx, userID, id, false)
}

// MarkMultipleAsRead marks the owned, unread subset of the given ids as read
// and returns the number actually changed. The id list is capped at
// MaxBulkIDs; malformed and foreign ids are skipped, not errors.
func (s *NotificationService) MarkMultipleAsRead(ctx context.Context, userID primitive.ObjectID, req *models.BulkIDsRequest) (int64, error) {
	ids, err := s.parseBulkIDs(req)
	if err != nil {
		return 0, err
	}
	return s.repo.MarkManyRead(ctx, userID, ids)
}

// MarkAllAsRead marks every unread, non-archived notification as read,
// optionally narrowed by type and/or category.
func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID primitive.ObjectID, notifType, category string) (int64, error) {
	count, err := s.repo.MarkAllRead(ctx, userID, notifType, category)
	if err != nil {
		return 0, err
	}
	logrus.WithFields(logrus.Fields{
		"user_id": userID.Hex(),
		"count":   count,
	}).Info("Marked all notifications as read")
	return count, nil
}

// DeleteNotification removes a single owned notification.
func (s *NotificationService) DeleteNotification(ctx context.Context, userID, id primitive.ObjectID) error {
	return s.repo.DeleteNotification(ctx, userID, id)
}

// DeleteMultiple deletes the owned subset of the given ids and returns the
// number removed. Same ceiling and skip semantics as MarkMultipleAsRead.
func (s *NotificationService) DeleteMultiple(ctx context.Context, userID primitive.ObjectID, req *models.BulkIDsRequest) (int64, error) {
	ids, err := s.parseBulkIDs(req)
	if err != nil {
		return 0, err
	}
	return s.repo.DeleteManyByID(ctx, userID, ids)
}

// DeleteAllRead removes every read notification regardless of archive state.
func (s *NotificationService) DeleteAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.repo.DeleteAllRead(ctx, userID)
}

// DeleteExpiredNotifications runs the maintenance sweep over all users.
func (s *NotificationService) DeleteExpiredNotifications(ctx context.Context) (int64, error) {
	return s.repo.DeleteExpiredNotifications(ctx)
}

// parseBulkIDs enforces the 1..MaxBulkIDs ceiling on the raw list, then
// converts ids leniently: a malformed hex string is dropped the same way a
// foreign id would be skipped by the store predicate.
func (s *NotificationService) parseBulkIDs(req *models.BulkIDsRequest) ([]primitive.ObjectID, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: between 1 and %d ids required", models.ErrValidation, models.MaxBulkIDs)
	}

	ids := make([]primitive.ObjectID, 0, len(req.IDs))
	for _, raw := range req.IDs {
		id, err := primitive.ObjectIDFromHex(raw)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids, nil
}
