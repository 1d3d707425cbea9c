package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/healthcoach/notification-service/internal/models"
	"github.com/healthcoach/notification-service/internal/services"
	"github.com/healthcoach/notification-service/pkg/middleware"
	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationHandler exposes the notification service over HTTP.
type NotificationHandler struct {
	Service *services.NotificationService
}

func NewNotificationHandler(service *services.NotificationService) *NotificationHandler {
	return &NotificationHandler{Service: service}
}

// currentUserID resolves the authenticated user, writing 401 on failure.
func currentUserID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	claims := middleware.GetUserFromContext(r.Context())
	if claims == nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return primitive.NilObjectID, false
	}
	userID, err := primitive.ObjectIDFromHex(claims.UserID)
	if err != nil {
		log.WithField("user_id", claims.UserID).Warn("Token carries malformed user id")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return primitive.NilObjectID, false
	}
	return userID, true
}

// pathNotificationID parses the {id} path variable, writing 400 on failure.
func pathNotificationID(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(mux.Vars(r)["id"])
	if err != nil {
		http.Error(w, "Invalid notification ID", http.StatusBadRequest)
		return primitive.NilObjectID, false
	}
	return id, true
}

// respondError maps service errors onto HTTP statuses without leaking store
// internals on unexpected failures.
func respondError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		http.Error(w, "Notification not found", http.StatusNotFound)
	case errors.Is(err, models.ErrValidation):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		log.WithError(err).Error(fallback)
		http.Error(w, fallback, http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// filterFromQuery builds the listing filter from query parameters. Values the
// engine does not recognize fall back to defaults rather than erroring.
func filterFromQuery(r *http.Request) *models.NotificationFilter {
	q := r.URL.Query()
	filter := &models.NotificationFilter{
		Type:      q.Get("type"),
		Priority:  q.Get("priority"),
		Category:  q.Get("category"),
		SortBy:    q.Get("sortBy"),
		SortOrder: q.Get("sortOrder"),
	}
	if page, err := strconv.ParseInt(q.Get("page"), 10, 64); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.ParseInt(q.Get("limit"), 10, 64); err == nil {
		filter.Limit = limit
	}
	if isRead, err := strconv.ParseBool(q.Get("isRead")); err == nil {
		filter.IsRead = &isRead
	}
	if isArchived, err := strconv.ParseBool(q.Get("isArchived")); err == nil {
		filter.IsArchived = isArchived
	}
	return filter
}

// GET /notifications
func (h *NotificationHandler) ListNotificationsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	page, err := h.Service.GetNotifications(r.Context(), userID, filterFromQuery(r))
	if err != nil {
		respondError(w, err, "Failed to get notifications")
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// GET /notifications/summary
func (h *NotificationHandler) UnreadSummaryHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	summary, err := h.Service.GetUnreadSummary(r.Context(), userID)
	if err != nil {
		respondError(w, err, "Failed to get unread summary")
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// GET /notifications/stats
func (h *NotificationHandler) StatsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	stats, err := h.Service.GetStats(r.Context(), userID)
	if err != nil {
		respondError(w, err, "Failed to get notification stats")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// GET /notifications/{id}
func (h *NotificationHandler) GetNotificationHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	notifID, ok := pathNotificationID(w, r)
	if !ok {
		return
	}

	notif, err := h.Service.GetNotification(r.Context(), userID, notifID)
	if err != nil {
		respondError(w, err, "Failed to get notification")
		return
	}
	writeJSON(w, http.StatusOK, notif)
}

// POST /notifications/{id}/read
func (h *NotificationHandler) MarkAsReadHandler(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.MarkAsRead, "Failed to mark notification as read")
}

// POST /notifications/{id}/unread
func (h *NotificationHandler) MarkAsUnreadHandler(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.MarkAsUnread, "Failed to mark notification as unread")
}

// POST /notifications/{id}/archive
func (h *NotificationHandler) ArchiveHandler(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.Archive, "Failed to archive notification")
}

// POST /notifications/{id}/unarchive
func (h *NotificationHandler) UnarchiveHandler(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Service.Unarchive, "Failed to unarchive notification")
}

func (h *NotificationHandler) transition(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, userID, id primitive.ObjectID) (*models.Notification, error),
	failMsg string,
) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	notifID, ok := pathNotificationID(w, r)
	if !ok {
		return
	}

	notif, err := op(r.Context(), userID, notifID)
	if err != nil {
		respondError(w, err, failMsg)
		return
	}
	writeJSON(w, http.StatusOK, notif)
}

// DELETE /notifications/{id}
func (h *NotificationHandler) DeleteNotificationHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}
	notifID, ok := pathNotificationID(w, r)
	if !ok {
		return
	}

	if err := h.Service.DeleteNotification(r.Context(), userID, notifID); err != nil {
		respondError(w, err, "Failed to delete notification")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Notification deleted"})
}

// POST /notifications/bulk/read
func (h *NotificationHandler) BulkMarkAsReadHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req models.BulkIDsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	count, err := h.Service.MarkMultipleAsRead(r.Context(), userID, &req)
	if err != nil {
		respondError(w, err, "Failed to mark notifications as read")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": count})
}

// POST /notifications/read-all
func (h *NotificationHandler) MarkAllAsReadHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req models.MarkAllReadRequest
	if r.Body != nil {
		// Body is optional; an empty or absent body means no narrowing.
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	count, err := h.Service.MarkAllAsRead(r.Context(), userID, req.Type, req.Category)
	if err != nil {
		respondError(w, err, "Failed to mark all notifications as read")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": count})
}

// POST /notifications/bulk/delete
func (h *NotificationHandler) BulkDeleteHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	var req models.BulkIDsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	count, err := h.Service.DeleteMultiple(r.Context(), userID, &req)
	if err != nil {
		respondError(w, err, "Failed to delete notifications")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": count})
}

// DELETE /notifications/read
func (h *NotificationHandler) DeleteAllReadHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUserID(w, r)
	if !ok {
		return
	}

	count, err := h.Service.DeleteAllRead(r.Context(), userID)
	if err != nil {
		respondError(w, err, "Failed to delete read notifications")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": count})
}

// POST /admin/notifications
func (h *NotificationHandler) CreateNotificationHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CreateNotificationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request payload", http.StatusBadRequest)
		return
	}

	notif, err := h.Service.CreateNotification(r.Context(), &req)
	if err != nil {
		respondError(w, err, "Failed to create notification")
		return
	}
	writeJSON(w, http.StatusCreated, notif)
}

// POST /admin/notifications/sweep
func (h *NotificationHandler) SweepExpiredHandler(w http.ResponseWriter, r *http.Request) {
	count, err := h.Service.DeleteExpiredNotifications(r.Context())
	if err != nil {
		respondError(w, err, "Failed to sweep expired notifications")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"deleted": count})
}
