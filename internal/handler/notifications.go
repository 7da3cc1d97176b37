package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

func (h *Handler) GetMyNotifications(w http.ResponseWriter, r *http.Request) {
	userID, err := h.subject(r)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	notifications, err := h.repository.GetNotificationsByUserID(userID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取通知列表成功", notifications)
}

func (h *Handler) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	h.markNotification(w, r, h.repository.MarkNotificationRead, "标记通知已读成功")
}

func (h *Handler) MarkNotificationDelivered(w http.ResponseWriter, r *http.Request) {
	h.markNotification(w, r, h.repository.MarkNotificationDelivered, "标记通知已送达成功")
}

func (h *Handler) markNotification(w http.ResponseWriter, r *http.Request, mark func(id int64, userID int64) error, successMessage string) {
	notificationIDParam := chi.URLParam(r, "id")
	notificationID, err := strconv.ParseInt(notificationIDParam, 10, 64)
	if err != nil {
		h.errorResponse(w, r, "通知ID无效")
		return
	}

	userID, err := h.subject(r)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	if err := mark(notificationID, userID); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "通知不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, successMessage, nil)
}

func (h *Handler) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	userID, err := h.subject(r)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	if err := h.repository.MarkAllNotificationsRead(userID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "全部通知已标记为已读", nil)
}
