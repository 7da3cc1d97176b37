package handler

import (
	"net/http"
)

// NotificationWebSocket 把连接升级为 websocket 并交给网关处理
func (h *Handler) NotificationWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, err := h.subject(r)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.gateway.HandleConnection(w, r, userID)
}
