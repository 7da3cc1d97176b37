package handler

import (
	"net/http"
	"time"

	"github.com/sysu-ecnc-dev/schedule-coordinator/backend/internal/domain"
)

// SyncUpload 接收客户端离线期间积累的时段修改，逐条合并进服务端状态
func (h *Handler) SyncUpload(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TimeSlots []domain.SyncEdit `json:"timeSlots" validate:"required,min=1,dive"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	result, err := h.reconciler.Upload(myInfo.ID, req.TimeSlots)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "同步完成", result)
}

// SyncDownload 下发需要同步给客户端的时段。
// 不传 since 时使用用户的同步水位线，两者都为空则返回全量数据
func (h *Handler) SyncDownload(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	since := myInfo.LastSyncedAt
	if sinceParam := r.URL.Query().Get("since"); sinceParam != "" {
		parsed, err := time.Parse(time.RFC3339, sinceParam)
		if err != nil {
			h.errorResponse(w, r, "无效的时间格式，应为 RFC3339")
			return
		}
		since = &parsed
	}

	slots, err := h.reconciler.Download(myInfo.ID, since)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取同步数据成功", map[string]any{
		"timeSlots":    slots,
		"lastSyncedAt": myInfo.LastSyncedAt,
	})
}
