package handler

import (
	"net/http"

	"github.com/sysu-ecnc-dev/schedule-coordinator/backend/internal/domain"
)

func (h *Handler) GetMyInfo(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	h.successResponse(w, r, "获取个人信息成功", myInfo)
}

// UpdateSyncTime 手动推进同步水位线，客户端在本地确认同步完成后调用
func (h *Handler) UpdateSyncTime(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	syncedAt, err := h.repository.TouchLastSyncedAt(myInfo.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "更新同步时间成功", map[string]any{"lastSyncedAt": syncedAt})
}
