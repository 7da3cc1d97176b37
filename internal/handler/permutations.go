package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/sysu-ecnc-dev/schedule-coordinator/backend/internal/domain"
)

func (h *Handler) CreatePermutationRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RequesterSlotID int64  `json:"requesterSlotID" validate:"required"`
		RecipientSlotID int64  `json:"recipientSlotID" validate:"required"`
		Message         string `json:"message" validate:"max=255"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	userID, err := h.subject(r)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	request, err := h.engine.Create(userID, req.RequesterSlotID, req.RecipientSlotID, req.Message)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "时段不存在")
		case errors.Is(err, domain.ErrNotAParticipant),
			errors.Is(err, domain.ErrPermissionDenied),
			errors.Is(err, domain.ErrNoRecipient),
			errors.Is(err, domain.ErrDuplicateRequest):
			h.errorResponse(w, r, err.Error())
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "发起换班请求成功", request)
}

func (h *Handler) GetMyPermutationRequests(w http.ResponseWriter, r *http.Request) {
	userID, err := h.subject(r)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	requests, err := h.repository.GetPermutationRequestsForUser(userID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取换班请求列表成功", requests)
}

func (h *Handler) AcceptPermutationRequest(w http.ResponseWriter, r *http.Request) {
	h.resolvePermutationRequest(w, r, true)
}

func (h *Handler) RejectPermutationRequest(w http.ResponseWriter, r *http.Request) {
	h.resolvePermutationRequest(w, r, false)
}

func (h *Handler) resolvePermutationRequest(w http.ResponseWriter, r *http.Request, accept bool) {
	requestIDParam := chi.URLParam(r, "id")
	requestID, err := strconv.ParseInt(requestIDParam, 10, 64)
	if err != nil {
		h.errorResponse(w, r, "请求ID无效")
		return
	}

	userID, err := h.subject(r)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	var request *domain.PermutationRequest
	if accept {
		request, err = h.engine.Accept(userID, requestID)
	} else {
		request, err = h.engine.Reject(userID, requestID)
	}
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "换班请求不存在")
		case errors.Is(err, domain.ErrPermissionDenied):
			h.errorResponse(w, r, "只有接收方才能处理该请求")
		case errors.Is(err, domain.ErrInvalidState):
			h.errorResponse(w, r, err.Error())
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	if accept {
		h.successResponse(w, r, "已接受换班请求", request)
	} else {
		h.successResponse(w, r, "已拒绝换班请求", request)
	}
}

// subject 从 context 中解析当前登录用户的 ID
func (h *Handler) subject(r *http.Request) (int64, error) {
	subString := r.Context().Value(SubCtxKey).(string)
	return strconv.ParseInt(subString, 10, 64)
}
