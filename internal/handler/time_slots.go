package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/sysu-ecnc-dev/schedule-coordinator/backend/internal/domain"
)

func (h *Handler) GetTimeSlotsByDay(w http.ResponseWriter, r *http.Request) {
	dayIDParam := chi.URLParam(r, "id")
	dayID, err := strconv.ParseInt(dayIDParam, 10, 64)
	if err != nil {
		h.errorResponse(w, r, "日期ID无效")
		return
	}

	if _, err := h.repository.GetScheduleDayByID(dayID); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "日期不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	slots, err := h.repository.GetTimeSlotsByScheduleDayID(dayID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取时段列表成功", slots)
}

// SetAlarm 为某个时段设置提醒。
// 传入的提前分钟数列表会整体替换该用户在该时段上已有的提醒，
// 传空列表即取消提醒
func (h *Handler) SetAlarm(w http.ResponseWriter, r *http.Request) {
	slotIDParam := chi.URLParam(r, "id")
	slotID, err := strconv.ParseInt(slotIDParam, 10, 64)
	if err != nil {
		h.errorResponse(w, r, "时段ID无效")
		return
	}

	var req struct {
		AlarmTimes []int32 `json:"alarmTimes" validate:"dive,gt=0"`
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

	slot, err := h.repository.GetTimeSlotByID(slotID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "时段不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	day, err := h.repository.GetScheduleDayByID(slot.ScheduleDayID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	startTime, err := time.ParseInLocation("2006-01-02 15:04:05", day.Date+" "+slot.StartTime, time.Local)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	alarms := make([]*domain.ScheduledAlarm, 0, len(req.AlarmTimes))
	for _, minutes := range req.AlarmTimes {
		alarms = append(alarms, &domain.ScheduledAlarm{
			UserID:        myInfo.ID,
			TimeSlotID:    slotID,
			MinutesBefore: minutes,
			ScheduledTime: startTime.Add(-time.Duration(minutes) * time.Minute),
		})
	}

	if err := h.repository.UpdateTimeSlotAlarm(slotID, len(req.AlarmTimes) > 0, req.AlarmTimes); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "时段不存在")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	if err := h.repository.ReplaceScheduledAlarms(myInfo.ID, slotID, alarms); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	updated, err := h.repository.GetTimeSlotByID(slotID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "设置提醒成功", updated)
}
