package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/sysu-ecnc-dev/schedule-coordinator/backend/internal/domain"
	"github.com/sysu-ecnc-dev/schedule-coordinator/backend/internal/export"
)

// ExportSchedule 把已完成的班表导出为 PDF，仅创建者和参与者可以下载
func (h *Handler) ExportSchedule(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	schedule := r.Context().Value(ScheduleCtx).(*domain.Schedule)

	if schedule.OwnerID != myInfo.ID {
		exists, err := h.repository.CheckParticipantIfExists(schedule.ID, myInfo.ID)
		if err != nil {
			h.internalServerError(w, r, err)
			return
		}
		if !exists {
			h.errorResponse(w, r, domain.ErrNotAParticipant.Error())
			return
		}
	}

	if !schedule.IsComplete {
		h.errorResponse(w, r, "班表尚未完成，无法导出")
		return
	}

	days, err := h.repository.GetScheduleDaysByScheduleID(schedule.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	slotsByDay := make(map[int64][]*domain.TimeSlot, len(days))
	participantIDs := make([]int64, 0)
	for _, day := range days {
		slots, err := h.repository.GetTimeSlotsByScheduleDayID(day.ID)
		if err != nil {
			h.internalServerError(w, r, err)
			return
		}
		slotsByDay[day.ID] = slots
		for _, slot := range slots {
			participantIDs = append(participantIDs, slot.ParticipantIDs...)
		}
	}

	usernames, err := h.repository.GetUsernamesByParticipantIDs(participantIDs)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	generatedAt := time.Now()

	pdfData, err := h.renderer.Render(schedule, days, slotsByDay, usernames, generatedAt)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename(schedule, generatedAt)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(pdfData); err != nil {
		h.logInternalServerError(r, err)
	}
}
