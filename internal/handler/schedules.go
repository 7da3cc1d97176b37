package handler

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sysu-ecnc-dev/schedule-coordinator/backend/internal/domain"
	"github.com/sysu-ecnc-dev/schedule-coordinator/backend/internal/utils"
)

func (h *Handler) CreateSchedule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name                string           `json:"name" validate:"required,max=64"`
		Description         string           `json:"description" validate:"max=255"`
		Duration            int32            `json:"duration" validate:"required,gt=0"`
		StartDate           string           `json:"startDate" validate:"required,datetime=2006-01-02"`
		MinDaysSelection    *int32           `json:"minDaysSelection" validate:"omitempty,gt=0"`
		UserSpecificMinDays map[string]int32 `json:"userSpecificMinDays"`
		// 每一天统一生成的时段模板
		TimeSlots []struct {
			StartTime string `json:"startTime" validate:"required,datetime=15:04:05"`
			EndTime   string `json:"endTime" validate:"required,datetime=15:04:05"`
		} `json:"timeSlots" validate:"dive"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	slotTemplates := make([]*domain.TimeSlot, 0, len(req.TimeSlots))
	for _, slotTemplate := range req.TimeSlots {
		slotTemplates = append(slotTemplates, &domain.TimeSlot{
			StartTime: slotTemplate.StartTime,
			EndTime:   slotTemplate.EndTime,
		})
	}
	if err := utils.ValidateTimeSlotWindows(slotTemplates); err != nil {
		h.errorResponse(w, r, err.Error())
		return
	}

	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	schedule := &domain.Schedule{
		Name:                req.Name,
		Description:         req.Description,
		OwnerID:             myInfo.ID,
		Duration:            req.Duration,
		MinDaysSelection:    req.MinDaysSelection,
		UserSpecificMinDays: req.UserSpecificMinDays,
	}
	if err := h.repository.CreateSchedule(schedule); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	// 创建者默认拥有全部权限的角色，并自动成为参与者
	ownerRole := &domain.Role{
		ScheduleID:             schedule.ID,
		Name:                   "组织者",
		Description:            "班表创建者的默认角色",
		CanEditSchedule:        true,
		CanInviteUsers:         true,
		CanRequestPermutations: true,
	}
	if err := h.repository.CreateRole(ownerRole); err != nil {
		h.internalServerError(w, r, err)
		return
	}
	if err := h.repository.CreateParticipant(&domain.Participant{
		ScheduleID:         schedule.ID,
		UserID:             myInfo.ID,
		RoleID:             ownerRole.ID,
		InvitationAccepted: true,
	}); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	// 按时长生成每一天以及每天的时段
	startDate, err := time.Parse("2006-01-02", req.StartDate)
	if err != nil {
		h.badRequest(w, r, err)
		return
	}

	for i := int32(0); i < req.Duration; i++ {
		day := &domain.ScheduleDay{
			ScheduleID: schedule.ID,
			Date:       startDate.AddDate(0, 0, int(i)).Format("2006-01-02"),
		}
		if err := h.repository.CreateScheduleDay(day); err != nil {
			h.internalServerError(w, r, err)
			return
		}

		for _, slotTemplate := range req.TimeSlots {
			slot := &domain.TimeSlot{
				ScheduleDayID: day.ID,
				StartTime:     slotTemplate.StartTime,
				EndTime:       slotTemplate.EndTime,
				IsAvailable:   true,
			}
			if err := h.repository.CreateTimeSlot(slot); err != nil {
				h.internalServerError(w, r, err)
				return
			}
		}
	}

	h.successResponse(w, r, "创建班表成功", schedule)
}

func (h *Handler) GetMySchedules(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)

	schedules, err := h.repository.GetSchedulesForUser(myInfo.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取班表列表成功", schedules)
}

func (h *Handler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	schedule := r.Context().Value(ScheduleCtx).(*domain.Schedule)
	h.successResponse(w, r, "获取班表成功", schedule)
}

func (h *Handler) UpdateSchedule(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name                *string          `json:"name" validate:"omitempty,max=64"`
		Description         *string          `json:"description" validate:"omitempty,max=255"`
		MinDaysSelection    *int32           `json:"minDaysSelection" validate:"omitempty,gt=0"`
		UserSpecificMinDays map[string]int32 `json:"userSpecificMinDays"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	schedule := r.Context().Value(ScheduleCtx).(*domain.Schedule)

	if req.Name != nil {
		schedule.Name = *req.Name
	}
	if req.Description != nil {
		schedule.Description = *req.Description
	}
	if req.MinDaysSelection != nil {
		schedule.MinDaysSelection = req.MinDaysSelection
	}
	if req.UserSpecificMinDays != nil {
		schedule.UserSpecificMinDays = req.UserSpecificMinDays
	}

	if err := h.repository.UpdateSchedule(schedule); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, "班表已被其他人修改，请重试")
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	h.successResponse(w, r, "更新班表成功", schedule)
}

func (h *Handler) DeleteSchedule(w http.ResponseWriter, r *http.Request) {
	schedule := r.Context().Value(ScheduleCtx).(*domain.Schedule)

	if err := h.repository.DeleteSchedule(schedule.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "删除班表成功", nil)
}

func (h *Handler) MarkScheduleComplete(w http.ResponseWriter, r *http.Request) {
	schedule := r.Context().Value(ScheduleCtx).(*domain.Schedule)

	if err := h.repository.MarkScheduleComplete(schedule.ID); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "班表已标记为完成", nil)
}

// AddParticipants 批量邀请用户加入班表。
// 邀请逐个处理，单条失败不影响其余条目，失败原因逐条返回
func (h *Handler) AddParticipants(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Participants []struct {
			Identifier string `json:"identifier" validate:"required"` // 用户名或邮箱
			RoleID     int64  `json:"roleID" validate:"required"`
		} `json:"participants" validate:"required,min=1,dive"`
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
	schedule := r.Context().Value(ScheduleCtx).(*domain.Schedule)

	// 创建者之外还允许角色带邀请权限的参与者发起邀请
	if schedule.OwnerID != myInfo.ID {
		participant, err := h.repository.GetParticipant(schedule.ID, myInfo.ID)
		if err != nil {
			switch {
			case errors.Is(err, sql.ErrNoRows):
				h.errorResponse(w, r, domain.ErrPermissionDenied.Error())
			default:
				h.internalServerError(w, r, err)
			}
			return
		}
		role, err := h.repository.GetRoleByID(participant.RoleID)
		if err != nil {
			h.internalServerError(w, r, err)
			return
		}
		if !role.CanInviteUsers {
			h.errorResponse(w, r, domain.ErrPermissionDenied.Error())
			return
		}
	}

	type inviteError struct {
		Identifier string `json:"identifier"`
		Reason     string `json:"reason"`
	}

	added := make([]*domain.Participant, 0, len(req.Participants))
	inviteErrors := make([]inviteError, 0)

	for _, item := range req.Participants {
		// 先按用户名找，找不到再按邮箱找
		user, err := h.repository.GetUserByUsername(item.Identifier)
		if err != nil {
			if !errors.Is(err, sql.ErrNoRows) {
				h.internalServerError(w, r, err)
				return
			}
			user, err = h.repository.GetUserByEmail(item.Identifier)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					inviteErrors = append(inviteErrors, inviteError{Identifier: item.Identifier, Reason: "用户不存在"})
					continue
				}
				h.internalServerError(w, r, err)
				return
			}
		}

		exists, err := h.repository.CheckParticipantIfExists(schedule.ID, user.ID)
		if err != nil {
			h.internalServerError(w, r, err)
			return
		}
		if exists {
			inviteErrors = append(inviteErrors, inviteError{Identifier: item.Identifier, Reason: "该用户已经是班表参与者"})
			continue
		}

		role, err := h.repository.GetRoleByID(item.RoleID)
		if err != nil || role.ScheduleID != schedule.ID {
			if err != nil && !errors.Is(err, sql.ErrNoRows) {
				h.internalServerError(w, r, err)
				return
			}
			inviteErrors = append(inviteErrors, inviteError{Identifier: item.Identifier, Reason: "角色不存在"})
			continue
		}

		participant := &domain.Participant{
			ScheduleID: schedule.ID,
			UserID:     user.ID,
			RoleID:     role.ID,
		}
		if err := h.repository.CreateParticipant(participant); err != nil {
			h.internalServerError(w, r, err)
			return
		}
		added = append(added, participant)

		// 站内通知
		if err := h.dispatcher.ScheduleInvitation(user.ID, schedule, myInfo.FullName, role); err != nil {
			h.internalServerError(w, r, err)
			return
		}

		// 邀请邮件
		mailMessage := domain.MailMessage{
			Type: "invitation",
			To:   user.Email,
			Data: domain.InvitationMailData{
				FullName:     user.FullName,
				InviterName:  myInfo.FullName,
				ScheduleName: schedule.Name,
				RoleName:     role.Name,
			},
		}
		mailData, err := json.Marshal(mailMessage)
		if err != nil {
			h.internalServerError(w, r, err)
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), time.Duration(h.config.RabbitMQ.PublishTimeout)*time.Second)
		err = h.mailChannel.PublishWithContext(
			ctx,
			"",
			"email_queue",
			true,
			false,
			amqp.Publishing{
				ContentType: "application/json",
				Body:        mailData,
			},
		)
		cancel()
		if err != nil {
			h.internalServerError(w, r, err)
			return
		}
	}

	h.successResponse(w, r, "邀请处理完成", map[string]any{
		"added":  added,
		"errors": inviteErrors,
	})
}

func (h *Handler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name                   string `json:"name" validate:"required,max=32"`
		Description            string `json:"description" validate:"max=255"`
		CanEditSchedule        bool   `json:"canEditSchedule"`
		CanInviteUsers         bool   `json:"canInviteUsers"`
		CanRequestPermutations bool   `json:"canRequestPermutations"`
	}

	if err := h.readJSON(r, &req); err != nil {
		h.badRequest(w, r, err)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		h.badRequest(w, r, err)
		return
	}

	schedule := r.Context().Value(ScheduleCtx).(*domain.Schedule)

	role := &domain.Role{
		ScheduleID:             schedule.ID,
		Name:                   req.Name,
		Description:            req.Description,
		CanEditSchedule:        req.CanEditSchedule,
		CanInviteUsers:         req.CanInviteUsers,
		CanRequestPermutations: req.CanRequestPermutations,
	}
	if err := h.repository.CreateRole(role); err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "创建角色成功", role)
}

func (h *Handler) GetRoles(w http.ResponseWriter, r *http.Request) {
	schedule := r.Context().Value(ScheduleCtx).(*domain.Schedule)

	roles, err := h.repository.GetRolesByScheduleID(schedule.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	h.successResponse(w, r, "获取角色列表成功", roles)
}

func (h *Handler) GetScheduleDays(w http.ResponseWriter, r *http.Request) {
	schedule := r.Context().Value(ScheduleCtx).(*domain.Schedule)

	days, err := h.repository.GetScheduleDaysByScheduleID(schedule.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	if date := r.URL.Query().Get("date"); date != "" {
		filtered := make([]*domain.ScheduleDay, 0, 1)
		for _, day := range days {
			if day.Date == date {
				filtered = append(filtered, day)
			}
		}
		days = filtered
	}

	h.successResponse(w, r, "获取班表日期成功", days)
}

// GetMySelection 返回自己在该班表中已选择的天数和最少天数要求
func (h *Handler) GetMySelection(w http.ResponseWriter, r *http.Request) {
	myInfo := r.Context().Value(MyInfoCtx).(*domain.User)
	schedule := r.Context().Value(ScheduleCtx).(*domain.Schedule)

	participant, err := h.repository.GetParticipant(schedule.ID, myInfo.ID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			h.errorResponse(w, r, domain.ErrNotAParticipant.Error())
		default:
			h.internalServerError(w, r, err)
		}
		return
	}

	daysSelected, err := h.repository.CountDistinctDaysSelected(participant.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	participantCount, err := h.repository.CountParticipants(schedule.ID)
	if err != nil {
		h.internalServerError(w, r, err)
		return
	}

	minDays := schedule.MinDaysForUser(myInfo.ID, participantCount)

	h.successResponse(w, r, "获取选择情况成功", map[string]any{
		"uniqueDaysSelected": daysSelected,
		"minDaysRequired":    minDays,
		"satisfied":          daysSelected >= minDays,
		"suggestedDefault":   domain.DefaultMinDays(schedule, participantCount),
	})
}
