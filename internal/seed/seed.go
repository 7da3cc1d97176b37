package seed

import (
	"log/slog"
	"math/rand"

	"github.com/sysu-ecnc-dev/schedule-coordinator/backend/internal/domain"
	"github.com/sysu-ecnc-dev/schedule-coordinator/backend/internal/repository"
	"github.com/sysu-ecnc-dev/schedule-coordinator/backend/internal/utils"
)

// 演示班表里每个角色的权限配置
var demoRoles = []domain.Role{
	{
		Name:                   "组织者",
		Description:            "可以编辑班表、邀请成员和发起换班",
		CanEditSchedule:        true,
		CanInviteUsers:         true,
		CanRequestPermutations: true,
	},
	{
		Name:                   "成员",
		Description:            "可以发起换班",
		CanRequestPermutations: true,
	},
	{
		Name:        "旁观者",
		Description: "只能查看班表",
	},
}

// SeedDemoSchedule 为指定的创建者插入一个带日期、时段和参与者的演示班表。
// 数据库中已有的用户会被随机分配角色并加入班表，
// 每个参与者再被随机分配到一些时段上
func SeedDemoSchedule(r *repository.Repository, ownerID int64) {
	owner, err := r.GetUserByID(ownerID)
	if err != nil {
		slog.Error("无法获取创建者", "ownerID", ownerID, "error", err)
		return
	}

	schedule := utils.GenerateRandomSchedule(owner.ID)
	if err := r.CreateSchedule(schedule); err != nil {
		slog.Error("无法插入班表", "error", err)
		return
	}

	// 插入角色
	roles := make([]*domain.Role, 0, len(demoRoles))
	for _, template := range demoRoles {
		role := template
		role.ScheduleID = schedule.ID
		if err := r.CreateRole(&role); err != nil {
			slog.Error("无法插入角色", "role", role.Name, "error", err)
			return
		}
		roles = append(roles, &role)
	}

	// 创建者用第一个角色加入班表
	if err := r.CreateParticipant(&domain.Participant{
		ScheduleID:         schedule.ID,
		UserID:             owner.ID,
		RoleID:             roles[0].ID,
		InvitationAccepted: true,
	}); err != nil {
		slog.Error("无法插入创建者参与记录", "error", err)
		return
	}

	// 其余用户随机分配角色
	users, err := r.GetAllUsers()
	if err != nil {
		slog.Error("无法获取用户列表", "error", err)
		return
	}

	participants := []*domain.Participant{}
	for _, user := range users {
		if user.ID == owner.ID {
			continue
		}

		participant := &domain.Participant{
			ScheduleID: schedule.ID,
			UserID:     user.ID,
			RoleID:     roles[rand.Intn(len(roles))].ID,
		}
		if err := r.CreateParticipant(participant); err != nil {
			slog.Error("无法插入参与记录", "userID", user.ID, "error", err)
			continue
		}
		participants = append(participants, participant)
	}

	// 插入日期和时段，并随机分配参与者
	days := utils.GenerateScheduleDays(schedule.ID, schedule.Duration)
	slotCount := 0
	for _, day := range days {
		if err := r.CreateScheduleDay(day); err != nil {
			slog.Error("无法插入日期", "date", day.Date, "error", err)
			continue
		}

		for _, slot := range utils.GenerateRandomTimeSlots(day.ID) {
			if err := r.CreateTimeSlot(slot); err != nil {
				slog.Error("无法插入时段", "error", err)
				continue
			}
			slotCount++

			if len(participants) > 0 && rand.Intn(2) == 0 {
				participant := participants[rand.Intn(len(participants))]
				if err := r.AssignParticipantToSlot(slot.ID, participant.ID); err != nil {
					slog.Error("无法分配参与者到时段", "error", err)
				}
			}
		}
	}

	slog.Info("插入演示班表完成", "scheduleID", schedule.ID, "days", len(days), "slots", slotCount, "participants", len(participants)+1)
}
