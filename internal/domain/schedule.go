package domain

import (
	"strconv"
	"time"
)

type Schedule struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	OwnerID     int64  `json:"ownerID"`
	Duration    int32  `json:"duration"` // 以天为单位
	IsComplete  bool   `json:"isComplete"`
	// 每个参与者至少要选择的天数，为空时使用自动计算的值
	MinDaysSelection *int32 `json:"minDaysSelection"`
	// 针对单个用户的最少天数要求 {userID: minDays}
	UserSpecificMinDays map[string]int32 `json:"userSpecificMinDays"`
	CreatedAt           time.Time        `json:"createdAt"`
	UpdatedAt           time.Time        `json:"updatedAt"`
	Version             int32            `json:"-"`
}

func (s *Schedule) ToWeeks() int32 {
	return s.Duration / 7
}

func (s *Schedule) ToMonths() int32 {
	return s.Duration / 30
}

func (s *Schedule) ToYears() int32 {
	return s.Duration / 365
}

// MinDaysForUser 解析某个用户的最少选择天数要求：
// 用户级覆盖 > 班表全局配置 > 根据时长和参与人数自动计算
func (s *Schedule) MinDaysForUser(userID int64, participantCount int32) int32 {
	if minDays, exists := s.UserSpecificMinDays[strconv.FormatInt(userID, 10)]; exists {
		return minDays
	}
	if s.MinDaysSelection != nil && *s.MinDaysSelection > 0 {
		return *s.MinDaysSelection
	}
	if participantCount > 0 {
		return max(1, s.Duration/(participantCount*2))
	}
	return 1
}

// DefaultMinDays 是另一套默认值计算：时长的 10% 平摊到每个参与者，至少 1 天。
// 注意这个公式和 MinDaysForUser 的自动计算并不一致，
// 两者各自有调用方，在产品上澄清之前不要合并。
func DefaultMinDays(schedule *Schedule, participantCount int32) int32 {
	if participantCount == 0 {
		return 1
	}
	return max(1, int32(float64(schedule.Duration)*0.1/float64(participantCount)))
}

type Role struct {
	ID                     int64  `json:"id"`
	ScheduleID             int64  `json:"scheduleID"`
	Name                   string `json:"name"`
	Description            string `json:"description"`
	CanEditSchedule        bool   `json:"canEditSchedule"`
	CanInviteUsers         bool   `json:"canInviteUsers"`
	CanRequestPermutations bool   `json:"canRequestPermutations"`
	Version                int32  `json:"-"`
}

type Participant struct {
	ID                 int64     `json:"id"`
	ScheduleID         int64     `json:"scheduleID"`
	UserID             int64     `json:"userID"`
	RoleID             int64     `json:"roleID"`
	InvitationAccepted bool      `json:"invitationAccepted"`
	JoinedAt           time.Time `json:"joinedAt"`
}

type ScheduleDay struct {
	ID         int64  `json:"id"`
	ScheduleID int64  `json:"scheduleID"`
	Date       string `json:"date"` // 格式为 2006-01-02
}
