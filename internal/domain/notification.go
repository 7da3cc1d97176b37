package domain

import "time"

type NotificationType string

const (
	NotificationScheduleInvitation  NotificationType = "schedule_invitation"
	NotificationPermutationRequest  NotificationType = "permutation_request"
	NotificationPermutationResponse NotificationType = "permutation_response"
	NotificationAlarm               NotificationType = "alarm"
)

// NotificationAction 是通知中附带的可执行操作，供前端直接渲染按钮
type NotificationAction struct {
	Label         string `json:"label"`
	ScheduleID    int64  `json:"scheduleID,omitempty"`
	PermutationID int64  `json:"permutationID,omitempty"`
}

type Notification struct {
	ID        int64                         `json:"id"`
	UserID    int64                         `json:"userID"`
	Type      NotificationType              `json:"type"`
	Title     string                        `json:"title"`
	Message   string                        `json:"message"`
	Actions   map[string]NotificationAction `json:"actions"`
	IsRead    bool                          `json:"isRead"`
	Delivered bool                          `json:"delivered"`
	CreatedAt time.Time                     `json:"createdAt"`
}

type ScheduledAlarm struct {
	ID            int64     `json:"id"`
	UserID        int64     `json:"userID"`
	TimeSlotID    int64     `json:"timeSlotID"`
	MinutesBefore int32     `json:"minutesBefore"`
	ScheduledTime time.Time `json:"scheduledTime"`
	Triggered     bool      `json:"triggered"`
}
