package domain

import "time"

type SyncStatus string

const (
	SyncStatusSynced   SyncStatus = "synced"
	SyncStatusModified SyncStatus = "modified"
)

type TimeSlot struct {
	ID            int64      `json:"id"`
	ScheduleDayID int64      `json:"scheduleDayID"`
	StartTime     string     `json:"startTime"` // 格式为 15:04:05
	EndTime       string     `json:"endTime"`
	IsAvailable   bool       `json:"isAvailable"`
	HasAlarm      bool       `json:"hasAlarm"`
	AlarmTimes    []int32    `json:"alarmTimes"` // 提前提醒的分钟数
	LastModified  time.Time  `json:"lastModified"`
	SyncStatus    SyncStatus `json:"syncStatus"`
	// 被分配到该时段的参与者，交换语义上通常只有一个
	ParticipantIDs []int64 `json:"participantIDs"`
}
