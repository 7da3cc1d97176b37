package domain

import "time"

// SyncEdit 是客户端上传的单个时段修改，客户端可能长时间离线，
// 因此每一项都带着它所基于的服务端修改时间
type SyncEdit struct {
	SlotID             int64      `json:"slotID"`
	IsAvailable        bool       `json:"isAvailable"`
	HasAlarm           bool       `json:"hasAlarm"`
	AlarmTimes         []int32    `json:"alarmTimes"`
	ClientLastModified time.Time  `json:"lastModified"`
	ClientSyncStatus   SyncStatus `json:"syncStatus"`
}

type SyncError struct {
	SlotID int64  `json:"slotID"`
	Reason string `json:"reason"`
}

type SyncResult struct {
	UpdatedCount int         `json:"updatedCount"`
	ErrorCount   int         `json:"errorCount"`
	Updated      []*TimeSlot `json:"updated"`
	Errors       []SyncError `json:"errors"`
	LastSyncedAt time.Time   `json:"lastSyncedAt"`
}
