package domain

import "time"

type PermutationStatus string

const (
	PermutationPending   PermutationStatus = "Pending"
	PermutationAccepted  PermutationStatus = "Accepted"
	PermutationRejected  PermutationStatus = "Rejected"
	PermutationCancelled PermutationStatus = "Cancelled"
)

// SlotContext 是时段在通知和详情展示中用到的冗余信息
type SlotContext struct {
	SlotID       int64  `json:"slotID"`
	ScheduleID   int64  `json:"scheduleID"`
	ScheduleName string `json:"scheduleName"`
	Date         string `json:"date"`
	StartTime    string `json:"startTime"`
	EndTime      string `json:"endTime"`
}

type PermutationRequest struct {
	ID              int64             `json:"id"`
	RequesterID     int64             `json:"requesterID"` // 参与者 ID
	RecipientID     int64             `json:"recipientID"`
	RequesterSlotID int64             `json:"requesterSlotID"`
	RecipientSlotID int64             `json:"recipientSlotID"`
	Message         string            `json:"message"`
	Status          PermutationStatus `json:"status"`
	CreatedAt       time.Time         `json:"createdAt"`
	Version         int32             `json:"-"`

	// 以下为展示用的冗余字段，由查询时联表填充
	RequesterUserID   int64       `json:"requesterUserID"`
	RecipientUserID   int64       `json:"recipientUserID"`
	RequesterUsername string      `json:"requesterUsername"`
	RecipientUsername string      `json:"recipientUsername"`
	RequesterSlot     SlotContext `json:"requesterSlot"`
	RecipientSlot     SlotContext `json:"recipientSlot"`
}
