package notifier

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/sysu-ecnc-dev/schedule-coordinator/backend/internal/domain"
)

// Store 是分发器对持久层的最小依赖
type Store interface {
	CreateNotification(notification *domain.Notification) error
}

// Pusher 是实时推送通道：把消息发布到某个组，
// 组内所有在线的订阅者都会收到
type Pusher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// PushEvent 是推送通道上的统一载荷格式
type PushEvent struct {
	Type string `json:"type"` // notification 或 permutation_update
	Data any    `json:"data"`
}

// Dispatcher 把核心产生的领域事件落库并推送给在线客户端。
// 通知先写数据库再推送，推送失败只记录日志，不影响已持久化的通知
type Dispatcher struct {
	store       Store
	pusher      Pusher
	pushTimeout time.Duration
}

func NewDispatcher(store Store, pusher Pusher, pushTimeout time.Duration) *Dispatcher {
	return &Dispatcher{
		store:       store,
		pusher:      pusher,
		pushTimeout: pushTimeout,
	}
}

func userChannel(userID int64) string {
	return fmt.Sprintf("notifications_%d", userID)
}

func (d *Dispatcher) push(userID int64, event PushEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		slog.Error("无法序列化推送消息", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), d.pushTimeout)
	defer cancel()

	if err := d.pusher.Publish(ctx, userChannel(userID), payload); err != nil {
		slog.Error("推送消息失败", "userID", userID, "error", err)
	}
}

func (d *Dispatcher) notify(notification *domain.Notification) error {
	if err := d.store.CreateNotification(notification); err != nil {
		return err
	}

	d.push(notification.UserID, PushEvent{Type: "notification", Data: notification})

	return nil
}

// ScheduleInvitation 通知被邀请的用户
func (d *Dispatcher) ScheduleInvitation(userID int64, schedule *domain.Schedule, inviterName string, role *domain.Role) error {
	return d.notify(&domain.Notification{
		UserID:  userID,
		Type:    domain.NotificationScheduleInvitation,
		Title:   fmt.Sprintf("邀请加入班表 %s", schedule.Name),
		Message: fmt.Sprintf("%s 邀请您以 %s 的身份加入班表「%s」", inviterName, role.Name, schedule.Name),
		Actions: map[string]domain.NotificationAction{
			"accept":  {Label: "接受", ScheduleID: schedule.ID},
			"decline": {Label: "拒绝", ScheduleID: schedule.ID},
		},
	})
}

// PermutationRequested 通知交换请求的接收方，并向双方推送请求状态
func (d *Dispatcher) PermutationRequested(req *domain.PermutationRequest) error {
	message := fmt.Sprintf(
		"%s 请求交换时段：\n对方的时段：%s %s - %s\n您的时段：%s %s - %s",
		req.RequesterUsername,
		req.RequesterSlot.Date, req.RequesterSlot.StartTime, req.RequesterSlot.EndTime,
		req.RecipientSlot.Date, req.RecipientSlot.StartTime, req.RecipientSlot.EndTime,
	)
	if req.Message != "" {
		message += fmt.Sprintf("\n\n留言：%s", req.Message)
	}

	err := d.notify(&domain.Notification{
		UserID:  req.RecipientUserID,
		Type:    domain.NotificationPermutationRequest,
		Title:   fmt.Sprintf("来自 %s 的换班请求", req.RequesterUsername),
		Message: message,
		Actions: map[string]domain.NotificationAction{
			"accept":        {Label: "接受", PermutationID: req.ID},
			"reject":        {Label: "拒绝", PermutationID: req.ID},
			"view_schedule": {Label: "查看班表", ScheduleID: req.RequesterSlot.ScheduleID},
		},
	})
	if err != nil {
		return err
	}

	d.pushPermutationUpdate(req)

	return nil
}

// PermutationResolved 通知请求方处理结果，并向双方推送最新状态
func (d *Dispatcher) PermutationResolved(req *domain.PermutationRequest, accepted bool) error {
	verdict := "接受"
	if !accepted {
		verdict = "拒绝"
	}

	message := fmt.Sprintf(
		"%s 已%s您的换班请求：\n您的时段：%s %s - %s\n对方的时段：%s %s - %s",
		req.RecipientUsername, verdict,
		req.RequesterSlot.Date, req.RequesterSlot.StartTime, req.RequesterSlot.EndTime,
		req.RecipientSlot.Date, req.RecipientSlot.StartTime, req.RecipientSlot.EndTime,
	)

	err := d.notify(&domain.Notification{
		UserID:  req.RequesterUserID,
		Type:    domain.NotificationPermutationResponse,
		Title:   fmt.Sprintf("%s 已%s换班请求", req.RecipientUsername, verdict),
		Message: message,
		Actions: map[string]domain.NotificationAction{
			"view_schedule": {Label: "查看班表", ScheduleID: req.RequesterSlot.ScheduleID},
		},
	})
	if err != nil {
		return err
	}

	d.pushPermutationUpdate(req)

	return nil
}

func (d *Dispatcher) pushPermutationUpdate(req *domain.PermutationRequest) {
	event := PushEvent{Type: "permutation_update", Data: req}
	d.push(req.RequesterUserID, event)
	d.push(req.RecipientUserID, event)
}

// AlarmTriggered 通知用户时段即将开始
func (d *Dispatcher) AlarmTriggered(userID int64, slot *domain.SlotContext) error {
	return d.notify(&domain.Notification{
		UserID:  userID,
		Type:    domain.NotificationAlarm,
		Title:   fmt.Sprintf("提醒：%s 的日程即将开始", slot.StartTime),
		Message: fmt.Sprintf("您在班表「%s」中 %s 的 %s 至 %s 有安排", slot.ScheduleName, slot.Date, slot.StartTime, slot.EndTime),
		Actions: map[string]domain.NotificationAction{
			"view_schedule": {Label: "查看班表", ScheduleID: slot.ScheduleID},
		},
	})
}
