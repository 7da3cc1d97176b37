package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sysu-ecnc-dev/schedule-coordinator/backend/internal/domain"
)

type notificationStoreStub struct {
	notifications []*domain.Notification
	err           error
}

func (s *notificationStoreStub) CreateNotification(notification *domain.Notification) error {
	if s.err != nil {
		return s.err
	}
	s.notifications = append(s.notifications, notification)
	return nil
}

type publishedMessage struct {
	channel string
	event   PushEvent
}

type pusherStub struct {
	published []publishedMessage
	err       error
}

func (p *pusherStub) Publish(ctx context.Context, channel string, payload []byte) error {
	if p.err != nil {
		return p.err
	}

	event := PushEvent{}
	if err := json.Unmarshal(payload, &event); err != nil {
		return err
	}
	p.published = append(p.published, publishedMessage{channel: channel, event: event})
	return nil
}

func TestDispatcherPersistsThenPushes(t *testing.T) {
	store := &notificationStoreStub{}
	pusher := &pusherStub{}
	dispatcher := NewDispatcher(store, pusher, time.Second)

	schedule := &domain.Schedule{ID: 1, Name: "前台值班"}
	role := &domain.Role{Name: "成员"}

	err := dispatcher.ScheduleInvitation(42, schedule, "张伟", role)
	require.NoError(t, err)

	require.Len(t, store.notifications, 1)
	require.Equal(t, domain.NotificationScheduleInvitation, store.notifications[0].Type)
	require.Equal(t, int64(42), store.notifications[0].UserID)

	require.Len(t, pusher.published, 1)
	require.Equal(t, "notifications_42", pusher.published[0].channel)
	require.Equal(t, "notification", pusher.published[0].event.Type)
}

func TestDispatcherPushFailureDoesNotPropagate(t *testing.T) {
	store := &notificationStoreStub{}
	pusher := &pusherStub{err: errors.New("redis 不可用")}
	dispatcher := NewDispatcher(store, pusher, time.Second)

	err := dispatcher.ScheduleInvitation(42, &domain.Schedule{ID: 1, Name: "前台值班"}, "张伟", &domain.Role{Name: "成员"})

	// 通知已落库，推送失败只记录日志
	require.NoError(t, err)
	require.Len(t, store.notifications, 1)
}

func TestDispatcherStoreFailurePropagates(t *testing.T) {
	store := &notificationStoreStub{err: errors.New("数据库不可用")}
	pusher := &pusherStub{}
	dispatcher := NewDispatcher(store, pusher, time.Second)

	err := dispatcher.ScheduleInvitation(42, &domain.Schedule{ID: 1, Name: "前台值班"}, "张伟", &domain.Role{Name: "成员"})

	require.Error(t, err)
	require.Empty(t, pusher.published)
}

func TestDispatcherPermutationRequested(t *testing.T) {
	store := &notificationStoreStub{}
	pusher := &pusherStub{}
	dispatcher := NewDispatcher(store, pusher, time.Second)

	req := &domain.PermutationRequest{
		ID:                3,
		Status:            domain.PermutationPending,
		Message:           "帮我换一下",
		RequesterUserID:   100,
		RecipientUserID:   200,
		RequesterUsername: "zhangwei",
		RecipientUsername: "liqiang",
		RequesterSlot:     domain.SlotContext{ScheduleID: 1, Date: "2026-09-07", StartTime: "09:00:00", EndTime: "12:00:00"},
		RecipientSlot:     domain.SlotContext{ScheduleID: 1, Date: "2026-09-08", StartTime: "14:00:00", EndTime: "18:00:00"},
	}

	err := dispatcher.PermutationRequested(req)
	require.NoError(t, err)

	// 通知只发给接收方
	require.Len(t, store.notifications, 1)
	require.Equal(t, int64(200), store.notifications[0].UserID)
	require.Equal(t, domain.NotificationPermutationRequest, store.notifications[0].Type)
	require.Contains(t, store.notifications[0].Actions, "accept")
	require.Contains(t, store.notifications[0].Actions, "reject")

	// 通知推送一条，状态更新双方各一条
	require.Len(t, pusher.published, 3)
	require.Equal(t, "notifications_200", pusher.published[0].channel)
	require.Equal(t, "notification", pusher.published[0].event.Type)
	require.Equal(t, "notifications_100", pusher.published[1].channel)
	require.Equal(t, "permutation_update", pusher.published[1].event.Type)
	require.Equal(t, "notifications_200", pusher.published[2].channel)
	require.Equal(t, "permutation_update", pusher.published[2].event.Type)
}

func TestDispatcherPermutationResolved(t *testing.T) {
	store := &notificationStoreStub{}
	pusher := &pusherStub{}
	dispatcher := NewDispatcher(store, pusher, time.Second)

	req := &domain.PermutationRequest{
		ID:                3,
		Status:            domain.PermutationAccepted,
		RequesterUserID:   100,
		RecipientUserID:   200,
		RecipientUsername: "liqiang",
	}

	err := dispatcher.PermutationResolved(req, true)
	require.NoError(t, err)

	// 处理结果通知请求方
	require.Len(t, store.notifications, 1)
	require.Equal(t, int64(100), store.notifications[0].UserID)
	require.Equal(t, domain.NotificationPermutationResponse, store.notifications[0].Type)
}

func TestDispatcherAlarmTriggered(t *testing.T) {
	store := &notificationStoreStub{}
	pusher := &pusherStub{}
	dispatcher := NewDispatcher(store, pusher, time.Second)

	err := dispatcher.AlarmTriggered(42, &domain.SlotContext{
		ScheduleID:   1,
		ScheduleName: "前台值班",
		Date:         "2026-09-07",
		StartTime:    "09:00:00",
		EndTime:      "12:00:00",
	})
	require.NoError(t, err)

	require.Len(t, store.notifications, 1)
	require.Equal(t, domain.NotificationAlarm, store.notifications[0].Type)
	require.Len(t, pusher.published, 1)
	require.Equal(t, "notifications_42", pusher.published[0].channel)
}
