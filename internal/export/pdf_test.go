package export

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sysu-ecnc-dev/schedule-coordinator/backend/internal/domain"
)

func TestRendererRender(t *testing.T) {
	schedule := &domain.Schedule{ID: 1, Name: "前台值班", Duration: 2, IsComplete: true}
	days := []*domain.ScheduleDay{
		{ID: 1, ScheduleID: 1, Date: "2026-09-07"},
		{ID: 2, ScheduleID: 1, Date: "2026-09-08"},
	}
	slotsByDay := map[int64][]*domain.TimeSlot{
		1: {
			{ID: 1, ScheduleDayID: 1, StartTime: "09:00:00", EndTime: "12:00:00", IsAvailable: true, ParticipantIDs: []int64{10}},
			{ID: 2, ScheduleDayID: 1, StartTime: "14:00:00", EndTime: "18:00:00", IsAvailable: false},
		},
		2: {
			{ID: 3, ScheduleDayID: 2, StartTime: "09:00:00", EndTime: "12:00:00", IsAvailable: true, ParticipantIDs: []int64{10, 20}},
		},
	}
	usernames := map[int64]string{10: "zhangwei", 20: "liqiang"}

	data, err := NewRenderer().Render(schedule, days, slotsByDay, usernames, time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.NotEmpty(t, data)
	require.Equal(t, "%PDF", string(data[:4]))
}

func TestRendererRenderEmptySchedule(t *testing.T) {
	schedule := &domain.Schedule{ID: 1, Name: "空班表", Duration: 0, IsComplete: true}

	data, err := NewRenderer().Render(schedule, nil, nil, nil, time.Now())
	require.NoError(t, err)
	require.NotEmpty(t, data)
}

func TestFilename(t *testing.T) {
	schedule := &domain.Schedule{Name: "front desk"}
	generatedAt := time.Date(2026, 9, 1, 12, 30, 0, 0, time.UTC)

	require.Equal(t, "schedule_front_desk_20260901_1230.pdf", Filename(schedule, generatedAt))
}
