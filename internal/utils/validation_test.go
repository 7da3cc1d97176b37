package utils

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sysu-ecnc-dev/schedule-coordinator/backend/internal/domain"
)

func TestValidateTimeSlotWindows(t *testing.T) {
	valid := []*domain.TimeSlot{
		{StartTime: "09:00:00", EndTime: "12:00:00"},
		{StartTime: "12:00:00", EndTime: "14:00:00"}, // 首尾相接不算冲突
		{StartTime: "19:00:00", EndTime: "21:00:00"},
	}
	require.NoError(t, ValidateTimeSlotWindows(valid))

	reversed := []*domain.TimeSlot{
		{StartTime: "12:00:00", EndTime: "09:00:00"},
	}
	require.Error(t, ValidateTimeSlotWindows(reversed))

	overlapping := []*domain.TimeSlot{
		{StartTime: "09:00:00", EndTime: "12:00:00"},
		{StartTime: "11:00:00", EndTime: "14:00:00"},
	}
	require.Error(t, ValidateTimeSlotWindows(overlapping))

	malformed := []*domain.TimeSlot{
		{StartTime: "9am", EndTime: "12:00:00"},
	}
	require.Error(t, ValidateTimeSlotWindows(malformed))
}
