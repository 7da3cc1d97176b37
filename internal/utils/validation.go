package utils

import (
	"fmt"
	"time"

	"github.com/sysu-ecnc-dev/schedule-coordinator/backend/internal/domain"
)

// ValidateTimeSlotWindows 检查一天内的时段是否合法：
// 每个时段的结束时间必须晚于开始时间，且时段之间不能重叠
func ValidateTimeSlotWindows(slots []*domain.TimeSlot) error {
	// 检查每一个时段的结束时间是不是都大于开始时间
	for id, slot := range slots {
		startTime, err := time.Parse("15:04:05", slot.StartTime)
		if err != nil {
			return fmt.Errorf("时段 %d 的开始时间格式错误", id)
		}
		endTime, err := time.Parse("15:04:05", slot.EndTime)
		if err != nil {
			return fmt.Errorf("时段 %d 的结束时间格式错误", id)
		}
		if endTime.Before(startTime) {
			return fmt.Errorf("时段 %d 的结束时间不能小于开始时间", id)
		}
	}

	// 检查各个时段之间的时间是否冲突
	for i := 0; i < len(slots); i++ {
		iStartTime, _ := time.Parse("15:04:05", slots[i].StartTime)
		iEndTime, _ := time.Parse("15:04:05", slots[i].EndTime)

		for j := i + 1; j < len(slots); j++ {
			jStartTime, _ := time.Parse("15:04:05", slots[j].StartTime)
			jEndTime, _ := time.Parse("15:04:05", slots[j].EndTime)

			if !(jStartTime.After(iEndTime) || jStartTime.Equal(iEndTime) || iStartTime.After(jEndTime) || iStartTime.Equal(jEndTime)) {
				return fmt.Errorf("时段 %d 和时段 %d 之间的时间冲突", i, j)
			}
		}
	}
	return nil
}
