package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMinDaysForUserOverrideChain(t *testing.T) {
	global := int32(5)
	schedule := &Schedule{
		Duration:         30,
		MinDaysSelection: &global,
		UserSpecificMinDays: map[string]int32{
			"42": 2,
		},
	}

	// 用户级覆盖优先
	require.Equal(t, int32(2), schedule.MinDaysForUser(42, 10))

	// 没有覆盖时使用全局配置
	require.Equal(t, int32(5), schedule.MinDaysForUser(7, 10))
}

func TestMinDaysForUserAutoCalculation(t *testing.T) {
	schedule := &Schedule{Duration: 30}

	// duration / (participants * 2)
	require.Equal(t, int32(3), schedule.MinDaysForUser(7, 5))

	// 参与者很多时至少为 1
	require.Equal(t, int32(1), schedule.MinDaysForUser(7, 100))

	// 没有参与者时为 1
	require.Equal(t, int32(1), schedule.MinDaysForUser(7, 0))
}

func TestDefaultMinDays(t *testing.T) {
	schedule := &Schedule{Duration: 100}

	// duration * 0.1 / participants
	require.Equal(t, int32(5), DefaultMinDays(schedule, 2))
	require.Equal(t, int32(1), DefaultMinDays(schedule, 50))
	require.Equal(t, int32(1), DefaultMinDays(schedule, 0))
}

// 两套公式对同一输入可能给出不同的结果，确认它们没有被意外合并
func TestMinDaysStrategiesDiffer(t *testing.T) {
	schedule := &Schedule{Duration: 30}

	auto := schedule.MinDaysForUser(7, 3)
	fallback := DefaultMinDays(schedule, 3)

	require.Equal(t, int32(5), auto)
	require.Equal(t, int32(1), fallback)
}

func TestScheduleDurationProjections(t *testing.T) {
	schedule := &Schedule{Duration: 365}

	require.Equal(t, int32(52), schedule.ToWeeks())
	require.Equal(t, int32(12), schedule.ToMonths())
	require.Equal(t, int32(1), schedule.ToYears())
}
