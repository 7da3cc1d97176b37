package syncer

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sysu-ecnc-dev/schedule-coordinator/backend/internal/domain"
)

type syncStoreStub struct {
	slots        map[int64]*domain.TimeSlot
	lastSyncedAt map[int64]time.Time
	now          time.Time
}

func newSyncStoreStub(now time.Time) *syncStoreStub {
	return &syncStoreStub{
		slots:        make(map[int64]*domain.TimeSlot),
		lastSyncedAt: make(map[int64]time.Time),
		now:          now,
	}
}

func (s *syncStoreStub) ApplySyncEdit(edit *domain.SyncEdit) (*domain.TimeSlot, error) {
	slot, ok := s.slots[edit.SlotID]
	if !ok {
		return nil, sql.ErrNoRows
	}

	// 服务端严格更新时拒绝，时间相同视为无冲突
	if slot.LastModified.After(edit.ClientLastModified) {
		return nil, domain.ErrStaleEdit
	}

	slot.IsAvailable = edit.IsAvailable
	slot.HasAlarm = edit.HasAlarm
	slot.AlarmTimes = edit.AlarmTimes
	slot.SyncStatus = domain.SyncStatusModified
	slot.LastModified = s.now
	return slot, nil
}

func (s *syncStoreStub) TouchLastSyncedAt(userID int64) (time.Time, error) {
	s.lastSyncedAt[userID] = s.now
	return s.now, nil
}

func (s *syncStoreStub) GetTimeSlotsForUser(userID int64) ([]*domain.TimeSlot, error) {
	result := make([]*domain.TimeSlot, 0, len(s.slots))
	for _, slot := range s.slots {
		result = append(result, slot)
	}
	return result, nil
}

func (s *syncStoreStub) GetTimeSlotsForUserModifiedSince(userID int64, since time.Time) ([]*domain.TimeSlot, error) {
	result := make([]*domain.TimeSlot, 0)
	for _, slot := range s.slots {
		if slot.LastModified.After(since) {
			result = append(result, slot)
		}
	}
	return result, nil
}

func TestReconcilerUploadMixedBatch(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	base := now.Add(-time.Hour)

	store := newSyncStoreStub(now)
	store.slots[1] = &domain.TimeSlot{ID: 1, LastModified: base, SyncStatus: domain.SyncStatusSynced}
	store.slots[2] = &domain.TimeSlot{ID: 2, LastModified: now.Add(-time.Minute), SyncStatus: domain.SyncStatusSynced}

	reconciler := NewReconciler(store)

	edits := []domain.SyncEdit{
		{SlotID: 1, IsAvailable: false, ClientLastModified: base},                // 正常应用
		{SlotID: 2, IsAvailable: false, ClientLastModified: now.Add(-time.Hour)}, // 服务端更新，拒绝
		{SlotID: 404, ClientLastModified: base},                                  // 不存在
	}

	result, err := reconciler.Upload(7, edits)
	require.NoError(t, err)

	require.Equal(t, 1, result.UpdatedCount)
	require.Equal(t, 2, result.ErrorCount)
	require.Equal(t, int64(1), result.Updated[0].ID)
	require.Equal(t, domain.SyncStatusModified, result.Updated[0].SyncStatus)

	require.Equal(t, int64(2), result.Errors[0].SlotID)
	require.Equal(t, domain.ErrStaleEdit.Error(), result.Errors[0].Reason)
	require.Equal(t, int64(404), result.Errors[1].SlotID)
	require.Equal(t, "时段不存在", result.Errors[1].Reason)

	// 有失败项也推进水位线
	require.Equal(t, now, result.LastSyncedAt)
	require.Equal(t, now, store.lastSyncedAt[7])
}

func TestReconcilerUploadAcceptsEqualTimestamps(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	base := now.Add(-time.Hour)

	store := newSyncStoreStub(now)
	store.slots[1] = &domain.TimeSlot{ID: 1, LastModified: base, SyncStatus: domain.SyncStatusSynced}

	reconciler := NewReconciler(store)

	// 时间戳完全相同，不算冲突
	result, err := reconciler.Upload(7, []domain.SyncEdit{
		{SlotID: 1, IsAvailable: false, ClientLastModified: base},
	})
	require.NoError(t, err)
	require.Equal(t, 1, result.UpdatedCount)
	require.Equal(t, 0, result.ErrorCount)
}

func TestReconcilerUploadEmptyBatchStillAdvancesWatermark(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	store := newSyncStoreStub(now)

	reconciler := NewReconciler(store)

	result, err := reconciler.Upload(7, nil)
	require.NoError(t, err)
	require.Equal(t, 0, result.UpdatedCount)
	require.Equal(t, 0, result.ErrorCount)
	require.Equal(t, now, store.lastSyncedAt[7])
}

func TestReconcilerDownload(t *testing.T) {
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	store := newSyncStoreStub(now)
	store.slots[1] = &domain.TimeSlot{ID: 1, LastModified: now.Add(-2 * time.Hour)}
	store.slots[2] = &domain.TimeSlot{ID: 2, LastModified: now.Add(-time.Minute)}

	reconciler := NewReconciler(store)

	// 首次同步返回全量数据
	all, err := reconciler.Download(7, nil)
	require.NoError(t, err)
	require.Len(t, all, 2)

	// 增量同步只返回严格晚于水位线的时段
	since := now.Add(-time.Hour)
	incremental, err := reconciler.Download(7, &since)
	require.NoError(t, err)
	require.Len(t, incremental, 1)
	require.Equal(t, int64(2), incremental[0].ID)

	// 水位线恰好等于修改时间的不重复下发
	exact := now.Add(-time.Minute)
	none, err := reconciler.Download(7, &exact)
	require.NoError(t, err)
	require.Empty(t, none)
}
