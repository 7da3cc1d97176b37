package syncer

import (
	"database/sql"
	"errors"
	"time"

	"github.com/sysu-ecnc-dev/schedule-coordinator/backend/internal/domain"
)

// Store 是协调器对持久层的依赖。
// ApplySyncEdit 必须独立应用单条修改并在行锁内做过期检查
type Store interface {
	ApplySyncEdit(edit *domain.SyncEdit) (*domain.TimeSlot, error)
	TouchLastSyncedAt(userID int64) (time.Time, error)
	GetTimeSlotsForUser(userID int64) ([]*domain.TimeSlot, error)
	GetTimeSlotsForUserModifiedSince(userID int64, since time.Time) ([]*domain.TimeSlot, error)
}

// Reconciler 把可能离线的客户端提交的时段修改合并进服务端状态
type Reconciler struct {
	store Store
}

func NewReconciler(store Store) *Reconciler {
	return &Reconciler{store: store}
}

// Upload 逐条处理客户端上传的修改，单条失败不影响其余条目。
// 服务端的修改时间严格新于客户端声明的时间戳时该条会被拒绝，
// 客户端应根据错误列表单独重新拉取对应时段，而不是整体重试。
// 不管有没有失败项，处理完后都把用户的同步水位线推进到当前时间，
// 避免下次同步重复拉取这一批刚推送过的时段
func (r *Reconciler) Upload(userID int64, edits []domain.SyncEdit) (*domain.SyncResult, error) {
	result := &domain.SyncResult{
		Updated: make([]*domain.TimeSlot, 0, len(edits)),
		Errors:  make([]domain.SyncError, 0),
	}

	for i := range edits {
		slot, err := r.store.ApplySyncEdit(&edits[i])
		if err != nil {
			reason := ""
			switch {
			case errors.Is(err, sql.ErrNoRows):
				reason = "时段不存在"
			case errors.Is(err, domain.ErrStaleEdit):
				reason = domain.ErrStaleEdit.Error()
			default:
				reason = "无法应用该修改"
			}
			result.Errors = append(result.Errors, domain.SyncError{
				SlotID: edits[i].SlotID,
				Reason: reason,
			})
			continue
		}
		result.Updated = append(result.Updated, slot)
	}

	result.UpdatedCount = len(result.Updated)
	result.ErrorCount = len(result.Errors)

	syncedAt, err := r.store.TouchLastSyncedAt(userID)
	if err != nil {
		return nil, err
	}
	result.LastSyncedAt = syncedAt

	return result, nil
}

// Download 返回需要下发给客户端的时段。
// since 为空表示首次同步，返回用户参与的所有班表的全部时段；
// 否则只返回修改时间严格晚于 since 的时段。这是纯读操作
func (r *Reconciler) Download(userID int64, since *time.Time) ([]*domain.TimeSlot, error) {
	if since == nil {
		return r.store.GetTimeSlotsForUser(userID)
	}
	return r.store.GetTimeSlotsForUserModifiedSince(userID, *since)
}
