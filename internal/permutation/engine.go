package permutation

import (
	"database/sql"
	"errors"
	"log/slog"

	"github.com/sysu-ecnc-dev/schedule-coordinator/backend/internal/domain"
)

// Store 是引擎对持久层的依赖。
// ResolvePermutationRequest 必须在单个事务中完成状态流转和时段交换，
// 并在锁内重新检查 Pending 状态
type Store interface {
	GetTimeSlotByID(id int64) (*domain.TimeSlot, error)
	GetScheduleDayByID(id int64) (*domain.ScheduleDay, error)
	GetParticipant(scheduleID int64, userID int64) (*domain.Participant, error)
	GetRoleByID(id int64) (*domain.Role, error)
	GetFirstOccupant(slotID int64) (*domain.Participant, error)
	CreatePermutationRequest(req *domain.PermutationRequest) error
	GetPermutationRequestByID(id int64) (*domain.PermutationRequest, error)
	ResolvePermutationRequest(id int64, accept bool) error
}

// Dispatcher 接收引擎产生的领域事件。
// 事件在状态流转成功提交之后同步发出，投递失败不回滚业务操作
type Dispatcher interface {
	PermutationRequested(req *domain.PermutationRequest) error
	PermutationResolved(req *domain.PermutationRequest, accepted bool) error
}

// Engine 负责换班请求的校验、状态管理和执行
type Engine struct {
	store      Store
	dispatcher Dispatcher
}

func NewEngine(store Store, dispatcher Dispatcher) *Engine {
	return &Engine{
		store:      store,
		dispatcher: dispatcher,
	}
}

// Create 由请求方发起换班请求：
// 请求方必须是请求时段所属班表的参与者，且其角色允许发起换班；
// 接收方取目标时段上第一个被分配的参与者
func (e *Engine) Create(userID int64, requesterSlotID int64, recipientSlotID int64, message string) (*domain.PermutationRequest, error) {
	requesterSlot, err := e.store.GetTimeSlotByID(requesterSlotID)
	if err != nil {
		return nil, err
	}

	if _, err := e.store.GetTimeSlotByID(recipientSlotID); err != nil {
		return nil, err
	}

	day, err := e.store.GetScheduleDayByID(requesterSlot.ScheduleDayID)
	if err != nil {
		return nil, err
	}

	requester, err := e.store.GetParticipant(day.ScheduleID, userID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, domain.ErrNotAParticipant
		default:
			return nil, err
		}
	}

	role, err := e.store.GetRoleByID(requester.RoleID)
	if err != nil {
		return nil, err
	}
	if !role.CanRequestPermutations {
		return nil, domain.ErrPermissionDenied
	}

	recipient, err := e.store.GetFirstOccupant(recipientSlotID)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, domain.ErrNoRecipient
		default:
			return nil, err
		}
	}

	req := &domain.PermutationRequest{
		RequesterID:     requester.ID,
		RecipientID:     recipient.ID,
		RequesterSlotID: requesterSlotID,
		RecipientSlotID: recipientSlotID,
		Message:         message,
	}
	if err := e.store.CreatePermutationRequest(req); err != nil {
		return nil, err
	}

	// 重新查询以获得通知和响应需要的冗余字段
	detail, err := e.store.GetPermutationRequestByID(req.ID)
	if err != nil {
		return nil, err
	}

	if err := e.dispatcher.PermutationRequested(detail); err != nil {
		slog.Error("换班请求通知发送失败", "requestID", detail.ID, "error", err)
	}

	return detail, nil
}

// Accept 由接收方接受换班请求并执行时段交换
func (e *Engine) Accept(userID int64, requestID int64) (*domain.PermutationRequest, error) {
	return e.resolve(userID, requestID, true)
}

// Reject 由接收方拒绝换班请求，不做任何时段变更
func (e *Engine) Reject(userID int64, requestID int64) (*domain.PermutationRequest, error) {
	return e.resolve(userID, requestID, false)
}

func (e *Engine) resolve(userID int64, requestID int64, accept bool) (*domain.PermutationRequest, error) {
	req, err := e.store.GetPermutationRequestByID(requestID)
	if err != nil {
		return nil, err
	}

	// 只有接收方能处理请求
	if req.RecipientUserID != userID {
		return nil, domain.ErrPermissionDenied
	}

	// 已处理的请求是终态，这里先做一次快速检查，
	// 并发场景由 ResolvePermutationRequest 在锁内的检查兜底
	if req.Status != domain.PermutationPending {
		return nil, domain.ErrInvalidState
	}

	if err := e.store.ResolvePermutationRequest(requestID, accept); err != nil {
		return nil, err
	}

	updated, err := e.store.GetPermutationRequestByID(requestID)
	if err != nil {
		return nil, err
	}

	if err := e.dispatcher.PermutationResolved(updated, accept); err != nil {
		slog.Error("换班结果通知发送失败", "requestID", updated.ID, "error", err)
	}

	return updated, nil
}
