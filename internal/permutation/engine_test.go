package permutation

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sysu-ecnc-dev/schedule-coordinator/backend/internal/domain"
)

type engineStoreStub struct {
	slots        map[int64]*domain.TimeSlot
	days         map[int64]*domain.ScheduleDay
	participants map[int64]*domain.Participant // 以 (scheduleID, userID) 展开为 participant，按 userID 索引
	roles        map[int64]*domain.Role
	occupants    map[int64][]int64 // slotID -> participantIDs
	requests     map[int64]*domain.PermutationRequest
	nextID       int64
}

func newEngineStoreStub() *engineStoreStub {
	return &engineStoreStub{
		slots:        make(map[int64]*domain.TimeSlot),
		days:         make(map[int64]*domain.ScheduleDay),
		participants: make(map[int64]*domain.Participant),
		roles:        make(map[int64]*domain.Role),
		occupants:    make(map[int64][]int64),
		requests:     make(map[int64]*domain.PermutationRequest),
		nextID:       1,
	}
}

func (s *engineStoreStub) GetTimeSlotByID(id int64) (*domain.TimeSlot, error) {
	if slot, ok := s.slots[id]; ok {
		return slot, nil
	}
	return nil, sql.ErrNoRows
}

func (s *engineStoreStub) GetScheduleDayByID(id int64) (*domain.ScheduleDay, error) {
	if day, ok := s.days[id]; ok {
		return day, nil
	}
	return nil, sql.ErrNoRows
}

func (s *engineStoreStub) GetParticipant(scheduleID int64, userID int64) (*domain.Participant, error) {
	for _, p := range s.participants {
		if p.ScheduleID == scheduleID && p.UserID == userID {
			return p, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *engineStoreStub) GetRoleByID(id int64) (*domain.Role, error) {
	if role, ok := s.roles[id]; ok {
		return role, nil
	}
	return nil, sql.ErrNoRows
}

func (s *engineStoreStub) GetFirstOccupant(slotID int64) (*domain.Participant, error) {
	ids := s.occupants[slotID]
	if len(ids) == 0 {
		return nil, sql.ErrNoRows
	}
	return s.participants[ids[0]], nil
}

func (s *engineStoreStub) CreatePermutationRequest(req *domain.PermutationRequest) error {
	for _, existing := range s.requests {
		if existing.Status == domain.PermutationPending &&
			existing.RequesterSlotID == req.RequesterSlotID &&
			existing.RecipientSlotID == req.RecipientSlotID {
			return domain.ErrDuplicateRequest
		}
	}

	req.ID = s.nextID
	s.nextID++
	req.Status = domain.PermutationPending
	s.requests[req.ID] = req
	return nil
}

func (s *engineStoreStub) GetPermutationRequestByID(id int64) (*domain.PermutationRequest, error) {
	req, ok := s.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}

	copy := *req
	copy.RequesterUserID = s.participants[req.RequesterID].UserID
	copy.RecipientUserID = s.participants[req.RecipientID].UserID
	return &copy, nil
}

func (s *engineStoreStub) ResolvePermutationRequest(id int64, accept bool) error {
	req, ok := s.requests[id]
	if !ok {
		return sql.ErrNoRows
	}
	if req.Status != domain.PermutationPending {
		return domain.ErrInvalidState
	}

	if accept {
		requesterOccupants := s.occupants[req.RequesterSlotID]
		recipientOccupants := s.occupants[req.RecipientSlotID]
		s.occupants[req.RequesterSlotID] = recipientOccupants
		s.occupants[req.RecipientSlotID] = requesterOccupants
		req.Status = domain.PermutationAccepted
	} else {
		req.Status = domain.PermutationRejected
	}
	return nil
}

type dispatcherStub struct {
	requested []*domain.PermutationRequest
	resolved  []*domain.PermutationRequest
	accepted  []bool
}

func (d *dispatcherStub) PermutationRequested(req *domain.PermutationRequest) error {
	d.requested = append(d.requested, req)
	return nil
}

func (d *dispatcherStub) PermutationResolved(req *domain.PermutationRequest, accepted bool) error {
	d.resolved = append(d.resolved, req)
	d.accepted = append(d.accepted, accepted)
	return nil
}

// 两个参与者各占一个时段的基本场景
func newSwapFixture() *engineStoreStub {
	store := newEngineStoreStub()

	store.roles[1] = &domain.Role{ID: 1, ScheduleID: 1, Name: "成员", CanRequestPermutations: true}
	store.roles[2] = &domain.Role{ID: 2, ScheduleID: 1, Name: "旁观者"}

	store.participants[10] = &domain.Participant{ID: 10, ScheduleID: 1, UserID: 100, RoleID: 1}
	store.participants[20] = &domain.Participant{ID: 20, ScheduleID: 1, UserID: 200, RoleID: 1}

	store.days[1] = &domain.ScheduleDay{ID: 1, ScheduleID: 1, Date: "2026-09-07"}
	store.slots[1] = &domain.TimeSlot{ID: 1, ScheduleDayID: 1, StartTime: "09:00:00", EndTime: "12:00:00"}
	store.slots[2] = &domain.TimeSlot{ID: 2, ScheduleDayID: 1, StartTime: "14:00:00", EndTime: "18:00:00"}

	store.occupants[1] = []int64{10}
	store.occupants[2] = []int64{20}

	return store
}

func TestEngineCreate(t *testing.T) {
	store := newSwapFixture()
	dispatcher := &dispatcherStub{}
	engine := NewEngine(store, dispatcher)

	req, err := engine.Create(100, 1, 2, "帮我换一下")
	require.NoError(t, err)
	require.Equal(t, domain.PermutationPending, req.Status)
	require.Equal(t, int64(100), req.RequesterUserID)
	require.Equal(t, int64(200), req.RecipientUserID)
	require.Len(t, dispatcher.requested, 1)
}

func TestEngineCreateNotAParticipant(t *testing.T) {
	store := newSwapFixture()
	engine := NewEngine(store, &dispatcherStub{})

	_, err := engine.Create(999, 1, 2, "")
	require.ErrorIs(t, err, domain.ErrNotAParticipant)
}

func TestEngineCreatePermissionDenied(t *testing.T) {
	store := newSwapFixture()
	store.participants[10].RoleID = 2 // 旁观者不能发起换班
	engine := NewEngine(store, &dispatcherStub{})

	_, err := engine.Create(100, 1, 2, "")
	require.ErrorIs(t, err, domain.ErrPermissionDenied)
}

func TestEngineCreateNoRecipient(t *testing.T) {
	store := newSwapFixture()
	store.occupants[2] = nil
	engine := NewEngine(store, &dispatcherStub{})

	_, err := engine.Create(100, 1, 2, "")
	require.ErrorIs(t, err, domain.ErrNoRecipient)
}

func TestEngineCreateDuplicatePending(t *testing.T) {
	store := newSwapFixture()
	engine := NewEngine(store, &dispatcherStub{})

	_, err := engine.Create(100, 1, 2, "")
	require.NoError(t, err)

	_, err = engine.Create(100, 1, 2, "再发一次")
	require.ErrorIs(t, err, domain.ErrDuplicateRequest)
}

func TestEngineAcceptSwapsOccupants(t *testing.T) {
	store := newSwapFixture()
	dispatcher := &dispatcherStub{}
	engine := NewEngine(store, dispatcher)

	created, err := engine.Create(100, 1, 2, "")
	require.NoError(t, err)

	// 只有接收方能接受
	updated, err := engine.Accept(200, created.ID)
	require.NoError(t, err)
	require.Equal(t, domain.PermutationAccepted, updated.Status)

	// 双方时段的占用互换
	require.Equal(t, []int64{20}, store.occupants[1])
	require.Equal(t, []int64{10}, store.occupants[2])

	require.Len(t, dispatcher.resolved, 1)
	require.True(t, dispatcher.accepted[0])
}

func TestEngineRejectKeepsOccupants(t *testing.T) {
	store := newSwapFixture()
	dispatcher := &dispatcherStub{}
	engine := NewEngine(store, dispatcher)

	created, err := engine.Create(100, 1, 2, "")
	require.NoError(t, err)

	updated, err := engine.Reject(200, created.ID)
	require.NoError(t, err)
	require.Equal(t, domain.PermutationRejected, updated.Status)

	// 拒绝不影响时段分配
	require.Equal(t, []int64{10}, store.occupants[1])
	require.Equal(t, []int64{20}, store.occupants[2])

	require.Len(t, dispatcher.resolved, 1)
	require.False(t, dispatcher.accepted[0])
}

func TestEngineResolveOnlyRecipient(t *testing.T) {
	store := newSwapFixture()
	engine := NewEngine(store, &dispatcherStub{})

	created, err := engine.Create(100, 1, 2, "")
	require.NoError(t, err)

	// 请求方自己不能接受
	_, err = engine.Accept(100, created.ID)
	require.ErrorIs(t, err, domain.ErrPermissionDenied)
}

func TestEngineResolveAlreadyHandled(t *testing.T) {
	store := newSwapFixture()
	engine := NewEngine(store, &dispatcherStub{})

	created, err := engine.Create(100, 1, 2, "")
	require.NoError(t, err)

	_, err = engine.Reject(200, created.ID)
	require.NoError(t, err)

	// 已处理的请求是终态
	_, err = engine.Accept(200, created.ID)
	require.ErrorIs(t, err, domain.ErrInvalidState)
}
