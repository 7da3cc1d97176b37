package repository

import (
	"context"
	"time"

	"github.com/sysu-ecnc-dev/schedule-coordinator/backend/internal/domain"
)

// CreatePermutationRequest 新建交换请求。
// 同一对时段（按请求方向）只允许存在一个待处理的请求，
// 检查和插入在同一个事务中完成，防止并发重复提交
func (r *Repository) CreatePermutationRequest(req *domain.PermutationRequest) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		SELECT EXISTS (
			SELECT 1 FROM permutation_requests
			WHERE requester_slot_id = $1 AND recipient_slot_id = $2 AND status = $3
		)
	`

	var pendingExists bool
	if err := tx.QueryRowContext(ctx, query, req.RequesterSlotID, req.RecipientSlotID, domain.PermutationPending).Scan(&pendingExists); err != nil {
		return err
	}
	if pendingExists {
		return domain.ErrDuplicateRequest
	}

	query = `
		INSERT INTO permutation_requests (requester_id, recipient_id, requester_slot_id, recipient_slot_id, message)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, status, created_at, version
	`

	params := []any{req.RequesterID, req.RecipientID, req.RequesterSlotID, req.RecipientSlotID, req.Message}
	if err := tx.QueryRowContext(ctx, query, params...).Scan(&req.ID, &req.Status, &req.CreatedAt, &req.Version); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

const permutationDetailQuery = `
	SELECT
		pr.id,
		pr.requester_id,
		pr.recipient_id,
		pr.requester_slot_id,
		pr.recipient_slot_id,
		pr.message,
		pr.status,
		pr.created_at,
		pr.version,
		req_u.id,
		req_u.username,
		rec_u.id,
		rec_u.username,
		req_s.id,
		req_s.name,
		to_char(req_sd.date, 'YYYY-MM-DD'),
		req_ts.start_time,
		req_ts.end_time,
		rec_s.id,
		rec_s.name,
		to_char(rec_sd.date, 'YYYY-MM-DD'),
		rec_ts.start_time,
		rec_ts.end_time
	FROM permutation_requests pr
	JOIN participants req_p ON pr.requester_id = req_p.id
	JOIN users req_u ON req_p.user_id = req_u.id
	JOIN participants rec_p ON pr.recipient_id = rec_p.id
	JOIN users rec_u ON rec_p.user_id = rec_u.id
	JOIN time_slots req_ts ON pr.requester_slot_id = req_ts.id
	JOIN schedule_days req_sd ON req_ts.schedule_day_id = req_sd.id
	JOIN schedules req_s ON req_sd.schedule_id = req_s.id
	JOIN time_slots rec_ts ON pr.recipient_slot_id = rec_ts.id
	JOIN schedule_days rec_sd ON rec_ts.schedule_day_id = rec_sd.id
	JOIN schedules rec_s ON rec_sd.schedule_id = rec_s.id
`

func scanPermutationRequest(row interface{ Scan(dst ...any) error }) (*domain.PermutationRequest, error) {
	req := &domain.PermutationRequest{}
	dst := []any{
		&req.ID,
		&req.RequesterID,
		&req.RecipientID,
		&req.RequesterSlotID,
		&req.RecipientSlotID,
		&req.Message,
		&req.Status,
		&req.CreatedAt,
		&req.Version,
		&req.RequesterUserID,
		&req.RequesterUsername,
		&req.RecipientUserID,
		&req.RecipientUsername,
		&req.RequesterSlot.ScheduleID,
		&req.RequesterSlot.ScheduleName,
		&req.RequesterSlot.Date,
		&req.RequesterSlot.StartTime,
		&req.RequesterSlot.EndTime,
		&req.RecipientSlot.ScheduleID,
		&req.RecipientSlot.ScheduleName,
		&req.RecipientSlot.Date,
		&req.RecipientSlot.StartTime,
		&req.RecipientSlot.EndTime,
	}
	if err := row.Scan(dst...); err != nil {
		return nil, err
	}
	req.RequesterSlot.SlotID = req.RequesterSlotID
	req.RecipientSlot.SlotID = req.RecipientSlotID
	return req, nil
}

func (r *Repository) GetPermutationRequestByID(id int64) (*domain.PermutationRequest, error) {
	query := permutationDetailQuery + ` WHERE pr.id = $1`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	return scanPermutationRequest(r.dbpool.QueryRowContext(ctx, query, id))
}

// GetPermutationRequestsForUser 返回用户作为请求方或接收方的所有交换请求
func (r *Repository) GetPermutationRequestsForUser(userID int64) ([]*domain.PermutationRequest, error) {
	query := permutationDetailQuery + ` WHERE req_u.id = $1 OR rec_u.id = $1 ORDER BY pr.created_at DESC`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reqs := make([]*domain.PermutationRequest, 0)
	for rows.Next() {
		req, err := scanPermutationRequest(rows)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, req)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return reqs, nil
}

// ResolvePermutationRequest 在单个事务中完成状态流转和时段交换：
// 对请求行加锁后重新检查 Pending 状态（并发的 Accept/Reject 只会有一个通过），
// 接受时捕获两个时段当前的参与者集合，先清空再交叉写入。
// 状态更新和交换要么一起提交要么一起回滚
func (r *Repository) ResolvePermutationRequest(id int64, accept bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		SELECT status, requester_slot_id, recipient_slot_id
		FROM permutation_requests WHERE id = $1
		FOR UPDATE
	`

	var status domain.PermutationStatus
	var requesterSlotID, recipientSlotID int64
	if err := tx.QueryRowContext(ctx, query, id).Scan(&status, &requesterSlotID, &recipientSlotID); err != nil {
		return err
	}

	if status != domain.PermutationPending {
		return domain.ErrInvalidState
	}

	newStatus := domain.PermutationRejected
	if accept {
		newStatus = domain.PermutationAccepted

		// 锁住两个时段，保证交换期间没有并发的分配变更。
		// 按 id 顺序加锁避免两个方向相反的交换互相死锁
		lockQuery := `
			SELECT id FROM time_slots WHERE id = ANY($1) ORDER BY id
			FOR UPDATE
		`
		lockRows, err := tx.QueryContext(ctx, lockQuery, []int64{requesterSlotID, recipientSlotID})
		if err != nil {
			return err
		}
		if err := lockRows.Close(); err != nil {
			return err
		}

		// 捕获两边当前的参与者集合
		requesterOccupants, err := loadSlotParticipantIDs(ctx, tx, requesterSlotID)
		if err != nil {
			return err
		}
		recipientOccupants, err := loadSlotParticipantIDs(ctx, tx, recipientSlotID)
		if err != nil {
			return err
		}

		// 清空两个时段后交叉写回
		clearQuery := `DELETE FROM time_slot_participants WHERE time_slot_id = ANY($1)`
		if _, err := tx.ExecContext(ctx, clearQuery, []int64{requesterSlotID, recipientSlotID}); err != nil {
			return err
		}

		insertQuery := `INSERT INTO time_slot_participants (time_slot_id, participant_id) VALUES ($1, $2)`
		for _, participantID := range requesterOccupants {
			if _, err := tx.ExecContext(ctx, insertQuery, recipientSlotID, participantID); err != nil {
				return err
			}
		}
		for _, participantID := range recipientOccupants {
			if _, err := tx.ExecContext(ctx, insertQuery, requesterSlotID, participantID); err != nil {
				return err
			}
		}

		// 交换后的时段需要同步给离线客户端
		touchQuery := `UPDATE time_slots SET last_modified = NOW() WHERE id = ANY($1)`
		if _, err := tx.ExecContext(ctx, touchQuery, []int64{requesterSlotID, recipientSlotID}); err != nil {
			return err
		}
	}

	query = `
		UPDATE permutation_requests SET status = $1, version = version + 1 WHERE id = $2
	`

	if _, err := tx.ExecContext(ctx, query, newStatus, id); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

// GetFirstOccupant 返回时段上第一个被分配的参与者，时段未分配时返回 sql.ErrNoRows
func (r *Repository) GetFirstOccupant(slotID int64) (*domain.Participant, error) {
	query := `
		SELECT p.id, p.schedule_id, p.user_id, p.role_id, p.invitation_accepted, p.joined_at
		FROM time_slot_participants tsp
		JOIN participants p ON tsp.participant_id = p.id
		WHERE tsp.time_slot_id = $1
		ORDER BY p.id
		LIMIT 1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	participant := &domain.Participant{}
	dst := []any{&participant.ID, &participant.ScheduleID, &participant.UserID, &participant.RoleID, &participant.InvitationAccepted, &participant.JoinedAt}
	if err := r.dbpool.QueryRowContext(ctx, query, slotID).Scan(dst...); err != nil {
		return nil, err
	}

	return participant, nil
}
