package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/sysu-ecnc-dev/schedule-coordinator/backend/internal/domain"
)

type rowQueryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

func loadSlotParticipantIDs(ctx context.Context, q rowQueryer, slotID int64) ([]int64, error) {
	query := `
		SELECT participant_id FROM time_slot_participants WHERE time_slot_id = $1 ORDER BY participant_id
	`

	rows, err := q.QueryContext(ctx, query, slotID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}

func (r *Repository) CreateTimeSlot(slot *domain.TimeSlot) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	alarmTimesJSON, err := json.Marshal(slot.AlarmTimes)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO time_slots (schedule_day_id, start_time, end_time, is_available, has_alarm, alarm_times)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, last_modified, sync_status
	`

	params := []any{slot.ScheduleDayID, slot.StartTime, slot.EndTime, slot.IsAvailable, slot.HasAlarm, alarmTimesJSON}
	if err := r.dbpool.QueryRowContext(ctx, query, params...).Scan(&slot.ID, &slot.LastModified, &slot.SyncStatus); err != nil {
		return err
	}

	slot.ParticipantIDs = make([]int64, 0)

	return nil
}

func (r *Repository) GetTimeSlotByID(id int64) (*domain.TimeSlot, error) {
	query := `
		SELECT schedule_day_id, start_time, end_time, is_available, has_alarm, alarm_times, last_modified, sync_status
		FROM time_slots WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	slot := &domain.TimeSlot{
		ID: id,
	}

	var alarmTimesJSON []byte
	dst := []any{&slot.ScheduleDayID, &slot.StartTime, &slot.EndTime, &slot.IsAvailable, &slot.HasAlarm, &alarmTimesJSON, &slot.LastModified, &slot.SyncStatus}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(alarmTimesJSON, &slot.AlarmTimes); err != nil {
		return nil, err
	}

	participantIDs, err := loadSlotParticipantIDs(ctx, r.dbpool, id)
	if err != nil {
		return nil, err
	}
	slot.ParticipantIDs = participantIDs

	return slot, nil
}

func (r *Repository) GetTimeSlotsByScheduleDayID(dayID int64) ([]*domain.TimeSlot, error) {
	query := `
		SELECT id, start_time, end_time, is_available, has_alarm, alarm_times, last_modified, sync_status
		FROM time_slots WHERE schedule_day_id = $1 ORDER BY start_time
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, dayID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	slots := make([]*domain.TimeSlot, 0)
	for rows.Next() {
		slot := &domain.TimeSlot{ScheduleDayID: dayID}
		var alarmTimesJSON []byte
		dst := []any{&slot.ID, &slot.StartTime, &slot.EndTime, &slot.IsAvailable, &slot.HasAlarm, &alarmTimesJSON, &slot.LastModified, &slot.SyncStatus}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(alarmTimesJSON, &slot.AlarmTimes); err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	// 单独填充每个时段的参与者
	for _, slot := range slots {
		participantIDs, err := loadSlotParticipantIDs(ctx, r.dbpool, slot.ID)
		if err != nil {
			return nil, err
		}
		slot.ParticipantIDs = participantIDs
	}

	return slots, nil
}

func (r *Repository) AssignParticipantToSlot(slotID int64, participantID int64) error {
	query := `
		INSERT INTO time_slot_participants (time_slot_id, participant_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	if _, err := r.dbpool.ExecContext(ctx, query, slotID, participantID); err != nil {
		return err
	}

	return nil
}

func (r *Repository) UnassignParticipantFromSlot(slotID int64, participantID int64) error {
	query := `
		DELETE FROM time_slot_participants WHERE time_slot_id = $1 AND participant_id = $2
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	if _, err := r.dbpool.ExecContext(ctx, query, slotID, participantID); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetSlotOccupants(slotID int64) ([]int64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	return loadSlotParticipantIDs(ctx, r.dbpool, slotID)
}

// CountDistinctDaysSelected 统计参与者被分配的时段覆盖了多少个不同的日期，
// 用于校验最少选择天数要求
func (r *Repository) CountDistinctDaysSelected(participantID int64) (int32, error) {
	query := `
		SELECT COUNT(DISTINCT sd.date)
		FROM time_slot_participants tsp
		JOIN time_slots ts ON tsp.time_slot_id = ts.id
		JOIN schedule_days sd ON ts.schedule_day_id = sd.id
		WHERE tsp.participant_id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	var count int32
	if err := r.dbpool.QueryRowContext(ctx, query, participantID).Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}

// GetSlotContext 获取时段所属的日期和班表信息，通知和请求详情都需要这些冗余数据
func (r *Repository) GetSlotContext(slotID int64) (*domain.SlotContext, error) {
	query := `
		SELECT s.id, s.name, to_char(sd.date, 'YYYY-MM-DD'), ts.start_time, ts.end_time
		FROM time_slots ts
		JOIN schedule_days sd ON ts.schedule_day_id = sd.id
		JOIN schedules s ON sd.schedule_id = s.id
		WHERE ts.id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	sc := &domain.SlotContext{
		SlotID: slotID,
	}

	dst := []any{&sc.ScheduleID, &sc.ScheduleName, &sc.Date, &sc.StartTime, &sc.EndTime}
	if err := r.dbpool.QueryRowContext(ctx, query, slotID).Scan(dst...); err != nil {
		return nil, err
	}

	return sc, nil
}

// ApplySyncEdit 在单个事务中应用一条客户端同步修改。
// 对时段行加锁后做过期检查：服务端的 last_modified 严格新于客户端声明的时间戳时，
// 拒绝这条修改并保持服务端状态不变
func (r *Repository) ApplySyncEdit(edit *domain.SyncEdit) (*domain.TimeSlot, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		SELECT schedule_day_id, start_time, end_time, last_modified
		FROM time_slots WHERE id = $1
		FOR UPDATE
	`

	slot := &domain.TimeSlot{
		ID: edit.SlotID,
	}

	if err := tx.QueryRowContext(ctx, query, edit.SlotID).Scan(&slot.ScheduleDayID, &slot.StartTime, &slot.EndTime, &slot.LastModified); err != nil {
		return nil, err
	}

	if slot.LastModified.After(edit.ClientLastModified) {
		return nil, domain.ErrStaleEdit
	}

	alarmTimesJSON, err := json.Marshal(edit.AlarmTimes)
	if err != nil {
		return nil, err
	}

	query = `
		UPDATE time_slots
		SET
			is_available = $1,
			has_alarm = $2,
			alarm_times = $3,
			sync_status = $4,
			last_modified = NOW()
		WHERE id = $5
		RETURNING is_available, has_alarm, last_modified, sync_status
	`

	params := []any{edit.IsAvailable, edit.HasAlarm, alarmTimesJSON, domain.SyncStatusModified, edit.SlotID}
	dst := []any{&slot.IsAvailable, &slot.HasAlarm, &slot.LastModified, &slot.SyncStatus}
	if err := tx.QueryRowContext(ctx, query, params...).Scan(dst...); err != nil {
		return nil, err
	}

	slot.AlarmTimes = edit.AlarmTimes

	participantIDs, err := loadSlotParticipantIDs(ctx, tx, edit.SlotID)
	if err != nil {
		return nil, err
	}
	slot.ParticipantIDs = participantIDs

	if err := tx.Commit(); err != nil {
		return nil, err
	}

	return slot, nil
}

func (r *Repository) getTimeSlotsForUser(query string, args ...any) ([]*domain.TimeSlot, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	slots := make([]*domain.TimeSlot, 0)
	for rows.Next() {
		slot := &domain.TimeSlot{}
		var alarmTimesJSON []byte
		dst := []any{&slot.ID, &slot.ScheduleDayID, &slot.StartTime, &slot.EndTime, &slot.IsAvailable, &slot.HasAlarm, &alarmTimesJSON, &slot.LastModified, &slot.SyncStatus}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(alarmTimesJSON, &slot.AlarmTimes); err != nil {
			return nil, err
		}
		slots = append(slots, slot)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, slot := range slots {
		participantIDs, err := loadSlotParticipantIDs(ctx, r.dbpool, slot.ID)
		if err != nil {
			return nil, err
		}
		slot.ParticipantIDs = participantIDs
	}

	return slots, nil
}

// GetTimeSlotsForUser 返回用户参与的所有班表下的全部时段（首次同步）
func (r *Repository) GetTimeSlotsForUser(userID int64) ([]*domain.TimeSlot, error) {
	query := `
		SELECT DISTINCT ts.id, ts.schedule_day_id, ts.start_time, ts.end_time, ts.is_available, ts.has_alarm, ts.alarm_times, ts.last_modified, ts.sync_status
		FROM time_slots ts
		JOIN schedule_days sd ON ts.schedule_day_id = sd.id
		JOIN participants p ON sd.schedule_id = p.schedule_id
		WHERE p.user_id = $1
		ORDER BY ts.id
	`

	return r.getTimeSlotsForUser(query, userID)
}

// GetTimeSlotsForUserModifiedSince 返回上述时段中 last_modified 严格晚于 since 的部分
func (r *Repository) GetTimeSlotsForUserModifiedSince(userID int64, since time.Time) ([]*domain.TimeSlot, error) {
	query := `
		SELECT DISTINCT ts.id, ts.schedule_day_id, ts.start_time, ts.end_time, ts.is_available, ts.has_alarm, ts.alarm_times, ts.last_modified, ts.sync_status
		FROM time_slots ts
		JOIN schedule_days sd ON ts.schedule_day_id = sd.id
		JOIN participants p ON sd.schedule_id = p.schedule_id
		WHERE p.user_id = $1 AND ts.last_modified > $2
		ORDER BY ts.id
	`

	return r.getTimeSlotsForUser(query, userID, since)
}

func (r *Repository) UpdateTimeSlotAlarm(slotID int64, hasAlarm bool, alarmTimes []int32) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	alarmTimesJSON, err := json.Marshal(alarmTimes)
	if err != nil {
		return err
	}

	query := `
		UPDATE time_slots SET has_alarm = $1, alarm_times = $2, last_modified = NOW() WHERE id = $3
	`

	res, err := r.dbpool.ExecContext(ctx, query, hasAlarm, alarmTimesJSON, slotID)
	if err != nil {
		return err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// GetUsernamesByParticipantIDs 批量解析参与者对应的用户名，导出 PDF 时使用
func (r *Repository) GetUsernamesByParticipantIDs(participantIDs []int64) (map[int64]string, error) {
	usernames := make(map[int64]string)
	if len(participantIDs) == 0 {
		return usernames, nil
	}

	query := `
		SELECT p.id, u.username
		FROM participants p
		JOIN users u ON p.user_id = u.id
		WHERE p.id = ANY($1)
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, participantIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var participantID int64
		var username string
		if err := rows.Scan(&participantID, &username); err != nil {
			return nil, err
		}
		usernames[participantID] = username
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return usernames, nil
}
