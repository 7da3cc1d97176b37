package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/sysu-ecnc-dev/schedule-coordinator/backend/internal/domain"
)

func (r *Repository) CreateNotification(notification *domain.Notification) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	actionsJSON, err := json.Marshal(notification.Actions)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO notifications (user_id, type, title, message, actions)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_read, delivered, created_at
	`

	params := []any{notification.UserID, notification.Type, notification.Title, notification.Message, actionsJSON}
	if err := r.dbpool.QueryRowContext(ctx, query, params...).Scan(&notification.ID, &notification.IsRead, &notification.Delivered, &notification.CreatedAt); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetNotificationsByUserID(userID int64) ([]*domain.Notification, error) {
	query := `
		SELECT id, type, title, message, actions, is_read, delivered, created_at
		FROM notifications WHERE user_id = $1
		ORDER BY created_at DESC
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notifications := make([]*domain.Notification, 0)
	for rows.Next() {
		notification := &domain.Notification{UserID: userID}
		var actionsJSON []byte
		dst := []any{&notification.ID, &notification.Type, &notification.Title, &notification.Message, &actionsJSON, &notification.IsRead, &notification.Delivered, &notification.CreatedAt}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(actionsJSON, &notification.Actions); err != nil {
			return nil, err
		}
		notifications = append(notifications, notification)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return notifications, nil
}

// MarkNotificationRead 只允许通知的所有者标记已读
func (r *Repository) MarkNotificationRead(id int64, userID int64) error {
	query := `
		UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	res, err := r.dbpool.ExecContext(ctx, query, id, userID)
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

func (r *Repository) MarkAllNotificationsRead(userID int64) error {
	query := `
		UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	if _, err := r.dbpool.ExecContext(ctx, query, userID); err != nil {
		return err
	}

	return nil
}

func (r *Repository) MarkNotificationDelivered(id int64, userID int64) error {
	query := `
		UPDATE notifications SET delivered = TRUE WHERE id = $1 AND user_id = $2
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	res, err := r.dbpool.ExecContext(ctx, query, id, userID)
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

// ReplaceScheduledAlarms 替换某个用户在某个时段上的全部闹钟：先删后插，放在同一个事务中
func (r *Repository) ReplaceScheduledAlarms(userID int64, slotID int64, alarms []*domain.ScheduledAlarm) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `DELETE FROM scheduled_alarms WHERE user_id = $1 AND time_slot_id = $2`
	if _, err := tx.ExecContext(ctx, query, userID, slotID); err != nil {
		return err
	}

	for _, alarm := range alarms {
		query := `
			INSERT INTO scheduled_alarms (user_id, time_slot_id, minutes_before, scheduled_time)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`
		if err := tx.QueryRowContext(ctx, query, alarm.UserID, alarm.TimeSlotID, alarm.MinutesBefore, alarm.ScheduledTime).Scan(&alarm.ID); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	return nil
}

// GetDueAlarms 返回所有到期且尚未触发的闹钟
func (r *Repository) GetDueAlarms(now time.Time) ([]*domain.ScheduledAlarm, error) {
	query := `
		SELECT id, user_id, time_slot_id, minutes_before, scheduled_time, triggered
		FROM scheduled_alarms
		WHERE triggered = FALSE AND scheduled_time <= $1
		ORDER BY scheduled_time
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	alarms := make([]*domain.ScheduledAlarm, 0)
	for rows.Next() {
		alarm := &domain.ScheduledAlarm{}
		dst := []any{&alarm.ID, &alarm.UserID, &alarm.TimeSlotID, &alarm.MinutesBefore, &alarm.ScheduledTime, &alarm.Triggered}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		alarms = append(alarms, alarm)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return alarms, nil
}

// MarkAlarmTriggered 带 triggered = FALSE 条件，重复触发时返回 sql.ErrNoRows，
// 保证每个闹钟至多投递一次
func (r *Repository) MarkAlarmTriggered(id int64) error {
	query := `
		UPDATE scheduled_alarms SET triggered = TRUE WHERE id = $1 AND triggered = FALSE
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	res, err := r.dbpool.ExecContext(ctx, query, id)
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
