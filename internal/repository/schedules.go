package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/sysu-ecnc-dev/schedule-coordinator/backend/internal/domain"
)

func (r *Repository) CreateSchedule(schedule *domain.Schedule) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	minDaysJSON, err := json.Marshal(schedule.UserSpecificMinDays)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO schedules (name, description, owner_id, duration, min_days_selection, user_specific_min_days)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, is_complete, created_at, updated_at, version
	`

	params := []any{schedule.Name, schedule.Description, schedule.OwnerID, schedule.Duration, schedule.MinDaysSelection, minDaysJSON}
	dst := []any{&schedule.ID, &schedule.IsComplete, &schedule.CreatedAt, &schedule.UpdatedAt, &schedule.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, params...).Scan(dst...); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetScheduleByID(id int64) (*domain.Schedule, error) {
	query := `
		SELECT name, description, owner_id, duration, is_complete, min_days_selection, user_specific_min_days, created_at, updated_at, version
		FROM schedules WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	schedule := &domain.Schedule{
		ID: id,
	}

	var minDaysJSON []byte
	dst := []any{
		&schedule.Name,
		&schedule.Description,
		&schedule.OwnerID,
		&schedule.Duration,
		&schedule.IsComplete,
		&schedule.MinDaysSelection,
		&minDaysJSON,
		&schedule.CreatedAt,
		&schedule.UpdatedAt,
		&schedule.Version,
	}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	if err := json.Unmarshal(minDaysJSON, &schedule.UserSpecificMinDays); err != nil {
		return nil, err
	}

	return schedule, nil
}

// GetSchedulesForUser 返回用户拥有或参与的所有班表
func (r *Repository) GetSchedulesForUser(userID int64) ([]*domain.Schedule, error) {
	query := `
		SELECT DISTINCT
			s.id, s.name, s.description, s.owner_id, s.duration, s.is_complete,
			s.min_days_selection, s.user_specific_min_days, s.created_at, s.updated_at, s.version
		FROM schedules s
		LEFT JOIN participants p ON s.id = p.schedule_id
		WHERE s.owner_id = $1 OR p.user_id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	schedules := make([]*domain.Schedule, 0)
	for rows.Next() {
		var schedule domain.Schedule
		var minDaysJSON []byte

		dst := []any{
			&schedule.ID,
			&schedule.Name,
			&schedule.Description,
			&schedule.OwnerID,
			&schedule.Duration,
			&schedule.IsComplete,
			&schedule.MinDaysSelection,
			&minDaysJSON,
			&schedule.CreatedAt,
			&schedule.UpdatedAt,
			&schedule.Version,
		}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(minDaysJSON, &schedule.UserSpecificMinDays); err != nil {
			return nil, err
		}
		schedules = append(schedules, &schedule)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return schedules, nil
}

func (r *Repository) UpdateSchedule(schedule *domain.Schedule) error {
	query := `
		UPDATE schedules
		SET
			name = $1,
			description = $2,
			duration = $3,
			min_days_selection = $4,
			user_specific_min_days = $5,
			updated_at = NOW(),
			version = version + 1
		WHERE id = $6 AND version = $7
		RETURNING updated_at, version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	minDaysJSON, err := json.Marshal(schedule.UserSpecificMinDays)
	if err != nil {
		return err
	}

	params := []any{schedule.Name, schedule.Description, schedule.Duration, schedule.MinDaysSelection, minDaysJSON, schedule.ID, schedule.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, params...).Scan(&schedule.UpdatedAt, &schedule.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) DeleteSchedule(id int64) error {
	query := `
		DELETE FROM schedules WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	if _, err := r.dbpool.ExecContext(ctx, query, id); err != nil {
		return err
	}

	return nil
}

// MarkScheduleComplete 将班表标记为已完成，之后的时段结构约定上不再变动（导出依赖这一点）
func (r *Repository) MarkScheduleComplete(id int64) error {
	query := `
		UPDATE schedules SET is_complete = TRUE, updated_at = NOW(), version = version + 1 WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	if _, err := r.dbpool.ExecContext(ctx, query, id); err != nil {
		return err
	}

	return nil
}

func (r *Repository) CreateRole(role *domain.Role) error {
	query := `
		INSERT INTO roles (schedule_id, name, description, can_edit_schedule, can_invite_users, can_request_permutations)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, version
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	params := []any{role.ScheduleID, role.Name, role.Description, role.CanEditSchedule, role.CanInviteUsers, role.CanRequestPermutations}
	if err := r.dbpool.QueryRowContext(ctx, query, params...).Scan(&role.ID, &role.Version); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetRoleByID(id int64) (*domain.Role, error) {
	query := `
		SELECT schedule_id, name, description, can_edit_schedule, can_invite_users, can_request_permutations, version
		FROM roles WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	role := &domain.Role{
		ID: id,
	}

	dst := []any{&role.ScheduleID, &role.Name, &role.Description, &role.CanEditSchedule, &role.CanInviteUsers, &role.CanRequestPermutations, &role.Version}
	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(dst...); err != nil {
		return nil, err
	}

	return role, nil
}

func (r *Repository) GetRolesByScheduleID(scheduleID int64) ([]*domain.Role, error) {
	query := `
		SELECT id, name, description, can_edit_schedule, can_invite_users, can_request_permutations, version
		FROM roles WHERE schedule_id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roles := make([]*domain.Role, 0)
	for rows.Next() {
		role := &domain.Role{ScheduleID: scheduleID}
		dst := []any{&role.ID, &role.Name, &role.Description, &role.CanEditSchedule, &role.CanInviteUsers, &role.CanRequestPermutations, &role.Version}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return roles, nil
}

func (r *Repository) CreateParticipant(participant *domain.Participant) error {
	query := `
		INSERT INTO participants (schedule_id, user_id, role_id)
		VALUES ($1, $2, $3)
		RETURNING id, invitation_accepted, joined_at
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	params := []any{participant.ScheduleID, participant.UserID, participant.RoleID}
	if err := r.dbpool.QueryRowContext(ctx, query, params...).Scan(&participant.ID, &participant.InvitationAccepted, &participant.JoinedAt); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetParticipant(scheduleID int64, userID int64) (*domain.Participant, error) {
	query := `
		SELECT id, role_id, invitation_accepted, joined_at
		FROM participants WHERE schedule_id = $1 AND user_id = $2
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	participant := &domain.Participant{
		ScheduleID: scheduleID,
		UserID:     userID,
	}

	dst := []any{&participant.ID, &participant.RoleID, &participant.InvitationAccepted, &participant.JoinedAt}
	if err := r.dbpool.QueryRowContext(ctx, query, scheduleID, userID).Scan(dst...); err != nil {
		return nil, err
	}

	return participant, nil
}

func (r *Repository) GetParticipantsByScheduleID(scheduleID int64) ([]*domain.Participant, error) {
	query := `
		SELECT id, user_id, role_id, invitation_accepted, joined_at
		FROM participants WHERE schedule_id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := make([]*domain.Participant, 0)
	for rows.Next() {
		participant := &domain.Participant{ScheduleID: scheduleID}
		dst := []any{&participant.ID, &participant.UserID, &participant.RoleID, &participant.InvitationAccepted, &participant.JoinedAt}
		if err := rows.Scan(dst...); err != nil {
			return nil, err
		}
		participants = append(participants, participant)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return participants, nil
}

func (r *Repository) CountParticipants(scheduleID int64) (int32, error) {
	query := `
		SELECT COUNT(*) FROM participants WHERE schedule_id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	var count int32
	if err := r.dbpool.QueryRowContext(ctx, query, scheduleID).Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}

func (r *Repository) CheckParticipantIfExists(scheduleID int64, userID int64) (bool, error) {
	isExists := false

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	query := `
		SELECT EXISTS (SELECT 1 FROM participants WHERE schedule_id = $1 AND user_id = $2)
	`
	if err := r.dbpool.QueryRowContext(ctx, query, scheduleID, userID).Scan(&isExists); err != nil {
		return false, err
	}

	return isExists, nil
}

func (r *Repository) CreateScheduleDay(day *domain.ScheduleDay) error {
	query := `
		INSERT INTO schedule_days (schedule_id, date)
		VALUES ($1, $2)
		RETURNING id
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	if err := r.dbpool.QueryRowContext(ctx, query, day.ScheduleID, day.Date).Scan(&day.ID); err != nil {
		return err
	}

	return nil
}

func (r *Repository) GetScheduleDayByID(id int64) (*domain.ScheduleDay, error) {
	query := `
		SELECT schedule_id, to_char(date, 'YYYY-MM-DD') FROM schedule_days WHERE id = $1
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	day := &domain.ScheduleDay{
		ID: id,
	}

	if err := r.dbpool.QueryRowContext(ctx, query, id).Scan(&day.ScheduleID, &day.Date); err != nil {
		return nil, err
	}

	return day, nil
}

func (r *Repository) GetScheduleDaysByScheduleID(scheduleID int64) ([]*domain.ScheduleDay, error) {
	query := `
		SELECT id, to_char(date, 'YYYY-MM-DD') FROM schedule_days WHERE schedule_id = $1 ORDER BY date
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	days := make([]*domain.ScheduleDay, 0)
	for rows.Next() {
		day := &domain.ScheduleDay{ScheduleID: scheduleID}
		if err := rows.Scan(&day.ID, &day.Date); err != nil {
			return nil, err
		}
		days = append(days, day)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return days, nil
}
