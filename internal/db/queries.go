package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"homecore/internal/device"
	"homecore/internal/models"
)

// GetSceneByID fetches a scene with its actions
func (d *DB) GetSceneByID(ctx context.Context, id string) (*models.Scene, error) {
	var (
		s       models.Scene
		actions []byte
	)
	err := d.pool.QueryRow(ctx, "SELECT id, name, actions FROM scenes WHERE id = $1", id).
		Scan(&s.ID, &s.Name, &actions)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, device.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(actions, &s.Actions); err != nil {
		return nil, fmt.Errorf("decode actions of scene %s: %w", id, err)
	}
	return &s, nil
}

// GetAllSchedules fetches all schedules
func (d *DB) GetAllSchedules(ctx context.Context) ([]models.Schedule, error) {
	rows, err := d.pool.Query(ctx, "SELECT id, name, cron_expression, command, enabled FROM schedules")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var schedules []models.Schedule
	for rows.Next() {
		var (
			s   models.Schedule
			cmd []byte
		)
		if err := rows.Scan(&s.ID, &s.Name, &s.CronExpression, &cmd, &s.Enabled); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(cmd, &s.Command); err != nil {
			return nil, fmt.Errorf("decode command of schedule %s: %w", s.ID, err)
		}
		schedules = append(schedules, s)
	}
	return schedules, rows.Err()
}

// LogCommand appends a finished command to command_log
func (d *DB) LogCommand(ctx context.Context, rec models.CommandRecord) error {
	_, err := d.pool.Exec(ctx,
		"INSERT INTO command_log (command_id, kind, target, status, message, attempts, at) VALUES ($1, $2, $3, $4, $5, $6, $7)",
		rec.CommandID, string(rec.Kind), rec.Target, rec.Status, rec.Message, rec.Attempts, rec.At)
	return err
}

// RecentCommands returns the newest command_log entries first
func (d *DB) RecentCommands(ctx context.Context, limit int) ([]models.CommandRecord, error) {
	rows, err := d.pool.Query(ctx,
		"SELECT command_id, kind, target, status, message, attempts, at FROM command_log ORDER BY at DESC LIMIT $1", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []models.CommandRecord
	for rows.Next() {
		var (
			r    models.CommandRecord
			kind string
		)
		if err := rows.Scan(&r.CommandID, &kind, &r.Target, &r.Status, &r.Message, &r.Attempts, &r.At); err != nil {
			return nil, err
		}
		r.Kind = models.CommandKind(kind)
		records = append(records, r)
	}
	return records, rows.Err()
}
