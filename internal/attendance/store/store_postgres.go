package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"anima/internal/attendance/models"
	wfmodels "anima/internal/workforce/models"
	id "anima/pkg/domain"
	dErrors "anima/pkg/domain-errors"
	"anima/pkg/platform/sentinel"
	"anima/pkg/platform/tx"
)

// PostgresStore persists the attendance log in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const logColumns = `id, employee_id, site_id, action, occurred_at, latitude, longitude, accuracy_meters, device_info, notes, source`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLog(row rowScanner) (*models.LogEntry, error) {
	var (
		logID, employeeID, siteID uuid.UUID
		lat, lon, accuracy        sql.NullFloat64
		deviceInfo                []byte
		notes                     sql.NullString
		e                         models.LogEntry
	)
	if err := row.Scan(&logID, &employeeID, &siteID, &e.Action, &e.Timestamp,
		&lat, &lon, &accuracy, &deviceInfo, &notes, &e.Source); err != nil {
		return nil, err
	}
	e.ID = id.LogID(logID)
	e.EmployeeID = id.EmployeeID(employeeID)
	e.SiteID = id.SiteID(siteID)
	e.Latitude = nullFloat(lat)
	e.Longitude = nullFloat(lon)
	e.AccuracyMeters = nullFloat(accuracy)
	e.DeviceInfo = deviceInfo
	e.Notes = notes.String
	e.Timestamp = e.Timestamp.UTC()
	return &e, nil
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func floatArg(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func (s *PostgresStore) LastLog(ctx context.Context, employeeID id.EmployeeID) (*models.LogEntry, error) {
	return s.lastLog(ctx, tx.Executor(ctx, s.db), employeeID)
}

func (s *PostgresStore) lastLog(ctx context.Context, q tx.Querier, employeeID id.EmployeeID) (*models.LogEntry, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+logColumns+`
		FROM attendance_logs
		WHERE employee_id = $1
		ORDER BY occurred_at DESC, created_at DESC
		LIMIT 1`, uuid.UUID(employeeID))
	entry, err := scanLog(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find last attendance log: %w", err)
	}
	return entry, nil
}

func (s *PostgresStore) ListBetween(ctx context.Context, employeeID id.EmployeeID, from, to time.Time) ([]models.LogEntry, error) {
	rows, err := tx.Executor(ctx, s.db).QueryContext(ctx, `
		SELECT `+logColumns+`
		FROM attendance_logs
		WHERE employee_id = $1 AND occurred_at >= $2 AND occurred_at < $3
		ORDER BY occurred_at ASC, created_at ASC`,
		uuid.UUID(employeeID), from, to)
	if err != nil {
		return nil, fmt.Errorf("list attendance logs: %w", err)
	}
	defer rows.Close()

	var out []models.LogEntry
	for rows.Next() {
		entry, err := scanLog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attendance log: %w", err)
		}
		out = append(out, *entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance logs: %w", err)
	}
	return out, nil
}

// Append re-validates and inserts entry in one transaction. The employee row
// is locked so concurrent appends for one employee serialize.
func (s *PostgresStore) Append(ctx context.Context, entry *models.LogEntry) error {
	if err := checkEntry(entry); err != nil {
		return err
	}
	return tx.Run(ctx, s.db, func(ctx context.Context) error {
		q := tx.Executor(ctx, s.db)

		var active bool
		err := q.QueryRowContext(ctx,
			`SELECT active FROM employees WHERE id = $1 FOR UPDATE`,
			uuid.UUID(entry.EmployeeID)).Scan(&active)
		if errors.Is(err, sql.ErrNoRows) {
			return dErrors.New(dErrors.CodeNotFound, "employee not found")
		}
		if err != nil {
			return mapPgError(err, "lock employee")
		}
		if !active {
			return dErrors.New(dErrors.CodeForbidden, "employee is inactive")
		}

		site, err := s.assignedSite(ctx, q, entry.EmployeeID, entry.SiteID)
		if err != nil {
			return err
		}

		last, err := s.lastLog(ctx, q, entry.EmployeeID)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return err
		}
		if err := checkSequence(last, entry.Action); err != nil {
			return err
		}
		if err := checkPolicy(*site, entry); err != nil {
			return err
		}

		var deviceInfo any
		if len(entry.DeviceInfo) > 0 {
			deviceInfo = string(entry.DeviceInfo)
		}
		_, err = q.ExecContext(ctx, `
			INSERT INTO attendance_logs (`+logColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			uuid.UUID(entry.ID), uuid.UUID(entry.EmployeeID), uuid.UUID(entry.SiteID),
			string(entry.Action), entry.Timestamp,
			floatArg(entry.Latitude), floatArg(entry.Longitude), floatArg(entry.AccuracyMeters),
			deviceInfo, entry.Notes, entry.Source,
		)
		if err != nil {
			return mapPgError(err, "insert attendance log")
		}
		return nil
	})
}

func (s *PostgresStore) assignedSite(ctx context.Context, q tx.Querier, employeeID id.EmployeeID, siteID id.SiteID) (*wfmodels.Site, error) {
	var (
		rawID    uuid.UUID
		lat, lon sql.NullFloat64
		site     wfmodels.Site
	)
	err := q.QueryRowContext(ctx, `
		SELECT s.id, s.name, s.latitude, s.longitude, s.radius_meters, s.updated_at
		FROM employee_sites es
		JOIN sites s ON s.id = es.site_id
		WHERE es.employee_id = $1 AND es.site_id = $2`,
		uuid.UUID(employeeID), uuid.UUID(siteID),
	).Scan(&rawID, &site.Name, &lat, &lon, &site.RadiusMeters, &site.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dErrors.New(dErrors.CodeForbidden, ErrSiteNotAssigned)
	}
	if err != nil {
		return nil, mapPgError(err, "load assigned site")
	}
	site.ID = id.SiteID(rawID)
	site.Latitude = nullFloat(lat)
	site.Longitude = nullFloat(lon)
	return &site, nil
}

const (
	foreignKeyViolation = "23503"
	uniqueViolation     = "23505"
	serialization       = "40001"
	raiseException      = "P0001"
)

func mapPgError(err error, op string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case foreignKeyViolation, raiseException:
			return dErrors.Wrap(err, dErrors.CodeForbidden, pgErr.Message)
		case uniqueViolation, serialization:
			return dErrors.Wrap(err, dErrors.CodeConflict, "attendance log changed concurrently")
		}
	}
	if pgconn.Timeout(err) {
		return fmt.Errorf("%s: %w: %w", op, sentinel.ErrUnavailable, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
