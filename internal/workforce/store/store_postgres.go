package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"anima/internal/workforce/models"
	id "anima/pkg/domain"
	"anima/pkg/platform/sentinel"
	"anima/pkg/platform/tx"
)

// PostgresStore persists the workforce registry in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed workforce store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const employeeColumns = `id, user_id, full_name, active, role, created_at`

func scanEmployee(row *sql.Row) (*models.Employee, error) {
	var (
		employeeID, userID uuid.UUID
		e                  models.Employee
	)
	if err := row.Scan(&employeeID, &userID, &e.FullName, &e.Active, &e.Role, &e.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, err
	}
	e.ID = id.EmployeeID(employeeID)
	e.UserID = id.UserID(userID)
	return &e, nil
}

func (s *PostgresStore) FindEmployee(ctx context.Context, employeeID id.EmployeeID) (*models.Employee, error) {
	row := tx.Executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE id = $1`, uuid.UUID(employeeID))
	e, err := scanEmployee(row)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, fmt.Errorf("find employee: %w", err)
	}
	return e, err
}

func (s *PostgresStore) FindEmployeeByUser(ctx context.Context, userID id.UserID) (*models.Employee, error) {
	row := tx.Executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT `+employeeColumns+` FROM employees WHERE user_id = $1`, uuid.UUID(userID))
	e, err := scanEmployee(row)
	if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		return nil, fmt.Errorf("find employee by user: %w", err)
	}
	return e, err
}

func (s *PostgresStore) SaveEmployee(ctx context.Context, employee *models.Employee) error {
	_, err := tx.Executor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO employees (id, user_id, full_name, active, role, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			full_name = EXCLUDED.full_name,
			active = EXCLUDED.active,
			role = EXCLUDED.role`,
		uuid.UUID(employee.ID), uuid.UUID(employee.UserID), employee.FullName,
		employee.Active, employee.Role, employee.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("save employee: %w", err)
	}
	return nil
}

func (s *PostgresStore) SetEmployeeActive(ctx context.Context, employeeID id.EmployeeID, active bool) error {
	res, err := tx.Executor(ctx, s.db).ExecContext(ctx,
		`UPDATE employees SET active = $2 WHERE id = $1`, uuid.UUID(employeeID), active)
	if err != nil {
		return fmt.Errorf("set employee active: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// FindSite always reads the current row; site coordinates are corrected
// administratively and must never be served from a cache.
func (s *PostgresStore) FindSite(ctx context.Context, siteID id.SiteID) (*models.Site, error) {
	var (
		rawID    uuid.UUID
		site     models.Site
		lat, lon sql.NullFloat64
	)
	err := tx.Executor(ctx, s.db).QueryRowContext(ctx,
		`SELECT id, name, latitude, longitude, radius_meters, updated_at FROM sites WHERE id = $1`,
		uuid.UUID(siteID),
	).Scan(&rawID, &site.Name, &lat, &lon, &site.RadiusMeters, &site.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find site: %w", err)
	}
	site.ID = id.SiteID(rawID)
	site.Latitude = nullFloat(lat)
	site.Longitude = nullFloat(lon)
	return &site, nil
}

func (s *PostgresStore) SaveSite(ctx context.Context, site *models.Site) error {
	_, err := tx.Executor(ctx, s.db).ExecContext(ctx, `
		INSERT INTO sites (id, name, latitude, longitude, radius_meters, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude,
			radius_meters = EXCLUDED.radius_meters,
			updated_at = EXCLUDED.updated_at`,
		uuid.UUID(site.ID), site.Name, site.Latitude, site.Longitude, site.RadiusMeters, site.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("save site: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListAssignments(ctx context.Context, employeeID id.EmployeeID) ([]models.Assignment, error) {
	rows, err := tx.Executor(ctx, s.db).QueryContext(ctx, `
		SELECT s.id, s.name, s.latitude, s.longitude, s.radius_meters, s.updated_at, es.is_primary
		FROM employee_sites es
		JOIN sites s ON s.id = es.site_id
		WHERE es.employee_id = $1
		ORDER BY es.is_primary DESC, s.name`,
		uuid.UUID(employeeID),
	)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var out []models.Assignment
	for rows.Next() {
		var (
			rawID    uuid.UUID
			a        models.Assignment
			lat, lon sql.NullFloat64
		)
		if err := rows.Scan(&rawID, &a.Site.Name, &lat, &lon, &a.Site.RadiusMeters, &a.Site.UpdatedAt, &a.Primary); err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		a.Site.ID = id.SiteID(rawID)
		a.Site.Latitude = nullFloat(lat)
		a.Site.Longitude = nullFloat(lon)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assignments: %w", err)
	}
	return out, nil
}

// ReplaceAssignments swaps the employee's site set in one transaction.
func (s *PostgresStore) ReplaceAssignments(ctx context.Context, employeeID id.EmployeeID, siteIDs []id.SiteID, primary id.SiteID) error {
	ids := make([]string, 0, len(siteIDs))
	for _, siteID := range siteIDs {
		ids = append(ids, siteID.String())
	}
	return tx.Run(ctx, s.db, func(ctx context.Context) error {
		q := tx.Executor(ctx, s.db)
		if _, err := s.FindEmployee(ctx, employeeID); err != nil {
			return err
		}
		var known int
		if err := q.QueryRowContext(ctx,
			`SELECT count(*) FROM sites WHERE id = ANY($1::uuid[])`, pq.Array(ids),
		).Scan(&known); err != nil {
			return fmt.Errorf("count sites: %w", err)
		}
		if known != len(ids) {
			return sentinel.ErrNotFound
		}
		if _, err := q.ExecContext(ctx,
			`DELETE FROM employee_sites WHERE employee_id = $1`, uuid.UUID(employeeID),
		); err != nil {
			return fmt.Errorf("clear assignments: %w", err)
		}
		if _, err := q.ExecContext(ctx, `
			INSERT INTO employee_sites (employee_id, site_id, is_primary)
			SELECT $1, site_id, site_id = $3
			FROM unnest($2::uuid[]) AS site_id`,
			uuid.UUID(employeeID), pq.Array(ids), uuid.UUID(primary),
		); err != nil {
			return fmt.Errorf("insert assignments: %w", err)
		}
		return nil
	})
}

func nullFloat(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
