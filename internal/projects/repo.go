package projects

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zamcdf/cdf-portal/internal/authz"
	"github.com/zamcdf/cdf-portal/internal/shared"
)

// Repository lists projects under a compiled scope predicate.
type Repository interface {
	List(ctx context.Context, predicate authz.Predicate, page shared.Pagination) ([]Project, int, error)
}

// PGRepository pushes the predicate down into the storage query. Projects are
// anchored at ward level; the join chain ward → constituency → district →
// province resolves the display names.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a PGRepository over the given pool.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// List returns the page of matching projects plus the unpaginated total. The
// scope condition is part of both queries, so unauthorized rows are never
// fetched.
func (r *PGRepository) List(ctx context.Context, predicate authz.Predicate, page shared.Pagination) ([]Project, int, error) {
	cond, args := predicate.SQL("p.ward_id", 1)

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM projects p WHERE %s`, cond)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("projects: count: %w", err)
	}

	listQuery := fmt.Sprintf(`
		SELECT p.id, p.name, p.status,
		       w.id, c.id, d.id, pr.id,
		       w.name, c.name, d.name, pr.name
		FROM projects p
		JOIN wards w ON w.id = p.ward_id
		JOIN constituencies c ON c.id = w.constituency_id
		JOIN districts d ON d.id = c.district_id
		JOIN provinces pr ON pr.id = d.province_id
		WHERE %s
		ORDER BY p.name
		LIMIT $%d OFFSET $%d`, cond, len(args)+1, len(args)+2)
	listArgs := append(args, page.PerPage, page.Offset())

	rows, err := r.pool.Query(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("projects: list: %w", err)
	}
	defer rows.Close()

	var items []Project
	for rows.Next() {
		var p Project
		if err := rows.Scan(
			&p.ID, &p.Name, &p.Status,
			&p.WardID, &p.ConstituencyID, &p.DistrictID, &p.ProvinceID,
			&p.WardName, &p.ConstituencyName, &p.DistrictName, &p.ProvinceName,
		); err != nil {
			return nil, 0, fmt.Errorf("projects: scan: %w", err)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("projects: list: %w", err)
	}
	return items, total, nil
}
