package place

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/lib/pq" // postgres driver

	"github.com/weplace/weplace/internal/tracing"
)

// placeColumns is the column list shared by every SELECT.
var placeColumns = []string{
	"id", "name", "category", "subcategory", "address", "description",
	"phone", "website", "opening_hours", "lat", "lng", "last_updated",
}

// PostgresRepository persists place records in Postgres.
//
// UpdateFields issues a single UPDATE covering both the proposed fields and
// the last_updated refresh, so the write is atomic and concurrent updates to
// the same record serialize on the row lock.
type PostgresRepository struct {
	db *sql.DB
	sb sq.StatementBuilderType
}

var _ Repository = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// GetByID retrieves a record by its identifier.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (p *Place, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "places", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query, args, err := r.sb.Select(placeColumns...).
		From("places").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build select: %w", err)
	}

	p, err = scanPlace(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get place %s: %w", id, err)
	}
	return p, nil
}

// Create inserts a new record.
func (r *PostgresRepository) Create(ctx context.Context, p *Place) (err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "places", tracing.DBOperationInsert)
	defer func() { endSpan(err) }()

	var lat, lng sql.NullFloat64
	if p.Coordinates != nil {
		lat = sql.NullFloat64{Float64: p.Coordinates.Lat, Valid: true}
		lng = sql.NullFloat64{Float64: p.Coordinates.Lng, Valid: true}
	}
	var updated sql.NullTime
	if p.LastUpdated != nil {
		updated = sql.NullTime{Time: *p.LastUpdated, Valid: true}
	}

	query, args, err := r.sb.Insert("places").
		Columns(placeColumns...).
		Values(p.ID, p.Name, p.Category, p.Subcategory, p.Address, p.Description,
			p.Phone, p.Website, p.OpeningHours, lat, lng, updated).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert place %s: %w", p.ID, err)
	}
	return nil
}

// List returns records matching the options, ordered by identifier so pages
// are stable across requests.
func (r *PostgresRepository) List(ctx context.Context, opts ListOptions) ([]*Place, error) {
	builder := r.sb.Select(placeColumns...).From("places").OrderBy("id")
	if opts.Category != "" {
		builder = builder.Where(sq.Eq{"category": opts.Category})
	}
	if opts.Subcategory != "" {
		builder = builder.Where(sq.Eq{"subcategory": opts.Subcategory})
	}
	if opts.Limit > 0 {
		builder = builder.Limit(uint64(opts.Limit))
	}
	if opts.Offset > 0 {
		builder = builder.Offset(uint64(opts.Offset))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list: %w", err)
	}
	return r.queryPlaces(ctx, query, args)
}

// ScanAll returns every record ordered by identifier.
func (r *PostgresRepository) ScanAll(ctx context.Context) ([]*Place, error) {
	query, args, err := r.sb.Select(placeColumns...).From("places").OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build scan: %w", err)
	}
	return r.queryPlaces(ctx, query, args)
}

// UpdateFields applies the given fields and refreshes last_updated in one
// UPDATE statement.
func (r *PostgresRepository) UpdateFields(ctx context.Context, id string, fields map[string]string, updatedAt time.Time) (err error) {
	if err := ValidateFields(fields); err != nil {
		return err
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, "places", tracing.DBOperationUpdate)
	defer func() { endSpan(err) }()

	builder := r.sb.Update("places").Where(sq.Eq{"id": id})
	for name, value := range fields {
		builder = builder.Set(name, value)
	}
	builder = builder.Set("last_updated", updatedAt)

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build update: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update place %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// Categories returns distinct subcategories grouped by category, excluding
// the "other" bucket.
func (r *PostgresRepository) Categories(ctx context.Context) (map[string][]string, error) {
	query, args, err := r.sb.Select("category", "subcategory").
		From("places").
		Where(sq.NotEq{"category": "other"}).
		Where(sq.NotEq{"subcategory": ""}).
		Distinct().
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build categories: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var cat, sub string
		if err := rows.Scan(&cat, &sub); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out[cat] = append(out[cat], sub)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	for cat := range out {
		sort.Strings(out[cat])
	}
	return out, nil
}

// queryPlaces runs a SELECT over placeColumns and scans the result set.
func (r *PostgresRepository) queryPlaces(ctx context.Context, query string, args []interface{}) ([]*Place, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query places: %w", err)
	}
	defer rows.Close()

	var out []*Place
	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, fmt.Errorf("scan place: %w", err)
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}
	return out, nil
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPlace(row rowScanner) (*Place, error) {
	var (
		p       Place
		name    sql.NullString
		sub     sql.NullString
		addr    sql.NullString
		desc    sql.NullString
		phone   sql.NullString
		website sql.NullString
		hours   sql.NullString
		lat     sql.NullFloat64
		lng     sql.NullFloat64
		updated sql.NullTime
	)

	if err := row.Scan(&p.ID, &name, &p.Category, &sub, &addr, &desc,
		&phone, &website, &hours, &lat, &lng, &updated); err != nil {
		return nil, err
	}

	p.Name = name.String
	p.Subcategory = sub.String
	p.Address = addr.String
	p.Description = desc.String
	p.Phone = phone.String
	p.Website = website.String
	p.OpeningHours = hours.String
	if lat.Valid && lng.Valid {
		p.Coordinates = &Coordinates{Lat: lat.Float64, Lng: lng.Float64}
	}
	if updated.Valid {
		ts := updated.Time
		p.LastUpdated = &ts
	}
	return &p, nil
}
