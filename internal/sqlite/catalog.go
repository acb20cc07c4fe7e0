package sqlite

import (
	"context"
	"database/sql/driver"
	"fmt"
	"strings"

	"github.com/goccy/go-json"
	modernc "modernc.org/sqlite"

	"github.com/rpggio/carwizard/internal/domain/vehicle"
)

// SQLite's lower() and LIKE only fold ASCII. unicode_lower folds the way
// strings.ToLower does so pushed-down matches agree with vehicle.FilterBy.
func init() {
	if err := modernc.RegisterDeterministicScalarFunction("unicode_lower", 1, unicodeLower); err != nil {
		panic(fmt.Sprintf("register unicode_lower: %v", err))
	}
}

func unicodeLower(_ *modernc.FunctionContext, args []driver.Value) (driver.Value, error) {
	switch v := args[0].(type) {
	case nil:
		return nil, nil
	case string:
		return strings.ToLower(v), nil
	case []byte:
		return strings.ToLower(string(v)), nil
	default:
		return v, nil
	}
}

// CatalogRepository serves the vehicle catalog from SQLite.
type CatalogRepository struct {
	db *DB
}

// NewCatalogRepository creates a new CatalogRepository
func NewCatalogRepository(db *DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// Query returns vehicles matching the pushed-down filters in catalog order.
func (r *CatalogRepository) Query(ctx context.Context, filters vehicle.CatalogFilters) ([]vehicle.Vehicle, error) {
	query := `
		SELECT id, make, model, price, body_type, fuel_type, tags, quality_score
		FROM vehicles
	`

	args := []interface{}{}
	conditions := []string{}

	if filters.MaxPrice != nil {
		conditions = append(conditions, "price <= ?")
		args = append(args, *filters.MaxPrice)
	}
	if filters.BodyTypeContains != "" {
		conditions = append(conditions, "instr(unicode_lower(body_type), ?) > 0")
		args = append(args, strings.ToLower(filters.BodyTypeContains))
	}
	if filters.FuelTypeStartsWith != "" {
		conditions = append(conditions, "instr(unicode_lower(fuel_type), ?) = 1")
		args = append(args, strings.ToLower(filters.FuelTypeStartsWith))
	}

	if len(conditions) > 0 {
		query += " WHERE " + joinConditions(conditions)
	}
	query += " ORDER BY rowid"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query vehicles: %w", err)
	}
	defer rows.Close()

	vehicles := []vehicle.Vehicle{}
	for rows.Next() {
		var v vehicle.Vehicle
		var tags string
		if err := rows.Scan(
			&v.ID,
			&v.Make,
			&v.Model,
			&v.Price,
			&v.BodyType,
			&v.FuelType,
			&tags,
			&v.QualityScore,
		); err != nil {
			return nil, fmt.Errorf("failed to scan vehicle: %w", err)
		}
		if err := json.Unmarshal([]byte(tags), &v.Tags); err != nil {
			return nil, fmt.Errorf("failed to decode tags of vehicle %s: %w", v.ID, err)
		}
		vehicles = append(vehicles, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating vehicle rows: %w", err)
	}

	return vehicles, nil
}

// Upsert inserts or replaces vehicles by id in one transaction. Replaced
// vehicles keep their catalog position.
func (r *CatalogRepository) Upsert(ctx context.Context, vehicles []vehicle.Vehicle) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vehicles (id, make, model, price, body_type, fuel_type, tags, quality_score)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			make = excluded.make,
			model = excluded.model,
			price = excluded.price,
			body_type = excluded.body_type,
			fuel_type = excluded.fuel_type,
			tags = excluded.tags,
			quality_score = excluded.quality_score
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare vehicle upsert: %w", err)
	}
	defer stmt.Close()

	for _, v := range vehicles {
		tags, err := encodeList(v.Tags)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx,
			v.ID,
			v.Make,
			v.Model,
			v.Price,
			v.BodyType,
			v.FuelType,
			tags,
			v.QualityScore,
		); err != nil {
			return fmt.Errorf("failed to upsert vehicle %s: %w", v.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit vehicle upsert: %w", err)
	}
	return nil
}

// Count returns the number of vehicles in the catalog.
func (r *CatalogRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM vehicles`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count vehicles: %w", err)
	}
	return n, nil
}

func encodeList(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	b, err := json.Marshal(values)
	if err != nil {
		return "", fmt.Errorf("failed to encode list: %w", err)
	}
	return string(b), nil
}

func decodeList(raw string) ([]string, error) {
	values := []string{}
	if raw == "" {
		return values, nil
	}
	if err := json.Unmarshal([]byte(raw), &values); err != nil {
		return nil, fmt.Errorf("failed to decode list: %w", err)
	}
	return values, nil
}
