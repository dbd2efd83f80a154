package database

import (
	"context"
	"database/sql"
	"quadnav/config"
	"quadnav/models"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/lib/pq"
)

// Postgres error codes mapped to typed errors.
const (
	codeUniqueViolation   = "23505"
	codeInvalidTextRepr   = "22P02"
	codeForeignKeyViolate = "23503"
)

// Open connects to postgres and checks the connection.
func Open(ctx context.Context, cfg config.DBConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, errors.New("opening database failed").Wrap(err)
	}

	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.New("pinging database failed").
			WithTag("host", cfg.Host).
			WithTag("port", cfg.Port).
			WithTag("dbname", cfg.DBName).
			Wrap(err)
	}

	logs.WithTag("host", cfg.Host).
		WithTag("dbname", cfg.DBName).
		Info("database connected")
	return db, nil
}

// Store keeps maps and their obstacles in postgres.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func notFound(mapID string) error {
	return errors.New("map not found").
		WithType(models.ErrTypeMapNotFound).
		WithTag("map_id", mapID)
}

// classify turns postgres errors the caller can act on into typed errors.
func classify(err error, mapID, msg string) error {
	if pqErr, ok := err.(*pq.Error); ok {
		switch pqErr.Code {
		case codeUniqueViolation:
			return errors.New("map already exists").
				WithType(models.ErrTypeMapExists).
				WithTag("map_id", mapID).
				Wrap(err)

		case codeInvalidTextRepr, codeForeignKeyViolate:
			return errors.New("map not found").
				WithType(models.ErrTypeMapNotFound).
				WithTag("map_id", mapID).
				Wrap(err)
		}
	}

	return errors.New(msg).
		WithTag("map_id", mapID).
		Wrap(err)
}

// CreateMap inserts a map together with its seed obstacles in a single
// transaction. A seeded map starts at version 1.
func (s *Store) CreateMap(ctx context.Context, m models.Map, seed []models.Rect) error {
	if len(seed) > 0 {
		m.Version++
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.New("starting transaction failed").Wrap(err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO maps (id, name, center_x, center_y, size, min_cell_size, capacity, version, created_at, updated_at)
         VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		m.ID, m.Name, m.Center.X, m.Center.Y, m.Size, m.MinCellSize, m.Capacity, m.Version, m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		return classify(err, m.ID, "inserting map failed")
	}

	if err := copyObstacles(ctx, tx, m.ID, seed); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return errors.New("committing transaction failed").
			WithTag("map_id", m.ID).
			Wrap(err)
	}
	return nil
}

func (s *Store) GetMap(ctx context.Context, id string) (models.Map, error) {
	var m models.Map
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, center_x, center_y, size, min_cell_size, capacity, version, created_at, updated_at
         FROM maps WHERE id = $1`,
		id,
	).Scan(&m.ID, &m.Name, &m.Center.X, &m.Center.Y, &m.Size, &m.MinCellSize, &m.Capacity, &m.Version, &m.CreatedAt, &m.UpdatedAt)

	switch {
	case err == sql.ErrNoRows:
		return models.Map{}, notFound(id)
	case err != nil:
		return models.Map{}, classify(err, id, "selecting map failed")
	}
	return m, nil
}

func (s *Store) ListObstacles(ctx context.Context, mapID string) ([]models.Obstacle, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, map_id, min_x, min_y, max_x, max_y FROM obstacles WHERE map_id = $1 ORDER BY id`,
		mapID,
	)
	if err != nil {
		return nil, classify(err, mapID, "selecting obstacles failed")
	}
	defer rows.Close()

	var obstacles []models.Obstacle
	for rows.Next() {
		var o models.Obstacle
		if err := rows.Scan(&o.ID, &o.MapID, &o.Min.X, &o.Min.Y, &o.Max.X, &o.Max.Y); err != nil {
			return nil, classify(err, mapID, "scanning obstacle failed")
		}
		obstacles = append(obstacles, o)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(err, mapID, "iterating obstacles failed")
	}
	return obstacles, nil
}

// AddObstacles bulk inserts rects and bumps the map version in a single
// transaction. It returns the new version.
func (s *Store) AddObstacles(ctx context.Context, mapID string, rects []models.Rect) (int64, error) {
	return s.withVersionBump(ctx, mapID, func(tx *sql.Tx) error {
		return copyObstacles(ctx, tx, mapID, rects)
	})
}

// copyObstacles bulk inserts rects with COPY.
func copyObstacles(ctx context.Context, tx *sql.Tx, mapID string, rects []models.Rect) error {
	if len(rects) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, pq.CopyIn("obstacles", "map_id", "min_x", "min_y", "max_x", "max_y"))
	if err != nil {
		return classify(err, mapID, "preparing obstacle copy failed")
	}
	defer stmt.Close()

	for _, r := range rects {
		if _, err := stmt.ExecContext(ctx, mapID, r.Min.X, r.Min.Y, r.Max.X, r.Max.Y); err != nil {
			return classify(err, mapID, "copying obstacle failed")
		}
	}

	if _, err := stmt.ExecContext(ctx); err != nil {
		return classify(err, mapID, "flushing obstacle copy failed")
	}
	return nil
}

// ClearObstacles removes every obstacle of a map and returns the new
// version.
func (s *Store) ClearObstacles(ctx context.Context, mapID string) (int64, error) {
	return s.withVersionBump(ctx, mapID, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM obstacles WHERE map_id = $1`, mapID); err != nil {
			return classify(err, mapID, "deleting obstacles failed")
		}
		return nil
	})
}

func (s *Store) withVersionBump(ctx context.Context, mapID string, f func(tx *sql.Tx) error) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, errors.New("starting transaction failed").Wrap(err)
	}
	defer tx.Rollback()

	// The update holds the map row lock until commit.
	var version int64
	err = tx.QueryRowContext(ctx,
		`UPDATE maps SET version = version + 1, updated_at = $2 WHERE id = $1 RETURNING version`,
		mapID, time.Now().UTC(),
	).Scan(&version)

	switch {
	case err == sql.ErrNoRows:
		return 0, notFound(mapID)
	case err != nil:
		return 0, classify(err, mapID, "bumping map version failed")
	}

	if err := f(tx); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, errors.New("committing transaction failed").
			WithTag("map_id", mapID).
			Wrap(err)
	}
	return version, nil
}
