package database

import (
	"context"
	"database/sql"
	"os"
	"quadnav/config"
	"quadnav/models"
	"quadnav/quadtree"
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	err := classify(&pq.Error{Code: codeUniqueViolation}, "m", "insert failed")
	require.True(t, errors.IsType(err, models.ErrTypeMapExists))

	err = classify(&pq.Error{Code: codeInvalidTextRepr}, "m", "select failed")
	require.True(t, errors.IsType(err, models.ErrTypeMapNotFound))

	err = classify(&pq.Error{Code: codeForeignKeyViolate}, "m", "copy failed")
	require.True(t, errors.IsType(err, models.ErrTypeMapNotFound))

	err = classify(sql.ErrConnDone, "m", "select failed")
	require.Error(t, err)
	require.False(t, errors.IsType(err, models.ErrTypeMapNotFound))
}

// openTestDB connects to the database given by QUADNAV_TEST_DB_HOST. The
// schema must already be migrated.
func openTestDB(t *testing.T) *sql.DB {
	host := os.Getenv("QUADNAV_TEST_DB_HOST")
	if host == "" {
		t.Skip("QUADNAV_TEST_DB_HOST not set")
	}

	db, err := Open(context.Background(), config.DBConfig{
		User:     "postgres",
		Password: "postgres",
		DBName:   "quadnav",
		SSLMode:  "disable",
		Host:     host,
		Port:     "5432",
	})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestStore(t *testing.T) {
	db := openTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	m := models.NewMap("store test", quadtree.DefaultConfig())
	require.NoError(t, store.CreateMap(ctx, m, nil))
	t.Cleanup(func() { db.Exec(`DELETE FROM maps WHERE id = $1`, m.ID) })

	err := store.CreateMap(ctx, m, nil)
	require.True(t, errors.IsType(err, models.ErrTypeMapExists))

	got, err := store.GetMap(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, m.ID, got.ID)
	require.Equal(t, m.TreeConfig(), got.TreeConfig())
	require.Zero(t, got.Version)

	version, err := store.AddObstacles(ctx, m.ID, []models.Rect{
		{Min: models.Vec2{X: 1, Y: 1}, Max: models.Vec2{X: 2, Y: 2}},
		{Min: models.Vec2{X: 4, Y: 0}, Max: models.Vec2{X: 5, Y: 16}},
	})
	require.NoError(t, err)
	require.Equal(t, int64(1), version)

	obstacles, err := store.ListObstacles(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, obstacles, 2)
	require.Equal(t, 4.0, obstacles[1].Min.X)

	version, err = store.ClearObstacles(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, int64(2), version)

	obstacles, err = store.ListObstacles(ctx, m.ID)
	require.NoError(t, err)
	require.Empty(t, obstacles)
}

func TestStoreCreateMapSeeded(t *testing.T) {
	db := openTestDB(t)
	store := NewStore(db)
	ctx := context.Background()

	m := models.NewMap("seeded", quadtree.DefaultConfig())
	require.NoError(t, store.CreateMap(ctx, m, []models.Rect{
		{Min: models.Vec2{X: 8, Y: 0}, Max: models.Vec2{X: 9, Y: 16}},
	}))
	t.Cleanup(func() { db.Exec(`DELETE FROM maps WHERE id = $1`, m.ID) })

	got, err := store.GetMap(ctx, m.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), got.Version)

	obstacles, err := store.ListObstacles(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, obstacles, 1)

	// A duplicate insert must not leave its seed behind.
	err = store.CreateMap(ctx, m, []models.Rect{
		{Min: models.Vec2{X: 1, Y: 1}, Max: models.Vec2{X: 2, Y: 2}},
	})
	require.True(t, errors.IsType(err, models.ErrTypeMapExists))

	obstacles, err = store.ListObstacles(ctx, m.ID)
	require.NoError(t, err)
	require.Len(t, obstacles, 1)
}

func TestStoreMapNotFound(t *testing.T) {
	store := NewStore(openTestDB(t))
	ctx := context.Background()

	_, err := store.GetMap(ctx, "6f1c2a52-0a2f-4b7e-9d55-3c1a9c5c1f00")
	require.True(t, errors.IsType(err, models.ErrTypeMapNotFound))

	_, err = store.GetMap(ctx, "not-a-uuid")
	require.True(t, errors.IsType(err, models.ErrTypeMapNotFound))

	_, err = store.AddObstacles(ctx, "6f1c2a52-0a2f-4b7e-9d55-3c1a9c5c1f00", nil)
	require.True(t, errors.IsType(err, models.ErrTypeMapNotFound))
}
