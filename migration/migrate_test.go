package migration

import (
	"context"
	"quadnav/config"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var unreachable = config.DBConfig{
	User:     "postgres",
	Password: "postgres",
	DBName:   "quadnav",
	SSLMode:  "disable",
	Host:     "127.0.0.1",
	Port:     "1",
}

func TestWaitForDBGivesUp(t *testing.T) {
	start := time.Now()
	err := WaitForDB(context.Background(), unreachable, 2, time.Millisecond)
	require.Error(t, err)
	require.Less(t, time.Since(start), 5*time.Second)
}

func TestWaitForDBStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := WaitForDB(ctx, unreachable, 100, time.Hour)
	require.Error(t, err)
}

func TestRunFailsWithoutDatabase(t *testing.T) {
	err := Run(context.Background(), unreachable, config.MigrationsConfig{
		Path:       "file://../database/migrations",
		Retries:    1,
		RetryDelay: time.Millisecond,
	})
	require.Error(t, err)
}
