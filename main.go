package main

import (
	"context"
	"database/sql"
	"flag"
	"net/http"
	"os"
	"quadnav/api"
	"quadnav/cache"
	"quadnav/config"
	"quadnav/database"
	"quadnav/migration"
	"quadnav/navigation"
	"quadnav/quadtree"
	"syscall"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/go-tooling/pkg/metrics"
	"github.com/segmentio/encoding/json"
)

func main() {
	configPath := flag.String("config", "", "Path to the configuration file.")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logs.Fatal(errors.New("loading configuration failed").Wrap(err))
	}

	logs.SetLevel(logs.ParseLevel(cfg.Log.Level))
	logs.Encoder = json.Marshal
	if cfg.Log.Indent {
		logs.Encoder = func(v any) ([]byte, error) {
			return json.MarshalIndent(v, "", "  ")
		}
	}

	errors.Encoder = json.Marshal

	ctx, cancel := cli.ContextWithSignals(context.Background(),
		os.Interrupt,
		syscall.SIGTERM,
	)
	defer cancel()

	store, closeStore := newStore(ctx, cfg)
	defer closeStore()

	var fieldCache navigation.FieldCache
	if cfg.Redis.Enabled {
		client, err := cache.NewClient(ctx, cfg.Redis)
		if err != nil {
			logs.Fatal(errors.New("connecting to redis failed").Wrap(err))
		}
		defer client.Close()

		fc, err := cache.NewFieldCache(client, cfg.Redis.TTL)
		if err != nil {
			logs.Fatal(errors.New("creating flow field cache failed").Wrap(err))
		}
		defer fc.Close()
		fieldCache = fc
	}

	service := navigation.NewService(store, fieldCache, serviceOptions(cfg))

	router := api.RegisterRoutes(api.NewHandler(service), api.RouteOptions{
		SearchRate:  cfg.Server.RateLimit,
		SearchBurst: cfg.Server.RateBurst,
	})

	logs.WithTag("addr", cfg.Server.Addr).
		WithTag("storage", cfg.Storage.Driver).
		WithTag("redis", cfg.Redis.Enabled).
		WithTag("log_level", cfg.Log.Level).
		Info("starting quadnav server")

	err = api.ListenAndServe(ctx, cfg.Server.ShutdownTimeout,
		&http.Server{
			Addr:    cfg.Server.Addr,
			Handler: metrics.HTTPHandler(router, api.MetricsPathFormatter),
		},
	)
	if err != nil {
		logs.WithTag("addr", cfg.Server.Addr).Error(err)
	}
}

// newStore returns the configured map store and a function releasing it.
func newStore(ctx context.Context, cfg *config.Config) (navigation.MapStore, func()) {
	if cfg.Storage.Driver != config.StoragePostgres {
		return navigation.NewMemoryStore(), func() {}
	}

	if cfg.Migrations.Enabled {
		if err := migration.Run(ctx, cfg.DB, cfg.Migrations); err != nil {
			logs.Fatal(errors.New("migration error").Wrap(err))
		}
	}

	db, err := database.Open(ctx, cfg.DB)
	if err != nil {
		logs.Fatal(errors.New("connecting to the database failed").Wrap(err))
	}

	return database.NewStore(db), func() { closeDB(db) }
}

func closeDB(db *sql.DB) {
	if err := db.Close(); err != nil {
		logs.Warn(errors.New("closing the database failed").Wrap(err))
	}
}

func serviceOptions(cfg *config.Config) navigation.Options {
	opts := navigation.DefaultOptions()
	opts.TreeDefaults = quadtree.Config{
		Center:      quadtree.Point{X: cfg.Tree.Size / 2, Y: cfg.Tree.Size / 2},
		Size:        cfg.Tree.Size,
		MinCellSize: cfg.Tree.MinCellSize,
		Capacity:    cfg.Tree.Capacity,
	}
	opts.Timeout = cfg.Search.Timeout
	opts.HeuristicWeight = cfg.Search.HeuristicWeight
	opts.MaxExpansions = cfg.Search.MaxExpansions
	opts.SnapRetries = cfg.Search.SnapRetries
	opts.GeohashPrecision = cfg.Search.GeohashPrecision
	return opts
}
