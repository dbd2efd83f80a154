package main

import (
	"context"
	"flag"
	"os"
	"quadnav/config"
	"quadnav/migration"
	"syscall"

	"github.com/aukilabs/go-tooling/pkg/cli"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
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

	if err := migration.Run(ctx, cfg.DB, cfg.Migrations); err != nil {
		logs.Fatal(errors.New("migration error").Wrap(err))
	}
}
