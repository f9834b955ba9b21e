package main

import (
	"context"
	"flag"
	"log"
	"os"
	"time"

	"github.com/rql-db/rql/internal/config"
	"github.com/rql-db/rql/internal/engine"
	"github.com/rql-db/rql/internal/repl"
	"github.com/rql-db/rql/internal/rqllog"
	"github.com/rql-db/rql/internal/start"
)

var configPath = flag.String("config", "", "path to rql.toml (optional)")

func main() {
	flag.Parse()
	if err := start.Start(context.Background(), 5*time.Second, run); err != nil {
		log.Print(err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	rqllog.Init(cfg.LogLevel)

	eng, err := engine.Open(engine.Config{
		SchemaDir:     cfg.SchemaDir,
		DataDir:       cfg.DataDir,
		WorkgroupSize: cfg.WorkgroupSize,
	}, nil)
	if err != nil {
		return err
	}
	defer eng.Close()

	return start.RunAll(ctx, func(ctx context.Context) error {
		return repl.New(eng, os.Stdin, os.Stdout, os.Stderr).Run(ctx)
	})
}
