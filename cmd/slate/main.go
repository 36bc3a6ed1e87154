package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strconv"

	"github.com/rs/zerolog"

	"github.com/slatehq/slate/pkg/engine"
	"github.com/slatehq/slate/pkg/httpapi"
	"github.com/slatehq/slate/pkg/mcpserver"
	"github.com/slatehq/slate/pkg/otel"
	"github.com/slatehq/slate/pkg/store/entstore"

	_ "github.com/slatehq/slate/pkg/adapters/extract/gemini"
	_ "github.com/slatehq/slate/pkg/adapters/extract/openai"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

func main() {
	var showVersion bool
	var runMCP bool
	var addr, dsn string
	var snapshotEvery int64

	flag.BoolVar(&showVersion, "version", false, "print version and exit")
	flag.BoolVar(&runMCP, "mcp", false, "serve MCP tools over stdio instead of HTTP")
	flag.StringVar(&addr, "addr", getEnv("SLATE_ADDR", ":8080"), "http listen address")
	flag.StringVar(&dsn, "db", getEnv("DATABASE_URL", "sqlite:file:slate.db?_pragma=busy_timeout(5000)"), "database DSN (sqlite: or postgres:)")
	flag.Int64Var(&snapshotEvery, "snapshot-every", getEnvInt64("SLATE_SNAPSHOT_EVERY", engine.DefaultSnapshotEvery), "events between snapshots, <=0 disables")
	flag.Parse()

	if showVersion {
		fmt.Printf("slate %s (commit=%s, date=%s)\n", version, commit, date)
		return
	}

	log := zerolog.New(os.Stderr).With().Timestamp().Logger()
	ctx := context.Background()

	shutdown, err := otel.Init(ctx, otel.Config{ServiceName: "slate", ServiceVersion: version})
	if err != nil {
		log.Fatal().Err(err).Msg("otel init failed")
	}
	defer func() { _ = shutdown(context.Background()) }()

	st, err := entstore.Open(ctx, dsn)
	if err != nil {
		log.Fatal().Err(err).Msg("store open failed")
	}
	defer func() { _ = st.Close() }()
	if err := st.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("migrate failed")
	}

	eng := engine.New(st, engine.WithSnapshotEvery(snapshotEvery), engine.WithLogger(log))
	defer eng.Wait()

	if runMCP {
		srv, err := mcpserver.New(eng, version)
		if err != nil {
			log.Fatal().Err(err).Msg("mcp server init failed")
		}
		if err := srv.Run(ctx); err != nil {
			log.Fatal().Err(err).Msg("mcp server stopped")
		}
		return
	}

	server := &http.Server{Addr: addr, Handler: httpapi.New(eng, log).Handler()}
	log.Info().Str("addr", addr).Msg("listening")
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatal().Err(err).Msg("server error")
	}
}

func getEnv(key string, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}
