package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/Joseda-hg/taskmanager/internal/config"
	"github.com/Joseda-hg/taskmanager/internal/db"
	"github.com/Joseda-hg/taskmanager/internal/lock"
	"github.com/Joseda-hg/taskmanager/internal/remote"
	"github.com/Joseda-hg/taskmanager/internal/service"
	"github.com/Joseda-hg/taskmanager/internal/tui"
	"github.com/Joseda-hg/taskmanager/internal/web"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	configPathFlag := flag.String("config", "", "config file path")
	envFileFlag := flag.String("env", ".env", "dotenv file to load")
	dbPathFlag := flag.String("db", "", "sqlite db path")
	driverFlag := flag.String("driver", "", "database driver (sqlite or postgres)")
	portFlag := flag.Int("port", 0, "web server port")
	tuiFlag := flag.Bool("tui", false, "run the terminal UI next to the web server")
	flag.Parse()

	if err := config.LoadDotEnv(*envFileFlag); err != nil {
		return err
	}

	cfgPath, err := resolveConfigPath(*configPathFlag)
	if err != nil {
		return err
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return err
	}

	overrides := flagOverrides{driver: *driverFlag, dbPath: *dbPathFlag, port: *portFlag}
	cfg = overrides.apply(cfg)
	if cfg.DBPath == "" {
		cfg.DBPath = filepath.Join(filepath.Dir(cfgPath), "taskmanager.db")
	}
	if err := config.Save(cfgPath, cfg); err != nil {
		return err
	}

	// environment values are not written back to the config file
	cfg, err = config.ApplyEnv(cfg)
	if err != nil {
		return err
	}
	cfg = overrides.apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logOutput, closeLog, err := logDestination(*tuiFlag, cfgPath)
	if err != nil {
		return err
	}
	defer closeLog()
	logger := slog.New(slog.NewTextHandler(logOutput, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	locker, closeLocker, err := openLocker(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeLocker()

	svc := service.New(store,
		service.WithLocker(locker),
		service.WithSource(remote.NewClient(cfg.SyncURL, cfg.SyncTimeout())),
		service.WithLogger(logger),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.WebPort),
		Handler:           web.NewServer(svc, store, cfg.CORSOrigin, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("web server running", "addr", "http://localhost"+server.Addr, "driver", cfg.DBDriver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	if *tuiFlag {
		if err := tui.Run(svc); err != nil {
			return err
		}
	} else {
		select {
		case <-ctx.Done():
		case err := <-serverErr:
			if err != nil {
				return err
			}
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info("shutting down web server")
	return server.Shutdown(shutdownCtx)
}

type flagOverrides struct {
	driver string
	dbPath string
	port   int
}

func (f flagOverrides) apply(cfg config.Config) config.Config {
	if f.driver != "" {
		cfg.DBDriver = f.driver
	}
	if f.dbPath != "" {
		cfg.DBPath = f.dbPath
	}
	if f.port != 0 {
		cfg.WebPort = f.port
	}
	return cfg
}

func resolveConfigPath(flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	return config.DefaultConfigPath()
}

// logDestination keeps logs off the terminal while the TUI owns it.
func logDestination(tuiEnabled bool, cfgPath string) (io.Writer, func(), error) {
	if !tuiEnabled {
		return os.Stderr, func() {}, nil
	}
	path := filepath.Join(filepath.Dir(cfgPath), "taskmanager.log")
	if err := config.EnsureDir(path); err != nil {
		return nil, nil, err
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return file, func() { _ = file.Close() }, nil
}

func openStore(cfg config.Config) (*db.Store, error) {
	if cfg.DBDriver == db.DriverPostgres {
		gdb, err := db.OpenPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return db.NewStore(gdb), nil
	}

	if err := config.EnsureDir(cfg.DBPath); err != nil {
		return nil, err
	}
	return db.NewSQLiteStore(cfg.DBPath)
}

func openLocker(ctx context.Context, cfg config.Config) (lock.Locker, func(), error) {
	if cfg.RedisAddr == "" {
		return lock.NewLocal(), func() {}, nil
	}
	client, err := lock.ConnectRedis(ctx, cfg.RedisAddr)
	if err != nil {
		return nil, nil, err
	}
	return lock.NewRedis(client), func() { _ = client.Close() }, nil
}
