package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/talkincode/netmon/config"
	"github.com/talkincode/netmon/internal/adminapi"
	"github.com/talkincode/netmon/internal/app"
	"github.com/talkincode/netmon/internal/webserver"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	h        = flag.Bool("h", false, "help usage")
	showVer  = flag.Bool("v", false, "show version")
	conffile = flag.String("c", "", "config yaml file")
	debug    = flag.Bool("debug", false, "debug mode")
	initdb   = flag.Bool("initdb", false, "drop and recreate the database schema")
	noStart  = flag.Bool("no-monitor", false, "do not start the sweep loop at launch")
)

func main() {
	flag.Parse()

	if *showVer {
		fmt.Println(Version)
		return
	}
	if *h {
		flag.Usage()
		return
	}

	cfg := config.MustLoadConfig(*conffile)
	if *debug {
		cfg.System.Debug = true
		cfg.Logger.Mode = "development"
	}
	if *noStart {
		cfg.Monitor.Autostart = false
	}

	if err := run(cfg); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cfg *config.AppConfig) error {
	application := app.NewApplication(cfg)
	application.Init(cfg)
	defer application.Release()

	if *initdb {
		application.InitDb()
		zap.L().Info("database schema recreated")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := webserver.Init(cfg, application)
	adminapi.Init()

	application.StartBackgroundJobs(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		zap.L().Info("shutting down admin api server")
		return server.Shutdown(context.Background())
	})
	return g.Wait()
}
