package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"tankarena/internal/client"
	"tankarena/internal/config"
	"tankarena/internal/sim"
	"tankarena/internal/watch"
	"tankarena/pkg/logger"
)

func main() {
	configPath := flag.String("config", config.DefaultFile, "Path to TOML config file")
	serverAddr := flag.String("server", "", "Server host:port (overrides config)")
	circle := flag.Bool("circle", false, "Drive in a circle and fire instead of idling")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	logger.Init(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		logger.Log.WithError(err).Fatal("load config")
	}
	if *serverAddr != "" {
		cfg.Client.Server = *serverAddr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	session, err := client.Dial(ctx, cfg.StreamURL())
	if err != nil {
		logger.Log.WithError(err).Fatal("join")
	}
	logger.Log.WithField("player", int(session.Player())).Info("joined")

	loop := &client.HeadlessLoop{
		Renderer: &client.StatsRenderer{LogEvery: client.FrameRate},
	}
	if *circle {
		loop.Script = func(frame uint64) sim.Input {
			return sim.Input{
				Drive:  sim.DriveForward,
				Rotate: sim.TurnLeft,
				Fire:   frame%client.FrameRate == 0,
			}
		}
	}

	inputs := watch.New(sim.Input{})
	states := watch.New(session.Initial())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return session.Run(gctx, inputs, states) })
	g.Go(func() error { return loop.Run(gctx, inputs, states) })
	if err := g.Wait(); err != nil {
		logger.Log.WithError(err).Fatal("disconnected")
	}
}
