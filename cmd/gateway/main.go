package main

import (
	"context"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"

	"github.com/IceFireDB/IceFireDB-Gateway/internal/gateway"
	"github.com/IceFireDB/IceFireDB-Gateway/pkg/config"
	"github.com/IceFireDB/IceFireDB-Gateway/pkg/ipfs"
	"github.com/IceFireDB/IceFireDB-Gateway/pkg/monitor"
	"github.com/IceFireDB/IceFireDB-Gateway/pkg/namesys"
	"github.com/IceFireDB/IceFireDB-Gateway/utils"
)

// BuildDate: Binary file compilation time
// BuildVersion: Binary compiled GIT version
var (
	BuildDate    string
	BuildVersion string
)

func main() {
	app := cli.NewApp()
	app.Name = "IceFireDB-Gateway"
	app.Description = "IceFireDB-Gateway, serves ipfs: and ipns: content to a host runtime over a nonce-gated local listener."
	app.Version = BuildVersion
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:  "config,c",
			Usage: "config file",
			Value: "config/config.yaml",
		},
		cli.StringFlag{
			Name:  "log,l",
			Usage: "log level: debug, info, warning, error",
			Value: "info",
		},
	}
	app.Before = initConfig
	app.Action = start
	err := app.Run(os.Args)
	if err != nil {
		logrus.Errorf("failed to run application: %v", err)
		os.Exit(1)
	}
}

func initConfig(c *cli.Context) error {
	lv, err := logrus.ParseLevel(c.String("log"))
	if err != nil {
		return err
	}
	logrus.SetLevel(lv)

	if err := config.Load(c.String("config")); err != nil {
		return err
	}

	if level := config.Get().Log.Level; level != "" {
		lv, err := logrus.ParseLevel(level)
		if err != nil {
			return err
		}
		logrus.SetLevel(lv)
	}
	debug()
	return nil
}

func debug() {
	// Open pprof
	if config.Get().PprofDebug.Enable {
		utils.GoWithRecover(func() {
			addr := strconv.Itoa(int(config.Get().PprofDebug.Port))
			_ = http.ListenAndServe("127.0.0.1:"+addr, nil)
		}, nil)
	}
}

func start(c *cli.Context) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	conf := config.Get()

	daemon := ipfs.NewDaemon(conf.IPFSConfig())
	defer daemon.Close()

	lookup, err := namesys.NewLookupTXT(conf.DNS.ResolverMap())
	if err != nil {
		return err
	}

	srv, err := gateway.New(daemon, namesys.NewResolver(lookup))
	if err != nil {
		return err
	}
	if err := srv.Listen(conf.Gateway.Host, conf.Gateway.Port); err != nil {
		return err
	}

	if conf.Monitor.Enable {
		if err := monitor.RunPrometheusExporter(&conf.Monitor, daemon.CacheMetrics); err != nil {
			return err
		}
	}

	daemon.Setup()

	// The host runtime reads these two lines to register the scheme handler.
	fmt.Println("listener address:", srv.State().ListenAddr)
	fmt.Println("nonce:", srv.State().Nonce)

	go exitSignal(cancel)
	return srv.Run(ctx)
}

func exitSignal(cancel context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGHUP, syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT)
	for sig := range sigs {
		switch sig {
		case syscall.SIGQUIT, syscall.SIGTERM, syscall.SIGINT:
			logrus.Info("Received shutdown signal, initiating graceful shutdown...")
			cancel()
			return
		case syscall.SIGHUP:
			logrus.Info("Received SIGHUP signal, reload is not supported.")
		}
	}
}
