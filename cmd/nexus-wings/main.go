package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docker/go-units"
	"github.com/spf13/cobra"
	"google.golang.org/grpc"

	"github.com/nexus-wings/wings/api/proto"
	"github.com/nexus-wings/wings/pkg/auth"
	"github.com/nexus-wings/wings/pkg/config"
	"github.com/nexus-wings/wings/pkg/console"
	"github.com/nexus-wings/wings/pkg/events"
	"github.com/nexus-wings/wings/pkg/grpcserver"
	"github.com/nexus-wings/wings/pkg/heartbeat"
	"github.com/nexus-wings/wings/pkg/httpserver"
	"github.com/nexus-wings/wings/pkg/lifecycle"
	"github.com/nexus-wings/wings/pkg/log"
	"github.com/nexus-wings/wings/pkg/network"
	"github.com/nexus-wings/wings/pkg/registry"
	"github.com/nexus-wings/wings/pkg/runtime"
	"github.com/nexus-wings/wings/pkg/wsmux"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "nexus-wings",
	Short: "Nexus Wings - node daemon for the Nexus Panel",
	Long: `Nexus Wings runs on every node the Panel manages. It executes and
supervises workload containers, serves the Panel's HTTP and gRPC
commands, and reports node health and per-workload telemetry back.`,
	Version: Version,
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Nexus Wings version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().String("config", "/etc/nexus-wings/config.toml", "Path to the TOML configuration file")
	rootCmd.PersistentFlags().String("log-level", "", "Override the configured log level (debug, info, warn, error)")

	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the daemon",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")
		logLevel, _ := cmd.Flags().GetString("log-level")
		return run(configPath, logLevel)
	},
}

func run(configPath, logLevelOverride string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	level := cfg.Logging.Level
	if logLevelOverride != "" {
		level = logLevelOverride
	}
	logOutput := os.Stdout
	if cfg.Logging.File != "" {
		f, err := os.OpenFile(cfg.Logging.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("open log file: %w", err)
		}
		defer f.Close()
		logOutput = f
	}
	log.Init(log.Config{Level: log.Level(level), JSONOutput: true, Output: logOutput})

	if err := os.MkdirAll(cfg.Storage.DataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	adapter, err := runtime.NewContainerdAdapter(cfg.Docker.Socket, cfg.Storage.DataDir+"/.logs")
	if err != nil {
		return fmt.Errorf("connect to container runtime: %w", err)
	}
	defer adapter.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := adapter.EnsureNetwork(ctx); err != nil {
		log.Logger.Warn().Err(err).Msg("failed to ensure managed bridge network")
	}

	memTotal, _ := heartbeat.MemoryUsage()
	log.Logger.Info().
		Str("version", Version).
		Str("data_dir", cfg.Storage.DataDir).
		Str("total_memory", units.BytesSize(float64(memTotal))).
		Msg("starting nexus-wings")

	specs := registry.Load(cfg.Storage.DataDir)
	consoles := console.NewRegistry()
	bus := events.NewBus()
	ports := network.NewPortPublisher()

	engine := lifecycle.New(lifecycle.Config{
		Adapter:   adapter,
		Registry:  specs,
		Consoles:  consoles,
		Bus:       bus,
		Ports:     ports,
		DataDir:   cfg.Storage.DataDir,
		PanelURL:  cfg.Panel.URL,
		PanelAuth: cfg.BearerToken(),
	})
	engine.RestorePublishedPorts(ctx)

	creds := auth.Credentials{TokenID: cfg.Panel.TokenID, Token: cfg.Panel.Token}

	httpSrv := httpserver.New(httpserver.Config{
		Engine:  engine,
		Adapter: adapter,
		WSMux:   wsmux.New(adapter, consoles, engine),
		Creds:   creds,
		Addr:    fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port),
		DataDir: cfg.Storage.DataDir,
		Version: Version,
		TLSCert: cfg.API.TLSCert,
		TLSKey:  cfg.API.TLSKey,
	})

	grpcSrv := grpc.NewServer(
		grpc.ForceServerCodec(proto.Codec{}),
		grpc.UnaryInterceptor(grpcserver.AuthUnaryInterceptor(creds)),
		grpc.StreamInterceptor(grpcserver.AuthStreamInterceptor(creds)),
	)
	proto.RegisterNexusServiceServer(grpcSrv,
		grpcserver.New(engine, adapter, bus, cfg.Storage.DataDir, Version))

	grpcAddr := fmt.Sprintf("%s:%d", cfg.API.Host, cfg.GRPCPort())
	grpcListener, err := net.Listen("tcp", grpcAddr)
	if err != nil {
		return fmt.Errorf("listen on gRPC address %s: %w", grpcAddr, err)
	}

	hb := heartbeat.New(adapter, cfg.Panel.URL, cfg.BearerToken(), cfg.Storage.DataDir, Version)
	go hb.Run(ctx)

	go func() {
		log.Logger.Info().Str("addr", grpcAddr).Msg("gRPC server listening")
		if err := grpcSrv.Serve(grpcListener); err != nil {
			log.Logger.Error().Err(err).Msg("gRPC server exited")
		}
	}()
	go func() {
		<-ctx.Done()
		grpcSrv.GracefulStop()
	}()

	log.Logger.Info().Str("addr", fmt.Sprintf("%s:%d", cfg.API.Host, cfg.API.Port)).
		Msg("HTTP server listening")
	if err := httpSrv.Run(ctx); err != nil {
		return fmt.Errorf("http server: %w", err)
	}

	// Let in-flight writes to the Panel and event stream flush.
	time.Sleep(1 * time.Second)
	log.Logger.Info().Msg("shutdown complete")
	return nil
}
