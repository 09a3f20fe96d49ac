package main

import (
	"context"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	"homehub/internal/adapters/input/http"
	"homehub/internal/adapters/input/ssdp"
	"homehub/internal/adapters/output/interpreter"
	"homehub/internal/adapters/output/persistence"
	"homehub/internal/config"
	"homehub/internal/domain/command"
	"homehub/internal/domain/service"
	"homehub/internal/domain/voice"
	"homehub/internal/logging"
	"homehub/internal/ports"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "homehub",
		Short:         "Home device hub with voice control",
		Version:       version,
		SilenceUsage:  true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./homehub.yaml)")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the hub: HTTP, websockets, Hue emulation and discovery",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath, cmd.Flags())
			if err != nil {
				return err
			}
			log := logging.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, log)
		},
	}
	config.RegisterFlags(serveCmd.Flags())

	devicesCmd := &cobra.Command{
		Use:   "devices",
		Short: "List the device catalog and its spoken aliases",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath, cmd.Flags())
			if err != nil {
				return err
			}
			catalog, err := service.NewCatalogService(persistence.NewJSONCatalogRepository(cfg.Catalog.Path)).Load(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCATEGORY\tNUMBER\tALIASES")
			for _, spec := range catalog.Specs() {
				number := "-"
				if spec.Number > 0 {
					number = strconv.Itoa(spec.Number)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", spec.ID, spec.Name, spec.Category, number, strings.Join(spec.Aliases, ", "))
			}
			return w.Flush()
		},
	}
	devicesCmd.Flags().String("catalog", config.DefaultConfig().Catalog.Path, "device catalog file")

	rootCmd.AddCommand(serveCmd, devicesCmd)
	return rootCmd
}

func serve(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	catalogs := service.NewCatalogService(persistence.NewJSONCatalogRepository(cfg.Catalog.Path))
	catalog, err := catalogs.Load(ctx)
	if err != nil {
		return err
	}

	hub := service.NewHub(service.NewDeviceStore(catalog, time.Now), log, cfg.Hub.MaxPending)
	defer hub.Close()

	// A nil *interpreter.Client must not reach the dispatcher as a non-nil
	// interface.
	var interp ports.Interpreter
	if cfg.Interpreter.URL != "" {
		client := interpreter.NewClient(cfg.Interpreter.Timeout)
		client.Configure(cfg.Interpreter.URL, cfg.Interpreter.Token)
		interp = client
	}

	clock := voice.RealClock()
	parser := command.NewParser(catalog)
	dispatcher := voice.NewDispatcher(hub, parser, service.NewDebounceGuard(cfg.Voice.Debounce), interp, clock, log)
	voiceService := voice.NewService(cfg.VoiceSettings(), clock, parser, dispatcher, log)

	host := cfg.HTTP.PublicHost
	if host == "" {
		host = getLocalIP()
	}
	if host == "" {
		return fmt.Errorf("could not determine local IP, set http.public_host")
	}
	port, err := cfg.Port()
	if err != nil {
		return err
	}

	log.Info().
		Str("host", host).
		Int("port", port).
		Int("devices", len(catalog.Specs())).
		Bool("interpreter", interp != nil).
		Msg("starting homehub")

	server := http.NewServer(hub, dispatcher, voiceService, catalogs, http.Options{
		Host:         host,
		Port:         port,
		WriteTimeout: cfg.Hub.WriteTimeout,
	}, log)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.ListenAndServe(ctx, cfg.HTTP.Addr)
	})
	if cfg.SSDP.Enabled {
		g.Go(func() error {
			// discovery is optional; the API keeps running without it
			if err := ssdp.NewServer(host, port, log).Start(ctx); err != nil {
				log.Warn().Err(err).Msg("ssdp responder stopped")
			}
			return nil
		})
	}
	return g.Wait()
}

func getLocalIP() string {
	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return ""
	}
	for _, address := range addrs {
		if ipnet, ok := address.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ipnet.IP.To4() != nil {
				return ipnet.IP.String()
			}
		}
	}
	return ""
}
