package cmd

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/santinoo1919/medtrixmap/internal/config"
	"github.com/santinoo1919/medtrixmap/internal/server"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve map sessions over websocket, plus status and source proxy endpoints",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Listen address (host:port)")
	serveCmd.Flags().String("demo-dir", "", "Directory with static client files served under /demo/")
	serveCmd.Flags().StringSlice("origins", nil, "Accepted websocket origin patterns (default: all)")
	serveCmd.Flags().String("cache-control", "no-store", "Cache-Control header for proxied source documents")
	serveCmd.Flags().Duration("shutdown-timeout", 10*time.Second, "Grace period for open connections on shutdown")

	mustBind := func(key string, name string) {
		if err := viper.BindPFlag(key, serveCmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}

	mustBind("serve.addr", "addr")
	mustBind("serve.demo_dir", "demo-dir")
	mustBind("serve.origins", "origins")
	mustBind("serve.cache_control", "cache-control")
	mustBind("serve.shutdown_timeout", "shutdown-timeout")
}

func runServe(cmd *cobra.Command, args []string) error {
	if logger == nil {
		initLogging()
	}

	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	addr := viper.GetString("serve.addr")
	demoDir := viper.GetString("serve.demo_dir")

	srv, err := server.New(server.Config{
		Sources:        cfg.Sources,
		Debounce:       cfg.Debounce,
		OriginPatterns: viper.GetStringSlice("serve.origins"),
		CacheControl:   viper.GetString("serve.cache_control"),
	}, logger)
	if err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/", srv.Handler())
	if demoDir != "" {
		fs := http.FileServer(http.Dir(demoDir))
		mux.Handle("/demo/", http.StripPrefix("/demo/", fs))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	enabled := 0
	for _, def := range cfg.Sources {
		if def.Enabled {
			enabled++
		}
	}
	logger.Info("map server listening",
		"addr", addr,
		"sources", len(cfg.Sources),
		"enabled_sources", enabled,
		"debounce", cfg.Debounce,
		"demo_dir", demoDir,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), viper.GetDuration("serve.shutdown_timeout"))
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	srv.Wait()
	return nil
}
