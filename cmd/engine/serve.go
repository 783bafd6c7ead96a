package main

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

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"northscrape-engine/internal/config"
	"northscrape-engine/internal/httpapi"
)

var (
	serveAddr    string
	serveToken   string
	serveOrigins []string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP engine",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		eng, err := newEngine(ctx, cfg)
		if err != nil {
			return err
		}
		defer eng.Close()

		token := serveToken
		if token == "" {
			token = os.Getenv(config.EnvPrefix + "_SHUTDOWN_TOKEN")
		}
		if token == "" {
			if token, err = randomToken(16); err != nil {
				return eris.Wrap(err, "shutdown token")
			}
			// the desktop shell reads this line from the sidecar's stdout
			fmt.Fprintf(cmd.OutOrStdout(), "shutdown-token=%s\n", token)
		}

		dataDir := cfg.App.DataDir
		router := httpapi.NewRouter(httpapi.Deps{
			Runs:        eng.runs,
			Store:       eng.store,
			CfgVal:      configValue(cfg),
			UserCfgPath: userCfgPath,
			LoadCfg: func() (config.Config, error) {
				c, err := config.Load(userCfgPath)
				if err != nil {
					return config.Config{}, err
				}
				c.App.DataDir = dataDir
				c, _ = config.NormalizeAndValidate(c)
				return c, nil
			},
			AllowedOrigins: serveOrigins,
		})

		mux := http.NewServeMux()
		mux.Handle("/", router)
		mux.Handle("/shutdown", shutdownHandler(token, stop))

		addr := serveAddr
		if addr == "" {
			addr = cfg.App.Addr
		}
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return eris.Wrapf(err, "listen %s", addr)
		}

		srv := &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
			// request contexts end with ctx so event streams close on shutdown
			BaseContext: func(net.Listener) context.Context { return ctx },
		}

		go func() {
			<-ctx.Done()
			zap.L().Info("serve: shutting down")
			sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(sctx); err != nil {
				zap.L().Warn("serve: shutdown", zap.Error(err))
			}
		}()

		zap.L().Info("serve: listening",
			zap.String("addr", "http://"+ln.Addr().String()),
			zap.String("config", userCfgPath))
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "serve")
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from config)")
	serveCmd.Flags().StringVar(&serveToken, "shutdown-token", "", "token required by POST /shutdown (default $NORTHSCRAPE_SHUTDOWN_TOKEN or random)")
	serveCmd.Flags().StringSliceVar(&serveOrigins, "allow-origin", nil, "CORS origins (default any)")
	rootCmd.AddCommand(serveCmd)
}
