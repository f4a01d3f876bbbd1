package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/spf13/cobra"

	"github.com/relabs-tech/drinks/core/access"
	"github.com/relabs-tech/drinks/core/backend"
	"github.com/relabs-tech/drinks/core/drinks"
	"github.com/relabs-tech/drinks/core/logger"
	"github.com/relabs-tech/drinks/core/registry"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		service, err := loadService()
		if err != nil {
			return err
		}
		return serve(cmd.Context(), service)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context, service *Service) error {
	rlog := logger.Default()

	db := service.OpenDB()
	defer db.Close()

	repository := drinks.NewPostgres(db)
	if service.UpdateSchema {
		if err := repository.Migrate(ctx); err != nil {
			return err
		}
	}

	jwksRegistry := registry.New(db).Accessor("_jwks_")
	keys := access.NewRemoteKeySet(&access.RemoteKeySetBuilder{
		URL:             service.JWKSURL(),
		Registry:        &jwksRegistry,
		RefreshInterval: service.JWKSRefresh,
	})

	notifier, closeNotifier := service.Notifier()
	defer func() {
		if err := closeNotifier(); err != nil {
			rlog.WithError(err).Errorln("cannot close notifier")
		}
	}()

	router := mux.NewRouter()
	logger.AddRequestID(router)
	backend.New(&backend.Builder{
		Router:     router,
		Repository: repository,
		Verifier: access.NewJwtVerifier(&access.JwtVerifierBuilder{
			Issuer:   service.Issuer(),
			Audience: service.APIAudience,
			Keys:     keys,
		}),
		Notifier: notifier,
	})

	srv := &http.Server{
		Handler:           router,
		Addr:              ":" + strconv.Itoa(service.Port),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	rlog.Infoln("listen on port", srv.Addr)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		rlog.Infoln("received", sig, "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
