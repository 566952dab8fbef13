package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/friend-links/auth"
	"github.com/jrsteele09/friend-links/internal/config"
	"github.com/jrsteele09/friend-links/internal/logging"
	"github.com/jrsteele09/friend-links/kvstore"
	"github.com/jrsteele09/friend-links/links"
	"github.com/jrsteele09/friend-links/provider"
	"github.com/jrsteele09/friend-links/server"
	"github.com/jrsteele09/friend-links/server/authflowrepo"
	"github.com/jrsteele09/friend-links/token"
	"github.com/rs/zerolog/log"
)

const (
	shutdownTimeout   = 5 * time.Second
	readHeaderTimeout = 10 * time.Second
	sweepInterval     = time.Minute
)

func main() {
	if err := run(); err != nil {
		log.Fatal().Err(err).Msg("error running server")
	}
	log.Info().Msg("server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.New()
	if err != nil {
		return err
	}
	logging.Setup(c.GetEnv(), c.GetLogLevel())
	displayAppname(c.GetAppName())
	warnOnMissingSecrets(c)

	store, err := newStore(context.Background(), c)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Err(err).Msg("failed to close store")
		}
	}()

	httpServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           server.New(c, newServices(c, store)),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- listenAndServe(httpServer) }()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(httpServer)
}

func newServices(c config.Config, store kvstore.Store) server.Services {
	gh := provider.NewGitHub(provider.Config{
		ClientID:        c.GetGitHubClientID(),
		ClientSecret:    c.GetGitHubClientSecret(),
		Scopes:          c.GetGitHubScopes(),
		IdentityTimeout: c.GetGitHubUserTimeout(),
		ExchangeTimeout: c.GetGitHubExchangeTimeout(),
	})
	codec := token.NewCodec(token.NewHMACSigner(c.GetJWTSecret()), token.WithTTL(c.GetSessionTokenTTL()))
	states := authflowrepo.NewStoreRepo(store, c.GetAuthStateTTL())

	return server.Services{
		Flow:  auth.NewFlow(states, gh, codec, auth.WithAdminLogin(c.GetAdminLogin())),
		Links: links.NewService(store),
		Store: store,
	}
}

func newStore(ctx context.Context, c config.StoreConfig) (kvstore.Store, error) {
	switch c.GetStoreDriver() {
	case config.StoreDriverMemory:
		log.Warn().Msg("using in-memory store; state and links are lost on restart")
		return kvstore.NewInMemoryStore(kvstore.WithSweepInterval(sweepInterval)), nil
	case config.StoreDriverRedis:
		store, err := kvstore.NewRedisStore(ctx, kvstore.RedisConfig{
			URL:       c.GetRedisURL(),
			Addr:      c.GetRedisAddr(),
			Password:  c.GetRedisPassword(),
			DB:        c.GetRedisDB(),
			KeyPrefix: c.GetRedisKeyPrefix(),
		})
		if err != nil {
			return nil, fmt.Errorf("[main newStore] %w", err)
		}
		log.Info().Str("addr", c.GetRedisAddr()).Msg("connected to redis")
		return store, nil
	}
	return nil, fmt.Errorf("[main newStore] unknown store driver %q", c.GetStoreDriver())
}

func warnOnMissingSecrets(c config.Config) {
	if c.GetGitHubClientID() == "" || c.GetGitHubClientSecret() == "" {
		log.Warn().Msg("GITHUB_CLIENT_ID or GITHUB_CLIENT_SECRET not set; logins will fail")
	}
	if c.GetJWTSecret() == "" {
		log.Warn().Msg("JWT_SECRET not set; session tokens cannot be issued")
	}
	if c.GetAdminLogin() == "" {
		log.Warn().Msg("ADMIN_LOGIN not set; link moderation is disabled")
	}
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
