package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lukasbauer/vocalkart/internal/app"
	"github.com/lukasbauer/vocalkart/internal/httpapi"
	"github.com/lukasbauer/vocalkart/internal/voice"
)

// drainTimeout bounds how long shutdown waits for open voice sessions.
const drainTimeout = 30 * time.Second

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	addr := cli.StringP("addr", "a", "", "HTTP listen address (overrides HTTP_ADDR)")
	issueToken := cli.String("issue-token", "", "Print a JWT for this seller id and exit")
	cli.Parse()

	logger := log.New(os.Stdout, "", log.LstdFlags)

	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		logger.Printf("env: failed to load %s: %v", *envFile, err)
	}

	cfg := app.LoadConfigFromEnv()
	if *addr != "" {
		cfg.HTTPAddr = *addr
	}

	if *issueToken != "" {
		token, expiresAt, err := httpapi.IssueToken(cfg.JWTSecret, *issueToken, cfg.JWTExpiry)
		if err != nil {
			logger.Fatalf("issue token: %v", err)
		}
		fmt.Println(token)
		logger.Printf("token for %s expires at %s", *issueToken, expiresAt.Format(time.RFC3339))
		return
	}

	// Initialize Sentry for error monitoring
	if cfg.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.SentryDSN,
			EnableTracing:    true,
			TracesSampleRate: 0.2,
			Environment:      cfg.Environment,
		})
		if err != nil {
			logger.Printf("sentry init failed: %v", err)
		} else {
			logger.Printf("sentry initialized")
			defer sentry.Flush(2 * time.Second)
		}
	}

	a, err := app.New(cfg, logger)
	if err != nil {
		if cfg.SentryDSN != "" {
			sentry.CaptureException(err)
			sentry.Flush(2 * time.Second)
		}
		logger.Fatalf("init app: %v", err)
	}

	sessions := voice.NewSessionRegistry()
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           a.Router(sessions),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Printf("listening on %s", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()

	// Refuse new voice sessions and ask open ones to finish their turn.
	sessions.StartDraining()
	logger.Printf("draining %d voice sessions", sessions.ActiveCount())

	drained := make(chan struct{})
	go func() {
		sessions.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(drainTimeout):
		logger.Printf("drain timeout, %d voice sessions still open", sessions.ActiveCount())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(shutdownCtx)
	_ = a.Close()
}
