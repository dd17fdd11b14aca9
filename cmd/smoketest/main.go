// Command smoketest verifies that a deployed instance serves the login page
// and answers its health check. With platform credentials in the environment
// it also runs a full login and logout round-trip.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/myrjola/pelocoach/internal/e2etest"
	"github.com/myrjola/pelocoach/internal/logging"
	"github.com/myrjola/pelocoach/internal/testhelpers"
)

func testHome(client *e2etest.Client) error {
	ctx := context.Background()
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second) //nolint:mnd // 10 seconds
	defer cancel()

	doc, err := client.GetDoc(ctx, "/")
	if err != nil {
		return fmt.Errorf("get home page: %w", err)
	}
	if doc.Find("form[action='/api/login']").Length() != 1 {
		return fmt.Errorf("login form not found on home page")
	}
	return nil
}

func testAuth(client *e2etest.Client, username, password string) error {
	ctx := context.Background()
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second) //nolint:mnd // platform login is slow
	defer cancel()
	var err error

	if _, err = client.Login(ctx, username, password); err != nil {
		return fmt.Errorf("login user: %w", err)
	}
	if _, err = client.Logout(ctx); err != nil {
		return fmt.Errorf("logout user: %w", err)
	}
	return nil
}

func main() {
	logger := testhelpers.NewLogger(os.Stdout)
	ctx := context.Background()

	if len(os.Args) != 2 { //nolint:mnd // we expect only hostname to be passed as argument.
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		client   *e2etest.Client
		err      error
		start    = time.Now()
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", hostname))
	url := "https://" + hostname
	if strings.Contains(hostname, "localhost") {
		url = "http://" + hostname
	}

	if client, err = e2etest.NewClient(url); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", slog.Any("error", err))
		os.Exit(1)
	}
	if err = client.WaitForReady(ctx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not ready", slog.Any("error", err))
		os.Exit(1)
	}
	if err = testHome(client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "home page check failed", slog.Any("error", err))
		os.Exit(1)
	}

	// A login round-trip needs real platform credentials, so it only runs when
	// they are provided.
	username := os.Getenv("PELOCOACH_SMOKETEST_USERNAME")
	password := os.Getenv("PELOCOACH_SMOKETEST_PASSWORD")
	if username != "" && password != "" {
		if err = testAuth(client, username, password); err != nil {
			logger.LogAttrs(ctx, slog.LevelError, "auth check failed", slog.Any("error", err))
			os.Exit(1)
		}
	} else {
		logger.LogAttrs(ctx, slog.LevelInfo, "skipping auth check, no credentials provided")
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "smoketest passed", slog.Duration("duration", time.Since(start)))
}
