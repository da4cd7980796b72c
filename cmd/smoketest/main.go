package main

import (
	"context"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/myrjola/saferroad/internal/e2etest"
	"github.com/myrjola/saferroad/internal/errors"
	"github.com/myrjola/saferroad/internal/logging"
)

// PlayGame plays two complete games, the second one after a replay, always picking road 1.
func PlayGame(ctx context.Context, logger *slog.Logger, client *e2etest.Client) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second) //nolint:mnd // 30 seconds
	defer cancel()

	pickFirst := func(int) string { return "1" }
	doc, err := client.PlayGame(ctx, pickFirst)
	if err != nil {
		return errors.Wrap(err, "play game")
	}
	score := e2etest.FinalScore(doc)
	if !strings.HasSuffix(score, "/5") {
		return errors.New("unexpected final score", slog.String("score", score))
	}
	logger.LogAttrs(ctx, slog.LevelInfo, "finished game", slog.String("score", score))

	if doc, err = client.SubmitForm(ctx, "/", "/game/replay", nil); err != nil {
		return errors.Wrap(err, "replay")
	}
	if doc.Find(".round").Length() == 0 {
		return errors.New("replay did not start a new round")
	}
	if _, err = client.PlayGame(ctx, pickFirst); err != nil {
		return errors.Wrap(err, "play game after replay")
	}
	return nil
}

func main() {
	loggerHandler := logging.NewContextHandler(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		AddSource:   false,
		Level:       slog.LevelDebug,
		ReplaceAttr: nil,
	}))
	logger := slog.New(loggerHandler)
	ctx := context.Background()

	if len(os.Args) != 2 { //nolint:mnd // we expect only hostname to be passed as argument.
		logger.LogAttrs(ctx, slog.LevelError, "usage: smoketest <hostname>")
		os.Exit(1)
	}

	var (
		hostname = os.Args[1]
		url      = "https://" + hostname
		client   *e2etest.Client
		err      error
	)
	ctx = logging.WithAttrs(ctx, slog.String("hostname", url))

	if client, err = e2etest.NewClient(url); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error creating client", errors.SlogError(err))
		os.Exit(1)
	}
	if err = client.WaitForReady(ctx, "/api/healthy"); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "server not ready", errors.SlogError(err))
		os.Exit(1)
	}
	if err = PlayGame(ctx, logger, client); err != nil {
		logger.LogAttrs(ctx, slog.LevelError, "error playing game", errors.SlogError(err))
		os.Exit(1)
	}

	logger.LogAttrs(ctx, slog.LevelInfo, "Smoke test successful")
}
