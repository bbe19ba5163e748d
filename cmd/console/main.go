package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"github.com/Brownie44l1/imgclass-api/internal/classify"
	"github.com/Brownie44l1/imgclass-api/internal/config"
	"github.com/Brownie44l1/imgclass-api/internal/fetch"
	"github.com/Brownie44l1/imgclass-api/internal/model"
	"github.com/Brownie44l1/imgclass-api/internal/session"
)

func main() {
	if err := mainImpl(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func mainImpl() error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return err
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	classifier, err := model.NewClassifier(model.Config{
		ModelPath:      cfg.ModelPath,
		MetadataPath:   cfg.MetadataPath,
		ORTLibraryPath: cfg.ORTLibraryPath,
	}, logger)
	if err != nil {
		return err
	}
	defer classifier.Close()

	fetcher := fetch.NewCachingFetcher(fetch.NewHTTPClient(fetch.Config{
		Timeout:   cfg.FetchTimeout,
		MaxBytes:  cfg.FetchMaxBytes,
		UserAgent: cfg.UserAgent,
	}, logger), fetch.NewMemoryCache(cfg.CacheMaxEntries), logger)

	service := classify.NewService(fetcher, classifier, classify.Settings{
		Defaults: classify.Params{
			TopK:       cfg.DefaultTopK,
			Threshold:  cfg.DefaultThreshold,
			CenterCrop: cfg.DefaultCenterCrop,
		},
		MaxTopK:   cfg.MaxTopK,
		MaxPixels: cfg.MaxImagePixels,
	}, logger)
	sess, _ := session.NewStore(0, logger).Get("")

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "> ",
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return err
	}
	defer func() {
		_ = rl.Close()
	}()

	c := newConsole(service, sess, rl.Stdout())
	fmt.Fprintln(c.out, "Type 'help' for commands.")
	for {
		line, err := rl.Readline()
		if err != nil { // io.EOF or interrupt
			break
		}
		if c.exec(context.Background(), strings.TrimSpace(line)) {
			break
		}
	}
	return nil
}
