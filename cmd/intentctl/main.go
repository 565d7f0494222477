// Command intentctl runs intent detection on transcripts read from stdin,
// one per line, and prints each result as JSON.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	cli "github.com/spf13/pflag"

	"github.com/lukasbauer/vocalkart/internal/app"
	"github.com/lukasbauer/vocalkart/internal/intent"
)

func main() {
	envFile := cli.StringP("env", "e", ".env", "Env file path")
	rulesOnly := cli.BoolP("rules-only", "r", false, "Skip the language model and use the rule matcher")
	cli.Parse()

	logger := log.New(os.Stderr, "", 0)
	_ = godotenv.Load(*envFile)

	cfg := app.LoadConfigFromEnv()
	if *rulesOnly {
		cfg.OpenAIAPIKey = ""
	}
	detector := app.NewDetector(cfg, logger)

	if err := run(context.Background(), detector, os.Stdin, os.Stdout, cfg.LLMTimeout); err != nil {
		logger.Fatalf("intentctl: %v", err)
	}
}

func run(ctx context.Context, detector *intent.Detector, in io.Reader, out io.Writer, timeout time.Duration) error {
	enc := json.NewEncoder(out)
	enc.SetEscapeHTML(false)

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		lineCtx, cancel := context.WithTimeout(ctx, timeout+time.Second)
		res := detector.Process(lineCtx, line)
		cancel()
		if err := enc.Encode(res); err != nil {
			return err
		}
	}
	return scanner.Err()
}
