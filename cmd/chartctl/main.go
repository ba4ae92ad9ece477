// Command chartctl reads and writes cached charts from the command line.
//
//	chartctl [-url URL] [-key KEY] health
//	chartctl [-url URL] [-key KEY] get <basketId> <year>
//	chartctl [-url URL] [-key KEY] put <year> <file.json|->
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/kjannette/chart-cache/internal/client"
	"github.com/kjannette/chart-cache/internal/models"
)

func main() {
	_ = godotenv.Load()

	url := flag.String("url", envOr("CHART_CACHE_URL", "http://localhost:8000"), "chart cache base URL")
	key := flag.String("key", os.Getenv("CHART_CACHE_API_KEY"), "shared secret sent as X-Api-Key")
	timeout := flag.Duration("timeout", 30*time.Second, "request timeout")
	flag.Usage = usage
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if err := run(ctx, client.New(*url, *key), flag.Args(), os.Stdin, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "chartctl: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, c *client.Client, args []string, stdin io.Reader, stdout io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("missing command (health, get, put)")
	}

	switch args[0] {
	case "health":
		h, err := c.Health(ctx)
		if err != nil {
			return err
		}
		return printJSON(stdout, h)

	case "get":
		if len(args) != 3 {
			return fmt.Errorf("usage: get <basketId> <year>")
		}
		year, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid year %q", args[2])
		}
		p, err := c.GetChart(ctx, args[1], year)
		if err != nil {
			return err
		}
		return printJSON(stdout, p)

	case "put":
		if len(args) != 3 {
			return fmt.Errorf("usage: put <year> <file.json|->")
		}
		year, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid year %q", args[1])
		}
		p, err := readPayload(args[2], stdin)
		if err != nil {
			return err
		}
		updatedAt, err := c.PutChart(ctx, year, p)
		if err != nil {
			return err
		}
		return printJSON(stdout, models.WriteResult{OK: true, UpdatedAtMs: updatedAt})
	}

	return fmt.Errorf("unknown command %q", args[0])
}

func readPayload(path string, stdin io.Reader) (*models.ChartPayload, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}

	var in models.ChartPayloadInput
	if err := json.NewDecoder(r).Decode(&in); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return in.Payload()
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `usage: chartctl [flags] <command>

commands:
  health                      check the server is up
  get <basketId> <year>       print a cached chart
  put <year> <file.json|->    store a chart (basketId is taken from the file)

flags:
`)
	flag.PrintDefaults()
}
