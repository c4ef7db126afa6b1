package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/andresuchdata/restock-advisor/internal/app"
	"github.com/andresuchdata/restock-advisor/internal/config"
	"github.com/andresuchdata/restock-advisor/pkg/logger"
	"github.com/urfave/cli/v2"
)

type appKey struct{}

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:    "db-url",
		Usage:   "Database connection string (overrides DB_* settings)",
		EnvVars: []string{"DATABASE_URL"},
	}
}

func productFlag() *cli.Int64Flag {
	return &cli.Int64Flag{
		Name:     "product",
		Aliases:  []string{"p"},
		Usage:    "Product ID",
		Required: true,
	}
}

func fileFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "file",
		Aliases:  []string{"f"},
		Usage:    "Path to a CSV or XLSX file",
		Required: true,
	}
}

func initApp(c *cli.Context) error {
	cfg := config.Load()
	logger.SetLevel(c.String("log-level"))

	store, closer, err := app.OpenStore(c.Context, &cfg.Database, c.String("db-url"))
	if err != nil {
		return err
	}

	a, err := app.New(c.Context, cfg, store)
	if err != nil {
		if closer != nil {
			closer.Close()
		}
		return err
	}
	a.AddCloser(closer)

	c.Context = context.WithValue(c.Context, appKey{}, a)
	return nil
}

func closeApp(c *cli.Context) error {
	if a, ok := c.Context.Value(appKey{}).(*app.App); ok && a != nil {
		a.Close()
	}
	return nil
}

func fromContext(c *cli.Context) *app.App {
	return c.Context.Value(appKey{}).(*app.App)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func main() {
	cliApp := &cli.App{
		Name:  "restock",
		Usage: "Demand forecasting and reorder advice",
		Flags: []cli.Flag{
			newDBURLFlag(),
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "info",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before:   initApp,
		After:    closeApp,
		Commands: commands(),
	}

	if err := cliApp.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openFile(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	return f, nil
}
