package main

import (
	"fmt"

	"github.com/andresuchdata/restock-advisor/internal/domain"
	"github.com/urfave/cli/v2"
)

func commands() []*cli.Command {
	return []*cli.Command{
		{
			Name:   "products",
			Usage:  "Import the product master (sku, lead_time_days, ...)",
			Flags:  []cli.Flag{fileFlag()},
			Action: importProducts,
		},
		{
			Name:   "import",
			Usage:  "Import daily sales (product_id|sku, date, quantity)",
			Flags:  []cli.Flag{fileFlag()},
			Action: importSales,
		},
		{
			Name:  "drive-import",
			Usage: "Import every sales file in a Google Drive folder",
			Flags: []cli.Flag{
				&cli.StringFlag{
					Name:    "folder",
					Usage:   "Drive folder ID",
					EnvVars: []string{"GOOGLE_DRIVE_FOLDER_ID"},
				},
				&cli.StringFlag{
					Name:  "path",
					Usage: "Drive folder path from the root, used when --folder is empty",
				},
			},
			Action: driveImport,
		},
		{
			Name:  "train",
			Usage: "Evaluate candidate models and store the best one",
			Flags: []cli.Flag{
				&cli.Int64Flag{Name: "product", Aliases: []string{"p"}, Usage: "Product ID"},
				&cli.BoolFlag{Name: "global", Usage: "Train the model pooled over all products"},
			},
			Action: train,
		},
		{
			Name:  "forecast",
			Usage: "Print a demand forecast for a product",
			Flags: []cli.Flag{
				productFlag(),
				&cli.IntFlag{Name: "horizon", Usage: "Days ahead (defaults to FORECAST_HORIZON_DAYS)"},
			},
			Action: forecast,
		},
		{
			Name:   "decide",
			Usage:  "Compute the reorder decision for a product",
			Flags:  []cli.Flag{productFlag()},
			Action: decide,
		},
		{
			Name:   "run",
			Usage:  "Decide every product and emit alerts",
			Action: runAll,
		},
		{
			Name:  "alerts",
			Usage: "List open alerts",
			Action: func(c *cli.Context) error {
				a := fromContext(c)
				open := false
				alerts, err := a.Restock.Alerts(c.Context, domain.AlertFilter{Acknowledged: &open})
				if err != nil {
					return err
				}
				summary, err := a.Restock.AlertSummary(c.Context)
				if err != nil {
					return err
				}
				fmt.Fprintln(c.App.Writer, summary.Text)
				return printJSON(c.App.Writer, alerts)
			},
		},
	}
}

func importProducts(c *cli.Context) error {
	a := fromContext(c)
	path := c.String("file")

	f, err := openFile(path)
	if err != nil {
		return err
	}
	defer f.Close()

	report, err := a.Importer.ImportProducts(c.Context, path, f)
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, report)
}

func importSales(c *cli.Context) error {
	report, err := fromContext(c).Importer.ImportFile(c.Context, c.String("file"))
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, report)
}

func driveImport(c *cli.Context) error {
	a := fromContext(c)
	if a.DriveSync == nil {
		return fmt.Errorf("drive import requires GOOGLE_DRIVE_CREDENTIALS_JSON")
	}

	folder := c.String("folder")
	if folder == "" && c.String("path") != "" {
		id, err := a.Drive.FindFolderByPath(c.Context, c.String("path"))
		if err != nil {
			return err
		}
		folder = id
	}

	results, err := a.DriveSync.SyncFolder(c.Context, folder)
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, results)
}

func train(c *cli.Context) error {
	a := fromContext(c)
	switch {
	case c.Bool("global"):
		result, err := a.Restock.TrainGlobal(c.Context)
		if err != nil {
			return err
		}
		return printJSON(c.App.Writer, result)
	case c.Int64("product") > 0:
		result, err := a.Restock.Train(c.Context, c.Int64("product"))
		if err != nil {
			return err
		}
		return printJSON(c.App.Writer, result)
	default:
		return fmt.Errorf("either --product or --global is required")
	}
}

func forecast(c *cli.Context) error {
	fc, err := fromContext(c).Restock.Forecast(c.Context, c.Int64("product"), c.Int("horizon"))
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, fc)
}

func decide(c *cli.Context) error {
	result, err := fromContext(c).Restock.Decide(c.Context, c.Int64("product"))
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, result.Decision.Explanation)
	return printJSON(c.App.Writer, result)
}

func runAll(c *cli.Context) error {
	run, err := fromContext(c).Orchestrator.RunAll(c.Context)
	if run != nil {
		if perr := printJSON(c.App.Writer, run); perr != nil {
			return perr
		}
	}
	return err
}
