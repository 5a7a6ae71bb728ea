package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/replenish/backend-go/internal/cache"
	"github.com/andresuchdata/replenish/backend-go/internal/config"
	"github.com/andresuchdata/replenish/backend-go/internal/domain"
	"github.com/andresuchdata/replenish/backend-go/internal/repository/postgres"
	"github.com/andresuchdata/replenish/backend-go/internal/service"
	"github.com/andresuchdata/replenish/backend-go/pkg/logger"
)

func runMigrate(c *cli.Context) error {
	if err := dbFrom(c).Migrate(c.Context); err != nil {
		return err
	}
	logger.Log.Info().Msg("migrations applied")
	return nil
}

func runImport(c *cli.Context) error {
	rows, err := readImportFile(c.String("file"))
	if err != nil {
		return err
	}

	cfg := config.Load()
	db := dbFrom(c)
	catalogCache, err := cache.NewCatalogCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("catalog cache unavailable, cached catalogs may be stale")
		catalogCache = cache.NewNoopCatalogCache()
	}

	policies := service.NewPolicyService(postgres.NewPolicyRepository(db), catalogCache)
	catalog := service.NewCatalogService(postgres.NewCatalogRepository(db), policies, nil, service.CatalogOptions{
		Cache: catalogCache,
		Defaults: domain.ItemDefaults{
			LeadTimeDays:  cfg.Items.LeadTimeDays,
			MinOrderQty:   cfg.Items.MinOrderQty,
			OrderMultiple: cfg.Items.OrderMultiple,
		},
		Workers: cfg.App.IngestWorkers,
	})

	res, err := catalog.Ingest(c.Context, rows)
	if err != nil {
		return err
	}

	out := c.App.Writer
	fmt.Fprintf(out, "batch %s: %d imported, %d failed\n", res.BatchID, res.Imported, res.Failed)
	for _, w := range res.Warnings {
		fmt.Fprintf(out, "  warning: %s\n", w)
	}
	return nil
}

func readImportFile(path string) ([]domain.ImportRow, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read import file: %w", err)
	}
	var rows []domain.ImportRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decode import file %s: %w", path, err)
	}
	return rows, nil
}

func runPolicyList(c *cli.Context) error {
	list, err := service.NewPolicyService(postgres.NewPolicyRepository(dbFrom(c)), nil).List(c.Context)
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tVERSION\tMETHOD\tACTIVE")
	for _, p := range list {
		active := ""
		if p.IsActive {
			active = "*"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", p.ID, p.Name, p.Version, p.RunRateMethod, active)
	}
	return tw.Flush()
}

func runPolicyActivate(c *cli.Context) error {
	cfg := config.Load()
	catalogCache, err := cache.NewCatalogCache(cfg.Cache)
	if err != nil {
		logger.Log.Warn().Err(err).Msg("catalog cache unavailable, cached catalogs may be stale")
		catalogCache = cache.NewNoopCatalogCache()
	}

	policies := service.NewPolicyService(postgres.NewPolicyRepository(dbFrom(c)), catalogCache)
	if err := policies.SetActive(c.Context, c.String("id")); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "policy %s is now active\n", c.String("id"))
	return nil
}

func runArchiveList(c *cli.Context) error {
	list, err := service.NewArchiveService(postgres.NewArchiveRepository(dbFrom(c))).SearchByCode(c.Context, c.String("code"))
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tAPPROVER\tITEMS")
	for _, p := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", p.ID, p.ProposalDate.Format("2006-01-02 15:04"), p.CreatedBy, p.ItemsCount)
	}
	return tw.Flush()
}

func runArchiveExport(c *cli.Context) error {
	archive := service.NewArchiveService(postgres.NewArchiveRepository(dbFrom(c)))
	exports := service.NewExportService(nil, archive, nil)

	wb, err := exports.ArchiveWorkbook(c.Context, c.String("id"))
	if err != nil {
		return err
	}

	out := c.String("out")
	if out == "" {
		out = wb.Filename
	}
	if err := os.WriteFile(out, wb.Data, 0o644); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	fmt.Fprintf(c.App.Writer, "wrote %s (%d bytes)\n", out, len(wb.Data))
	return nil
}
