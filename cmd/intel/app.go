package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/urfave/cli/v2"

	"github.com/andresuchdata/stockintel/internal/config"
	"github.com/andresuchdata/stockintel/internal/domain"
	"github.com/andresuchdata/stockintel/internal/inventory/abcxyz"
	"github.com/andresuchdata/stockintel/internal/inventory/forecast"
	"github.com/andresuchdata/stockintel/internal/repository"
	"github.com/andresuchdata/stockintel/internal/repository/postgres"
	"github.com/andresuchdata/stockintel/internal/service"
	"github.com/andresuchdata/stockintel/pkg/logger"
)

func newInputFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "input",
		Aliases:  []string{"i"},
		Usage:    "JSON request file",
		Required: true,
	}
}

func newDBURLFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "db-url",
		Usage:    "Database connection string",
		Required: true,
		EnvVars:  []string{"DATABASE_URL"},
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "intel",
		Usage: "Inventory intelligence: classify, forecast, reorder and simulate",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Value:   "warn",
				Usage:   "zerolog level",
				EnvVars: []string{"LOG_LEVEL"},
			},
		},
		Before: func(c *cli.Context) error {
			logger.SetLevel(c.String("log-level"))
			return nil
		},
		Commands: []*cli.Command{
			{
				Name:   "classify",
				Usage:  "Grade items from a classify request file",
				Flags:  []cli.Flag{newInputFlag()},
				Action: runClassify,
			},
			{
				Name:  "forecast",
				Usage: "Forecast every request in a JSON array",
				Flags: []cli.Flag{
					newInputFlag(),
					&cli.IntFlag{Name: "periods", Usage: "horizon for requests that set none"},
				},
				Action: runForecast,
			},
			{
				Name:  "reorder",
				Usage: "Compute ranked reorder recommendations",
				Flags: []cli.Flag{
					newInputFlag(),
					&cli.Float64Flag{Name: "service-level", Usage: "override the configured service level"},
				},
				Action: runReorder,
			},
			{
				Name:  "simulate",
				Usage: "Run the stockout simulation for every input",
				Flags: []cli.Flag{
					newInputFlag(),
					&cli.Int64Flag{Name: "seed", Usage: "base seed for reproducible runs"},
				},
				Action: runSimulate,
			},
			{
				Name:  "evaluate",
				Usage: "Run the full pipeline over a portfolio file (products + demand)",
				Flags: []cli.Flag{
					newInputFlag(),
					&cli.BoolFlag{Name: "simulate", Value: true, Usage: "include the stockout simulation"},
					&cli.Int64Flag{Name: "seed", Usage: "base seed for reproducible runs"},
				},
				Action: runEvaluate,
			},
			{
				Name:  "snapshot",
				Usage: "Classify products from Postgres and persist grades for a period",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.StringFlag{Name: "period", Usage: "YYYY-MM, defaults to the current month"},
					&cli.IntFlag{Name: "months", Value: 12, Usage: "months of demand history to classify on"},
				},
				Action: runSnapshot,
			},
			{
				Name:  "grade-changes",
				Usage: "Compare the two latest grade snapshots from Postgres",
				Flags: []cli.Flag{
					newDBURLFlag(),
					&cli.BoolFlag{Name: "high-risk-only"},
				},
				Action: runGradeChanges,
			},
		},
	}
}

func newService(deps service.Dependencies) (*service.IntelligenceService, error) {
	return service.NewIntelligenceService(deps, service.OptionsFromConfig(config.Load()))
}

func readJSON(path string, dst any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func writeJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runClassify(c *cli.Context) error {
	var req service.ClassifyRequest
	if err := readJSON(c.String("input"), &req); err != nil {
		return err
	}
	req.Persist = false

	svc, err := newService(service.Dependencies{})
	if err != nil {
		return err
	}
	resp, err := svc.Classify(c.Context, req)
	if err != nil {
		return err
	}
	return writeJSON(c, resp)
}

func runForecast(c *cli.Context) error {
	var reqs []forecast.Request
	if err := readJSON(c.String("input"), &reqs); err != nil {
		return err
	}

	svc, err := newService(service.Dependencies{})
	if err != nil {
		return err
	}
	periods := c.Int("periods")
	if periods < 1 {
		periods = svc.DefaultHorizon()
	}

	results := make([]*forecast.Result, 0, len(reqs))
	for _, req := range reqs {
		if req.Periods == 0 {
			req.Periods = periods
		}
		res, err := svc.Forecast(c.Context, req)
		if err != nil {
			return fmt.Errorf("forecast %s: %w", req.SKU, err)
		}
		results = append(results, res)
	}
	return writeJSON(c, results)
}

func runReorder(c *cli.Context) error {
	var req service.ReorderRequest
	if err := readJSON(c.String("input"), &req); err != nil {
		return err
	}
	if c.IsSet("service-level") {
		sl := c.Float64("service-level")
		req.ServiceLevel = &sl
	}

	svc, err := newService(service.Dependencies{})
	if err != nil {
		return err
	}
	resp, err := svc.Reorder(c.Context, req)
	if err != nil {
		return err
	}
	return writeJSON(c, resp)
}

func runSimulate(c *cli.Context) error {
	var req service.SimulateRequest
	if err := readJSON(c.String("input"), &req); err != nil {
		return err
	}
	if c.IsSet("seed") {
		seed := c.Int64("seed")
		req.Seed = &seed
	}

	svc, err := newService(service.Dependencies{})
	if err != nil {
		return err
	}
	results, err := svc.Simulate(c.Context, req)
	if err != nil {
		return err
	}
	return writeJSON(c, results)
}

// portfolioFile is the input of the evaluate command.
type portfolioFile struct {
	Products []domain.Product        `json:"products"`
	Demand   []domain.DemandPoint    `json:"demand"`
	Request  service.EvaluateRequest `json:"request"`
}

func runEvaluate(c *cli.Context) error {
	var file portfolioFile
	if err := readJSON(c.String("input"), &file); err != nil {
		return err
	}

	store := repository.NewMemoryStore()
	for _, p := range file.Products {
		store.PutProduct(p)
	}
	store.AddDemand(file.Demand...)

	svc, err := newService(service.Dependencies{Products: store, Demand: store, Grades: store})
	if err != nil {
		return err
	}

	req := file.Request
	req.Simulate = c.Bool("simulate")
	if c.IsSet("seed") {
		seed := c.Int64("seed")
		req.Seed = &seed
	}
	report, err := svc.EvaluatePortfolio(c.Context, req)
	if err != nil {
		return err
	}
	return writeJSON(c, report)
}

func openPostgres(c *cli.Context) (*postgres.DB, error) {
	db, err := postgres.Open("pgx", c.String("db-url"), config.Load().Database.MaxConns)
	if err != nil {
		return nil, err
	}
	if err := db.EnsureSchema(c.Context); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

func runSnapshot(c *cli.Context) error {
	period := domain.PeriodStart(time.Now())
	if raw := c.String("period"); raw != "" {
		p, err := domain.ParsePeriod(raw)
		if err != nil {
			return fmt.Errorf("period %q must be YYYY-MM: %w", raw, err)
		}
		period = p
	}
	months := c.Int("months")
	if months < 1 {
		return fmt.Errorf("months must be >= 1, got %d", months)
	}

	db, err := openPostgres(c)
	if err != nil {
		return err
	}
	defer db.Close()

	deps := service.Dependencies{
		Products: postgres.NewProductRepository(db),
		Demand:   postgres.NewDemandRepository(db),
		Grades:   postgres.NewGradeHistoryRepository(db),
	}
	svc, err := newService(deps)
	if err != nil {
		return err
	}

	items, err := loadClassifyItems(c.Context, deps, period.AddDate(0, -months, 0), period.AddDate(0, 1, 0))
	if err != nil {
		return err
	}

	resp, err := svc.Classify(c.Context, service.ClassifyRequest{
		Items:   items,
		Period:  period.Format("2006-01"),
		Persist: true,
	})
	if err != nil {
		return err
	}
	return writeJSON(c, map[string]any{
		"run_id":    resp.RunID,
		"period":    resp.Period,
		"persisted": resp.Persisted,
		"summary":   resp.Summary,
	})
}

// loadClassifyItems builds one classifier item per product from its monthly
// demand in [from, to).
func loadClassifyItems(ctx context.Context, deps service.Dependencies, from, to time.Time) ([]abcxyz.Item, error) {
	products, err := deps.Products.ListProducts(ctx, domain.ProductFilter{})
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	ids := make([]string, len(products))
	for i, p := range products {
		ids[i] = p.ID
	}
	demand, err := deps.Demand.GetDemandSeries(ctx, ids, from, to)
	if err != nil {
		return nil, fmt.Errorf("load demand: %w", err)
	}

	items := make([]abcxyz.Item, 0, len(products))
	for _, p := range products {
		in := service.BuildSKUInput(p, demand[p.ID])
		series, err := forecast.FillGapsBetween(in.History, forecast.Monthly, from, to)
		if err != nil {
			return nil, fmt.Errorf("product %s: %w", p.ID, err)
		}
		items = append(items, abcxyz.Item{
			ID:            p.ID,
			Name:          p.Name,
			Value:         in.Value,
			DemandHistory: forecast.Values(series),
		})
	}
	return items, nil
}

func runGradeChanges(c *cli.Context) error {
	db, err := openPostgres(c)
	if err != nil {
		return err
	}
	defer db.Close()

	svc, err := newService(service.Dependencies{Grades: postgres.NewGradeHistoryRepository(db)})
	if err != nil {
		return err
	}
	report, err := svc.GradeChanges(c.Context, service.GradeChangeQuery{HighRiskOnly: c.Bool("high-risk-only")})
	if err != nil {
		return err
	}
	return writeJSON(c, report)
}
