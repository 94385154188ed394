package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/minimarket-io/demandcast/artifact"
	"github.com/minimarket-io/demandcast/config"
	"github.com/minimarket-io/demandcast/dataset"
	"github.com/minimarket-io/demandcast/pkg/logger"
	"github.com/minimarket-io/demandcast/predictor"
	"github.com/minimarket-io/demandcast/store/postgres"
	"github.com/minimarket-io/demandcast/trainer"
)

const topImportanceCount = 10

func main() {
	cfg := config.Load()
	logger.SetLevel(cfg.LogLevel)

	app := &cli.App{
		Name:  "demandcast",
		Usage: "Demand forecasting for the minimarket inventory system",
		Commands: []*cli.Command{
			{
				Name:  "train",
				Usage: "Build the feature dataset and train the candidate model panel",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "days-back",
						Usage: "How many days of sales history to train on",
						Value: cfg.Train.DaysBack,
					},
					&cli.Float64Flag{
						Name:  "test-fraction",
						Usage: "Share of the time-ordered dataset held out for evaluation",
						Value: cfg.Train.TestFraction,
					},
					&cli.BoolFlag{
						Name:  "promote",
						Usage: "Promote the saved artifact as the default model",
						Value: true,
					},
				},
				Action: runTrain,
			},
			{
				Name:  "predict",
				Usage: "Forecast demand and suggest reorders using the default model",
				Flags: []cli.Flag{
					&cli.Int64Flag{
						Name:  "product-id",
						Usage: "Forecast a single product by id",
					},
					&cli.IntFlag{
						Name:  "top",
						Usage: "Forecast the N best-selling products of the last 90 days",
						Value: 10,
					},
					&cli.IntFlag{
						Name:  "horizon",
						Usage: "Days ahead to forecast",
						Value: cfg.Train.HorizonDays,
					},
					&cli.TimestampFlag{
						Name:   "start-date",
						Usage:  "First forecast date (defaults to tomorrow)",
						Layout: "2006-01-02",
					},
					&cli.BoolFlag{
						Name:  "persist",
						Usage: "Write predictions to the database",
					},
				},
				Action: runPredict,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Log.Fatal().Err(err).Msg("command failed")
	}
}

func runTrain(c *cli.Context) error {
	cfg := config.Load()
	log := logger.Log
	ctx := c.Context

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	src := postgres.NewSalesSource(db)
	asm := dataset.NewAssembler(src, dataset.NewDefaultConfig(), log)

	log.Info().Int("days_back", c.Int("days-back")).Msg("assembling dataset")
	ds, err := asm.Assemble(ctx, c.Int("days-back"))
	if err != nil {
		return err
	}
	rows, cols := ds.X.Dims()
	log.Info().Int("rows", rows).Int("features", cols).Msg("dataset ready")

	tr, err := trainer.New(&trainer.Options{TestFraction: c.Float64("test-fraction")}, log)
	if err != nil {
		return err
	}
	report, err := tr.Train(ctx, ds)
	if err != nil {
		return err
	}

	best := report.BestResult()
	bundle, err := artifact.NewBundle(best, ds.Schema.Names, time.Now())
	if err != nil {
		return err
	}
	path, err := bundle.Save(cfg.Models.Dir)
	if err != nil {
		return err
	}
	log.Info().Str("path", path).Msg("artifact saved")

	if c.Bool("promote") {
		reg := artifact.NewRegistry(cfg.Models.Dir)
		if err := reg.Promote(bundle.Filename()); err != nil {
			return err
		}
		log.Info().Str("artifact", bundle.Filename()).Msg("promoted as default model")
	}

	printTrainSummary(report, ds.Schema.Names)
	return nil
}

func printTrainSummary(report *trainer.Report, featureNames []string) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintf(w, "\nmodel\ttrain MAE\ttest MAE\ttest RMSE\ttest MAPE\ttest R2\tCV MAE\ttime\n")
	for i, res := range report.Results {
		marker := ""
		if i == report.Best {
			marker = " *"
		}
		cv := "-"
		if res.HasCV {
			cv = fmt.Sprintf("%.3f±%.3f", res.CVScore, res.CVStd)
		}
		fmt.Fprintf(w, "%s%s\t%.3f\t%.3f\t%.3f\t%.1f%%\t%.3f\t%s\t%s\n",
			res.Kind, marker,
			res.TrainMetrics.MAE,
			res.TestMetrics.MAE,
			res.TestMetrics.RMSE,
			res.TestMetrics.MAPE,
			res.TestMetrics.R2,
			cv,
			res.TrainingTime.Round(time.Millisecond),
		)
	}

	best := report.BestResult()
	fmt.Fprintf(w, "\ntop features (%s)\tscore\n", best.Kind)
	for _, fi := range trainer.TopImportances(best.Pipeline(), featureNames, topImportanceCount) {
		fmt.Fprintf(w, "%s\t%.4f\n", fi.Name, fi.Score)
	}
}

func runPredict(c *cli.Context) error {
	cfg := config.Load()
	log := logger.Log
	ctx := c.Context

	db, err := postgres.NewDB(&cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	src := postgres.NewSalesSource(db)
	pred := predictor.New(src, dataset.NewDefaultConfig(), log)

	bundle, err := artifact.NewRegistry(cfg.Models.Dir).Default()
	if err != nil {
		return err
	}
	if err := pred.LoadBundle(bundle); err != nil {
		return err
	}

	start := dataset.Day(time.Now()).AddDate(0, 0, 1)
	if t := c.Timestamp("start-date"); t != nil {
		start = dataset.Day(*t)
	}
	horizon := c.Int("horizon")

	var recs []predictor.Recommendation
	var productIDs []int64
	if id := c.Int64("product-id"); id != 0 {
		// single-product errors surface directly instead of being
		// downgraded to batch warnings
		f, err := pred.Forecast(ctx, id, start, horizon)
		if err != nil {
			return err
		}
		attr, err := src.Product(ctx, id)
		if err != nil {
			return err
		}
		recs = []predictor.Recommendation{predictor.NewRecommendation(f, attr)}
		productIDs = []int64{id}
	} else {
		since := dataset.Day(time.Now()).AddDate(0, 0, -90)
		productIDs, err = src.TopProductsBySales(ctx, c.Int("top"), since)
		if err != nil {
			return err
		}
		if len(productIDs) == 0 {
			return dataset.ErrInsufficientData
		}

		var failed []predictor.RecommendationError
		recs, failed, err = pred.Recommendations(ctx, productIDs, start, horizon)
		if err != nil {
			return err
		}
		for _, f := range failed {
			log.Warn().Err(f.Err).Int64("product_id", f.ProductID).Msg("product skipped")
		}
	}

	if c.Bool("persist") {
		if err := persistForecasts(ctx, db, pred, productIDs, start, horizon); err != nil {
			return err
		}
	}

	printRecommendations(recs, horizon)
	return nil
}

func persistForecasts(ctx context.Context, db *postgres.DB, pred *predictor.Predictor, productIDs []int64, start time.Time, horizon int) error {
	if err := postgres.EnsureSchema(ctx, db); err != nil {
		return err
	}
	store := postgres.NewPredictionStore(db)
	results, err := pred.ForecastBatch(ctx, productIDs, start, horizon)
	if err != nil {
		return err
	}
	var saved int
	for _, res := range results {
		if res.Err != nil {
			continue
		}
		if err := store.SavePredictions(ctx, res.Forecast); err != nil {
			return err
		}
		saved += len(res.Forecast.Predictions)
	}
	logger.Log.Info().Int("rows", saved).Msg("predictions persisted")
	return nil
}

func printRecommendations(recs []predictor.Recommendation, horizon int) {
	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintf(w, "\nproduct\tstock\tdemand (%dd)\tdays of stock\torder\tpriority\n", horizon)
	for _, r := range recs {
		days := fmt.Sprintf("%.1f", r.DaysOfStock)
		if r.DaysOfStock > 999 {
			days = "∞"
		}
		fmt.Fprintf(w, "%s (#%d)\t%.0f\t%.1f\t%s\t%.0f\t%s\n",
			r.ProductName, r.ProductID,
			r.CurrentStock,
			r.TotalDemand,
			days,
			r.SuggestedOrder,
			r.Priority,
		)
	}
}
