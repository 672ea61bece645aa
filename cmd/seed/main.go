package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/genbi-manufacturing/backend/internal/seed"
	"github.com/genbi-manufacturing/backend/internal/storage/mongo"
	"github.com/genbi-manufacturing/backend/internal/storage/sqlite"
	"github.com/genbi-manufacturing/backend/pkg/config"
	appLogger "github.com/genbi-manufacturing/backend/pkg/logger"
)

type options struct {
	configPath   string
	days         int
	randSeed     int64
	skipFacts    bool
	skipMappings bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load synthetic tyre plant data",
		Long: "Replaces the production, quality and downtime collections with generated data\n" +
			"and upserts the default business-term glossary.",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "path to config file (default: search ., ./config, /etc/genbi)")
	flags.IntVar(&opts.days, "days", 0, "number of days to generate (default: seed.days from config)")
	flags.Int64Var(&opts.randSeed, "rand-seed", 0, "random seed (default: current time)")
	flags.BoolVar(&opts.skipFacts, "skip-facts", false, "do not touch the MongoDB collections")
	flags.BoolVar(&opts.skipMappings, "skip-mappings", false, "do not touch the glossary")

	return cmd
}

func run(ctx context.Context, opts *options) error {
	cfg, err := config.LoadFrom(viper.New(), opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if err := appLogger.Init(appLogger.Options{
		Level:      cfg.Logging.Level,
		Format:     "console",
		OutputPath: "stderr",
		Service:    "genbi-seed",
	}); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer appLogger.Sync()

	days := opts.days
	if days <= 0 {
		days = cfg.Seed.Days
	}
	randSeed := opts.randSeed
	if randSeed == 0 {
		randSeed = time.Now().UnixNano()
	}

	ds := seed.NewGenerator(randSeed, days).Generate(time.Now())

	var facts seed.FactWriter
	if !opts.skipFacts {
		connectCtx, cancel := context.WithTimeout(ctx, cfg.Mongo.ConnectTimeout()*3)
		defer cancel()
		mongoClient, err := mongo.NewClient(connectCtx, cfg.Mongo)
		if err != nil {
			return err
		}
		defer mongoClient.Close(context.Background())
		facts = mongoClient
	}

	var mappings seed.MappingWriter
	if !opts.skipMappings {
		sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
		if err != nil {
			return err
		}
		defer sqliteClient.Close()
		if err := sqliteClient.InitSchema(); err != nil {
			return err
		}
		mappings = sqliteClient
	}

	if err := seed.Load(ctx, ds, facts, mappings); err != nil {
		return err
	}

	appLogger.Info("Seeding complete",
		zap.Int64("rand_seed", randSeed),
		zap.Int("days", days),
		zap.Bool("facts", facts != nil),
		zap.Bool("mappings", mappings != nil),
	)
	return nil
}
