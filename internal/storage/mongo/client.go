package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"

	"github.com/genbi-manufacturing/backend/internal/pipeline"
	"github.com/genbi-manufacturing/backend/internal/storage/models"
	"github.com/genbi-manufacturing/backend/pkg/config"
	"github.com/genbi-manufacturing/backend/pkg/logger"
	"github.com/genbi-manufacturing/backend/pkg/retry"
)

// Client holds the three fact collections. Aggregations are read-only; the
// only writes are from ReplaceFacts during seeding.
type Client struct {
	client           *mongo.Client
	db               *mongo.Database
	production       *mongo.Collection
	quality          *mongo.Collection
	downtime         *mongo.Collection
	aggregateTimeout time.Duration
}

func NewClient(ctx context.Context, cfg config.MongoConfig) (*Client, error) {
	opts := options.Client().
		ApplyURI(cfg.URI).
		SetConnectTimeout(cfg.ConnectTimeout()).
		SetServerSelectionTimeout(cfg.ConnectTimeout())

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	retryCfg := retry.DefaultConfig()
	retryCfg.Logger = logger.GetLogger()
	err = retry.Do(ctx, retryCfg, func() error {
		return pingError(ctx, client.Ping(ctx, readpref.Primary()))
	})
	if err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	db := client.Database(cfg.Database)

	logger.Info("MongoDB client initialized",
		zap.String("database", cfg.Database),
		zap.Strings("collections", []string{cfg.ProductionCollection, cfg.QualityCollection, cfg.DowntimeCollection}),
	)

	return &Client{
		client:           client,
		db:               db,
		production:       db.Collection(cfg.ProductionCollection),
		quality:          db.Collection(cfg.QualityCollection),
		downtime:         db.Collection(cfg.DowntimeCollection),
		aggregateTimeout: cfg.AggregateTimeout(),
	}, nil
}

// pingError marks failures another attempt cannot fix: an answer from the
// server (bad credentials, missing privileges) or a finished ctx.
func pingError(ctx context.Context, err error) error {
	var se mongo.ServerError
	if err != nil && (ctx.Err() != nil || errors.As(err, &se)) {
		return retry.Permanent(err)
	}
	return err
}

func (c *Client) Close(ctx context.Context) error {
	return c.client.Disconnect(ctx)
}

func (c *Client) Ping(ctx context.Context) error {
	return c.client.Ping(ctx, readpref.Primary())
}

func (c *Client) AggregateProduction(ctx context.Context, p pipeline.Pipeline) ([]map[string]any, error) {
	return c.aggregate(ctx, c.production, p)
}

func (c *Client) AggregateQuality(ctx context.Context, p pipeline.Pipeline) ([]map[string]any, error) {
	return c.aggregate(ctx, c.quality, p)
}

func (c *Client) AggregateDowntime(ctx context.Context, p pipeline.Pipeline) ([]map[string]any, error) {
	return c.aggregate(ctx, c.downtime, p)
}

func (c *Client) aggregate(ctx context.Context, coll *mongo.Collection, p pipeline.Pipeline) ([]map[string]any, error) {
	if c.aggregateTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.aggregateTimeout)
		defer cancel()
	}

	cursor, err := coll.Aggregate(ctx, p.Mongo())
	if err != nil {
		return nil, fmt.Errorf("failed to run aggregation: %w", err)
	}

	var docs []bson.M
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to read aggregation results: %w", err)
	}

	records := make([]map[string]any, len(docs))
	for i, d := range docs {
		records[i] = map[string]any(d)
	}

	logger.Debug("Aggregation completed",
		zap.String("collection", coll.Name()),
		zap.Int("stages", len(p)),
		zap.Int("records", len(records)),
	)

	return records, nil
}

// ReplaceFacts empties the three fact collections and loads the given rows.
func (c *Client) ReplaceFacts(ctx context.Context, production []models.ProductionRecord, quality []models.QualityRecord, downtime []models.DowntimeRecord) error {
	if err := replace(ctx, c.production, production); err != nil {
		return err
	}
	if err := replace(ctx, c.quality, quality); err != nil {
		return err
	}
	if err := replace(ctx, c.downtime, downtime); err != nil {
		return err
	}

	logger.Info("Fact collections replaced",
		zap.Int("production", len(production)),
		zap.Int("quality", len(quality)),
		zap.Int("downtime", len(downtime)),
	)
	return nil
}

// CountProduction reports how many production rows exist; seeding on startup
// skips a populated database.
func (c *Client) CountProduction(ctx context.Context) (int64, error) {
	n, err := c.production.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("failed to count %s: %w", c.production.Name(), err)
	}
	return n, nil
}

func replace[T any](ctx context.Context, coll *mongo.Collection, rows []T) error {
	if _, err := coll.DeleteMany(ctx, bson.D{}); err != nil {
		return fmt.Errorf("failed to clear %s: %w", coll.Name(), err)
	}
	if len(rows) == 0 {
		return nil
	}

	docs := make([]interface{}, len(rows))
	for i := range rows {
		docs[i] = rows[i]
	}
	if _, err := coll.InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("failed to insert into %s: %w", coll.Name(), err)
	}
	return nil
}
