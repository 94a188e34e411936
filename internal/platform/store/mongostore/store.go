// Package mongostore implements the record store on MongoDB with aggregation
// pipelines. It is the production backend.
package mongostore

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/nutes/frontdesk/internal/platform/store"
)

type Store struct {
	client *mongo.Client
	db     *mongo.Database
	logger zerolog.Logger
}

var _ store.Store = (*Store)(nil)

// Open connects to uri, verifies the connection and makes sure the record
// collections carry their indexes.
func Open(ctx context.Context, uri, database string, logger zerolog.Logger) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	s := &Store{client: client, db: client.Database(database), logger: logger}
	if err := s.Initialize(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	logger.Info().Str("database", database).Msg("connected to mongodb")
	return s, nil
}

// Initialize creates the indexes used by the intake lookups and the
// time-windowed dashboard queries.
func (s *Store) Initialize(ctx context.Context) error {
	indexes := map[store.Collection][]mongo.IndexModel{
		store.Anamneses: {
			{Keys: bson.D{{Key: "patientId", Value: 1}}, Options: options.Index().SetName("AnamnesisPatient")},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}, Options: options.Index().SetName("AnamnesisCreatedAt")},
		},
		store.CohortRecords: {
			{Keys: bson.D{{Key: "cpf", Value: 1}}, Options: options.Index().SetName("CohortCPF")},
			{Keys: bson.D{{Key: "createdAt", Value: -1}}, Options: options.Index().SetName("CohortCreatedAt")},
		},
	}
	for coll, models := range indexes {
		if _, err := s.db.Collection(string(coll)).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create %s indexes: %w", coll, err)
		}
	}
	return nil
}

func (s *Store) collection(coll store.Collection) (*mongo.Collection, error) {
	if err := coll.Validate(); err != nil {
		return nil, err
	}
	return s.db.Collection(string(coll)), nil
}

func (s *Store) Insert(ctx context.Context, coll store.Collection, doc any) (string, error) {
	c, err := s.collection(coll)
	if err != nil {
		return "", err
	}
	res, err := c.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("insert into %s: %w", coll, err)
	}
	switch id := res.InsertedID.(type) {
	case primitive.ObjectID:
		return id.Hex(), nil
	case string:
		return id, nil
	default:
		return fmt.Sprint(id), nil
	}
}

func (s *Store) Count(ctx context.Context, coll store.Collection) (int64, error) {
	c, err := s.collection(coll)
	if err != nil {
		return 0, err
	}
	n, err := c.CountDocuments(ctx, bson.D{})
	if err != nil {
		return 0, fmt.Errorf("count %s: %w", coll, err)
	}
	return n, nil
}

func (s *Store) aggregateBuckets(ctx context.Context, coll store.Collection, p mongo.Pipeline) ([]store.Bucket, error) {
	c, err := s.collection(coll)
	if err != nil {
		return nil, err
	}
	cursor, err := c.Aggregate(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", coll, err)
	}
	var out []store.Bucket
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode %s aggregation: %w", coll, err)
	}
	return out, nil
}

// aggregateScalar reads the "value" of a single-group pipeline. An empty
// result, or a null average, is 0.
func (s *Store) aggregateScalar(ctx context.Context, coll store.Collection, p mongo.Pipeline) (float64, error) {
	c, err := s.collection(coll)
	if err != nil {
		return 0, err
	}
	cursor, err := c.Aggregate(ctx, p)
	if err != nil {
		return 0, fmt.Errorf("aggregate %s: %w", coll, err)
	}
	var rows []struct {
		Value *float64 `bson:"value"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, fmt.Errorf("decode %s aggregation: %w", coll, err)
	}
	if len(rows) == 0 || rows[0].Value == nil {
		return 0, nil
	}
	return *rows[0].Value, nil
}

func (s *Store) Group(ctx context.Context, coll store.Collection, q store.GroupQuery) ([]store.Bucket, error) {
	return s.aggregateBuckets(ctx, coll, groupPipeline(q))
}

func (s *Store) Bucket(ctx context.Context, coll store.Collection, q store.BucketQuery) ([]store.Bucket, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	return s.aggregateBuckets(ctx, coll, bucketPipeline(q))
}

func (s *Store) Classify(ctx context.Context, coll store.Collection, q store.RangeQuery) ([]store.Bucket, error) {
	return s.aggregateBuckets(ctx, coll, classifyPipeline(q))
}

func (s *Store) Average(ctx context.Context, coll store.Collection, field string) (float64, error) {
	return s.aggregateScalar(ctx, coll, averagePipeline(field))
}

func (s *Store) MeanRatio(ctx context.Context, coll store.Collection, q store.RatioQuery) (float64, error) {
	return s.aggregateScalar(ctx, coll, ratioPipeline(q))
}

func (s *Store) DailyCounts(ctx context.Context, coll store.Collection, q store.DailyQuery) ([]store.Bucket, error) {
	return s.aggregateBuckets(ctx, coll, dailyPipeline(q))
}

func (s *Store) Latest(ctx context.Context, coll store.Collection, q store.LatestQuery, dst any) error {
	c, err := s.collection(coll)
	if err != nil {
		return err
	}
	opts := options.Find().
		SetSort(bson.D{{Key: q.By, Value: -1}}).
		SetLimit(int64(q.Limit))
	if len(q.Fields) > 0 {
		opts.SetProjection(latestProjection(q.Fields))
	}
	cursor, err := c.Find(ctx, bson.D{}, opts)
	if err != nil {
		return fmt.Errorf("find latest %s: %w", coll, err)
	}
	if err := cursor.All(ctx, dst); err != nil {
		return fmt.Errorf("decode latest %s: %w", coll, err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
