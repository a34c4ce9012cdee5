// compare_stores compares the legacy store with the new one after a
// migration. It is a temporary tool for validating tmmigrate runs.
//
// Usage:
//
//	go run tools/compare_stores.go --source-uri mongodb://legacy:27017 \
//	  --source-db legacy --target-uri mongodb://localhost:27017 --target-db tm
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/tmforge/tmmigrate/internal/iomongo"
	"github.com/tmforge/tmmigrate/internal/iosource"
	"github.com/tmforge/tmmigrate/pkg/config"
	"github.com/tmforge/tmmigrate/pkg/entity"
	"github.com/tmforge/tmmigrate/pkg/migrate"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type ComparisonResult struct {
	Type          entity.Type
	SourceCount   int
	TargetCount   int
	SampleSize    int
	SampleMissing []string
	Duplicates    int
}

func (r ComparisonResult) OK() bool {
	return r.SourceCount == r.TargetCount &&
		len(r.SampleMissing) == 0 &&
		r.Duplicates == 0
}

func main() {
	sourceURI := flag.String("source-uri", "mongodb://localhost:27017",
		"legacy MongoDB connection string")
	sourceDB := flag.String("source-db", "legacy", "legacy database")
	sourcePath := flag.String("source-path", "",
		"SQLite dump to use instead of the legacy MongoDB")
	targetURI := flag.String("target-uri", "mongodb://localhost:27017",
		"new MongoDB connection string")
	targetDB := flag.String("target-db", "tm", "new database")
	sampleSize := flag.Int("sample-size", 100,
		"number of legacy keys per type to look up in the new store")

	flag.Parse()

	ctx := context.Background()

	cfg := config.New()
	opts := []config.Option{
		config.OptSourceURI(*sourceURI),
		config.OptSourceDatabase(*sourceDB),
	}
	if *sourcePath != "" {
		opts = append(opts,
			config.OptSourceKind("sqlite"),
			config.OptSourcePath(*sourcePath),
		)
	}
	cfg.Update(opts)

	src, err := iosource.New(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to legacy store: %v", err)
	}
	defer src.Close()

	client, err := iomongo.Connect(ctx, *targetURI, 30*time.Second)
	if err != nil {
		log.Fatalf("Failed to connect to new store: %v", err)
	}
	defer iomongo.Disconnect(client, 10*time.Second)
	db := client.Database(*targetDB)

	fmt.Printf("Comparing %s with %s/%s\n", describe(cfg), *targetURI, *targetDB)
	fmt.Println(strings.Repeat("=", 40))

	var failed bool
	for _, t := range entity.Types() {
		res, err := compare(ctx, src, db, t, *sampleSize)
		if err != nil {
			log.Fatalf("Failed to compare %s: %v", t, err)
		}
		printResult(res)
		if !res.OK() {
			failed = true
		}
	}

	fmt.Println()
	if failed {
		fmt.Println("Differences found. Skipped records also show up here,")
		fmt.Println("check the report of the run before treating them as errors.")
		os.Exit(1)
	}
	fmt.Println("Stores match.")
}

func describe(cfg *config.Config) string {
	if cfg.Source.Kind == "sqlite" {
		return cfg.Source.Path
	}
	return cfg.Source.URI + "/" + cfg.Source.Database
}

func compare(
	ctx context.Context,
	src migrate.Source,
	db *mongo.Database,
	t entity.Type,
	sampleSize int,
) (ComparisonResult, error) {
	res := ComparisonResult{Type: t}
	coll := db.Collection(t.TargetCollection())

	var err error
	if res.SourceCount, err = src.Count(ctx, t); err != nil {
		return res, err
	}

	n, err := coll.CountDocuments(ctx,
		bson.M{"legacyKey": bson.M{"$exists": true}})
	if err != nil {
		return res, err
	}
	res.TargetCount = int(n)

	for rec, err := range src.Read(ctx, t, "") {
		if err != nil {
			return res, err
		}
		if res.SampleSize >= sampleSize {
			break
		}
		res.SampleSize++
		err = coll.FindOne(ctx, bson.M{"legacyKey": rec.Key},
			options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
		if errors.Is(err, mongo.ErrNoDocuments) {
			res.SampleMissing = append(res.SampleMissing, rec.Key)
			continue
		}
		if err != nil {
			return res, err
		}
	}

	res.Duplicates, err = countDuplicates(ctx, coll)
	return res, err
}

// countDuplicates finds legacy keys written more than once.
func countDuplicates(ctx context.Context, coll *mongo.Collection) (int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.M{
			"_id":   "$legacyKey",
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$match", Value: bson.M{"count": bson.M{"$gt": 1}}}},
		{{Key: "$count", Value: "duplicates"}},
	}
	cur, err := coll.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cur.Close(ctx)

	var rows []struct {
		Duplicates int `bson:"duplicates"`
	}
	if err = cur.All(ctx, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Duplicates, nil
}

func printResult(r ComparisonResult) {
	status := "OK"
	if !r.OK() {
		status = "DIFF"
	}
	fmt.Printf("\n%s [%s]\n", r.Type, status)
	fmt.Printf("  records:   legacy %d, new %d\n", r.SourceCount, r.TargetCount)
	fmt.Printf("  sample:    %d checked, %d missing\n",
		r.SampleSize, len(r.SampleMissing))
	for i, v := range r.SampleMissing {
		if i == 10 {
			fmt.Printf("    ... and %d more\n", len(r.SampleMissing)-10)
			break
		}
		fmt.Printf("    %s\n", v)
	}
	fmt.Printf("  duplicate legacy keys: %d\n", r.Duplicates)
}
