package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/cockroachdb/errors"
	"github.com/letmevibethatforyou/grantsx"
	"github.com/letmevibethatforyou/grantsx/algolia"
	"github.com/letmevibethatforyou/grantsx/internal/ddb"
	"github.com/segmentio/ksuid"
	"github.com/urfave/cli/v2"
)

// PutItemAPI is the DynamoDB call the seeder needs.
type PutItemAPI interface {
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
}

var (
	agencies = map[string][]string{
		"USDA": {"Rural Broadband", "Farm Resilience", "Community Facilities", "Food Access"},
		"EPA":  {"Clean Water", "Brownfields Cleanup", "Air Quality Monitoring", "Environmental Justice"},
		"NEA":  {"Arts in Schools", "Public Murals", "Community Theater", "Folk Traditions"},
		"NSF":  {"Research Fellowship", "STEM Outreach", "Data Science Training", "Climate Research"},
		"IMLS": {"Library Modernization", "Museum Archives", "Digital Literacy", "Oral Histories"},
		"HUD":  {"Housing Rehabilitation", "Neighborhood Revitalization", "Homeless Assistance", "Fair Housing"},
	}

	cities = []string{
		"Austin", "Fresno", "Provo", "Salem", "Ogden", "Boise", "Tulsa", "Spokane", "Durham", "Madison",
	}

	amountSteps = []float64{5000, 10000, 25000, 50000, 100000, 250000, 500000, 1000000}
)

func generateRandomGrant(r *rand.Rand) grantsx.Grant {
	agencyKeys := make([]string, 0, len(agencies))
	for a := range agencies {
		agencyKeys = append(agencyKeys, a)
	}

	agency := agencyKeys[r.IntN(len(agencyKeys))]
	programs := agencies[agency]
	program := programs[r.IntN(len(programs))]
	city := cities[r.IntN(len(cities))]

	lo := r.IntN(len(amountSteps) - 1)
	hi := lo + 1 + r.IntN(len(amountSteps)-lo-1)

	return grantsx.Grant{
		ID:         ksuid.New().String(),
		Title:      fmt.Sprintf("%s Grant for %s", program, city),
		AgencyName: agency,
		City:       city,
		MinAmount:  amountSteps[lo],
		MaxAmount:  amountSteps[hi],
	}
}

func insertGrant(ctx context.Context, client PutItemAPI, tableName, indexName string, g grantsx.Grant) error {
	item, err := ddb.NewRecord(indexName, g).Marshal()
	if err != nil {
		return err
	}

	_, err = client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: aws.String(tableName),
		Item:      item,
	})
	if err != nil {
		return errors.Wrap(err, "failed to put item in DynamoDB")
	}

	slog.InfoContext(ctx, "Successfully inserted grant",
		"id", g.ID,
		"agency", g.AgencyName,
		"city", g.City,
		"min_amount", g.MinAmount,
		"max_amount", g.MaxAmount,
	)

	return nil
}

func seed(ctx context.Context, client PutItemAPI, r *rand.Rand, tableName, indexName string, count int) error {
	for i := 0; i < count; i++ {
		if err := insertGrant(ctx, client, tableName, indexName, generateRandomGrant(r)); err != nil {
			return errors.Wrapf(err, "failed to insert grant %d", i+1)
		}
	}
	return nil
}

func runAction(c *cli.Context) error {
	ctx := c.Context
	env := c.String("env")
	tableName := c.String("table-name")
	indexName := c.String("index")
	count := c.Int("count")

	slog.InfoContext(ctx, "Starting grant seeder",
		"environment", env,
		"table", tableName,
		"index", indexName,
		"count", count,
	)

	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to load AWS config")
	}

	r := rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	if err := seed(ctx, dynamodb.NewFromConfig(cfg), r, tableName, indexName, count); err != nil {
		return err
	}

	slog.InfoContext(ctx, "Successfully generated and inserted all grants", "count", count)
	return nil
}

func main() {
	// Configure JSON logging for AWS environments
	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" || os.Getenv("AWS_REGION") != "" {
		slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))
	}

	app := &cli.App{
		Name:  "seed",
		Usage: "Generate random grants and insert them into DynamoDB",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "env",
				Aliases:  []string{"e"},
				Usage:    "Environment name",
				EnvVars:  []string{"ENVIRONMENT"},
				Required: true,
			},
			&cli.StringFlag{
				Name:     "table-name",
				Aliases:  []string{"t"},
				Usage:    "DynamoDB table name",
				EnvVars:  []string{"TABLE_NAME"},
				Required: true,
			},
			&cli.StringFlag{
				Name:  "index",
				Usage: "Search index the grants belong to",
				Value: algolia.DefaultIndex,
			},
			&cli.IntFlag{
				Name:    "count",
				Aliases: []string{"c"},
				Usage:   "Number of grants to generate",
				Value:   1,
			},
		},
		Action: runAction,
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}
