package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/cockroachdb/errors"
	"github.com/letmevibethatforyou/grantsx"
	"github.com/letmevibethatforyou/grantsx/algolia"
	"github.com/letmevibethatforyou/grantsx/internal/ddb"
	"github.com/urfave/cli/v2"
)

// GrantIndex is the subset of the Algolia client the handler writes through.
type GrantIndex interface {
	SaveGrant(ctx context.Context, indexName string, g grantsx.Grant) error
	DeleteGrant(ctx context.Context, indexName string, id string) error
}

// Handler mirrors grant rows from the table stream into the search index.
type Handler struct {
	tableName string
	index     GrantIndex
	logger    *slog.Logger
}

func NewHandler(tableName string, index GrantIndex, logger *slog.Logger) *Handler {
	return &Handler{
		tableName: tableName,
		index:     index,
		logger:    logger,
	}
}

func (h *Handler) HandleDynamoDBEvent(ctx context.Context, e ddb.DynamoDBEvent) error {
	h.logger.InfoContext(ctx, "Processing grant stream records", "table", h.tableName, "record_count", len(e.Records))

	for _, record := range e.Records {
		if err := h.processRecord(ctx, record); err != nil {
			h.logger.ErrorContext(ctx, "Error processing record", "event_id", record.EventID, "error", err)
			return errors.Wrapf(err, "record %s", record.EventID)
		}
	}

	return nil
}

func (h *Handler) processRecord(ctx context.Context, record ddb.DynamoDBEventRecord) error {
	switch ddb.DynamoDBOperationType(record.EventName) {
	case ddb.DynamoDBOperationTypeInsert, ddb.DynamoDBOperationTypeModify:
		if record.Change.NewImage == nil {
			h.logger.WarnContext(ctx, "No new image for insert/modify operation, skipping record")
			return nil
		}

		parsed, err := ddb.UnmarshalRecord(record.Change.NewImage)
		if err != nil {
			h.logger.WarnContext(ctx, "Failed to unmarshal record, skipping", "error", err)
			return nil
		}

		switch {
		case parsed.ID == "":
			h.logger.WarnContext(ctx, "Missing ID (pk) in record, skipping record")
			return nil
		case parsed.IndexName == "":
			h.logger.WarnContext(ctx, "Missing IndexName (sk) in record, skipping record", "id", parsed.ID)
			return nil
		case parsed.Object == nil:
			h.logger.WarnContext(ctx, "Missing grant object in record, skipping record", "id", parsed.ID, "index", parsed.IndexName)
			return nil
		}

		g := parsed.Grant()
		h.logger.InfoContext(ctx, "Saving grant to Algolia", "grant_id", g.ID, "index", parsed.IndexName, "title", g.Title)
		return h.index.SaveGrant(ctx, parsed.IndexName, g)

	case ddb.DynamoDBOperationTypeRemove:
		parsed, err := ddb.UnmarshalRecord(record.Change.Keys)
		if err != nil {
			h.logger.WarnContext(ctx, "Failed to unmarshal keys for delete operation, skipping", "error", err)
			return nil
		}

		if parsed.ID == "" || parsed.IndexName == "" {
			h.logger.WarnContext(ctx, "Missing ID or IndexName in delete record, skipping record")
			return nil
		}

		h.logger.InfoContext(ctx, "Deleting grant from Algolia", "grant_id", parsed.ID, "index", parsed.IndexName)
		return h.index.DeleteGrant(ctx, parsed.IndexName, parsed.ID)

	default:
		h.logger.InfoContext(ctx, "Ignoring event type", "event_type", record.EventName)
		return nil
	}
}

func main() {
	logger := slog.Default()
	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, nil))
		slog.SetDefault(logger)
	}

	app := &cli.App{
		Name:  "index-grants",
		Usage: "Sync the grants table stream to the Algolia grants index",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "table-name",
				Usage:    "DynamoDB grants table name",
				EnvVars:  []string{"TABLE_NAME"},
				Required: true,
			},
			&cli.StringFlag{
				Name:    "env",
				Usage:   "Environment name for AWS Secrets Manager (takes precedence over API key/ID flags)",
				EnvVars: []string{"ENV", "ENVIRONMENT"},
			},
			&cli.StringFlag{
				Name:    "secret-arn",
				Usage:   "ARN of the Algolia secret (takes precedence over env)",
				EnvVars: []string{"ALGOLIA_SECRET_ARN"},
			},
			&cli.StringFlag{
				Name:    "algolia-app-id",
				Usage:   "Algolia application ID",
				EnvVars: []string{"ALGOLIA_APP_ID"},
			},
			&cli.StringFlag{
				Name:    "algolia-api-key",
				Usage:   "Algolia API key",
				EnvVars: []string{"ALGOLIA_API_KEY"},
			},
		},
		Action: func(c *cli.Context) error {
			return runAction(c, logger)
		},
	}

	if err := app.Run(os.Args); err != nil {
		logger.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

func runAction(c *cli.Context, logger *slog.Logger) error {
	ctx := c.Context
	tableName := c.String("table-name")
	env := c.String("env")
	secretArn := c.String("secret-arn")

	logger.InfoContext(ctx, "Starting grants index sync", "table", tableName, "environment", env)

	var fetchSecrets algolia.FetchSecrets
	switch {
	case secretArn != "" || env != "":
		cfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return errors.Wrap(err, "failed to load AWS config")
		}
		client := secretsmanager.NewFromConfig(cfg)
		if secretArn != "" {
			logger.InfoContext(ctx, "Using AWS Secrets Manager secret ARN for credentials")
			fetchSecrets = algolia.AWSSecretsFromARN(ctx, client, secretArn)
		} else {
			logger.InfoContext(ctx, "Using AWS Secrets Manager for credentials", "environment", env)
			fetchSecrets = algolia.AWSSecrets(ctx, client, env)
		}
	case c.String("algolia-app-id") != "" && c.String("algolia-api-key") != "":
		logger.InfoContext(ctx, "Using static credentials from flags")
		fetchSecrets = algolia.StaticSecrets(c.String("algolia-app-id"), c.String("algolia-api-key"))
	default:
		logger.InfoContext(ctx, "Using environment variables for credentials")
		fetchSecrets = algolia.EnvSecrets()
	}

	handler := NewHandler(tableName, algolia.NewClient(fetchSecrets), logger)

	if os.Getenv("AWS_LAMBDA_RUNTIME_API") == "" {
		logger.InfoContext(ctx, "Function cannot run outside of AWS Lambda environment")
		return nil
	}

	logger.InfoContext(ctx, "Running in Lambda environment")
	lambda.Start(handler.HandleDynamoDBEvent)
	return nil
}
