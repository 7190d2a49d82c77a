// Package algolia provides a lazy-loading Algolia client for the grants
// index, with configurable secret management.
package algolia

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/algolia/algoliasearch-client-go/v3/algolia/search"
	"github.com/cockroachdb/errors"
	"github.com/letmevibethatforyou/grantsx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultIndex is the index grants are written to and matched against.
const DefaultIndex = "grants"

// Secrets holds the Algolia application credentials.
type Secrets struct {
	// AppID is the Algolia application ID.
	AppID string `json:"app_id"`
	// WriteApiKey is the Algolia write API key.
	WriteApiKey string `json:"write_api_key"`
}

// FetchSecrets is a function type that retrieves Algolia credentials.
// It allows for different secret retrieval strategies (static, environment variables, etc.).
type FetchSecrets func() (Secrets, error)

// StaticSecrets returns a FetchSecrets function that provides static credentials.
func StaticSecrets(appID, writeApiKey string) FetchSecrets {
	return func() (Secrets, error) {
		return Secrets{
			AppID:       appID,
			WriteApiKey: writeApiKey,
		}, nil
	}
}

// EnvSecrets reads ALGOLIA_APP_ID and ALGOLIA_API_KEY.
func EnvSecrets() FetchSecrets {
	return func() (Secrets, error) {
		appID := os.Getenv("ALGOLIA_APP_ID")
		if appID == "" {
			return Secrets{}, errors.New("ALGOLIA_APP_ID environment variable is not set")
		}

		apiKey := os.Getenv("ALGOLIA_API_KEY")
		if apiKey == "" {
			return Secrets{}, errors.New("ALGOLIA_API_KEY environment variable is not set")
		}

		return Secrets{
			AppID:       appID,
			WriteApiKey: apiKey,
		}, nil
	}
}

// Client writes grants to Algolia. The underlying client is created on
// first use.
type Client struct {
	getClient func() (*search.Client, error)
	tracer    trace.Tracer
}

// NewClient creates a client that fetches credentials once, on first use.
func NewClient(fetchSecrets FetchSecrets) *Client {
	getClient := sync.OnceValues(func() (*search.Client, error) {
		secrets, err := fetchSecrets()
		if err != nil {
			return nil, errors.Wrap(err, "failed to fetch secrets")
		}

		if secrets.AppID == "" {
			return nil, errors.New("AppID is empty")
		}

		if secrets.WriteApiKey == "" {
			return nil, errors.New("WriteApiKey is empty")
		}

		return search.NewClient(secrets.AppID, secrets.WriteApiKey), nil
	})

	return &Client{
		getClient: getClient,
		tracer:    otel.Tracer("grantsx-algolia"),
	}
}

func (c *Client) index(span trace.Span, indexName string) (*search.Index, error) {
	client, err := c.getClient()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to get Algolia client")
		return nil, errors.WithSecondaryError(grantsx.ErrBackendUnavailable, err)
	}
	return client.InitIndex(indexName), nil
}

// GrantObject converts g into an Algolia record keyed by the grant id.
func GrantObject(g grantsx.Grant) map[string]interface{} {
	object := make(map[string]interface{}, len(g.Fields)+6)
	for k, v := range g.Fields {
		object[k] = v
	}
	object["objectID"] = g.ID
	object[grantsx.FieldTitle] = g.Title
	object[grantsx.FieldAgencyName] = g.AgencyName
	object[grantsx.FieldCity] = g.City
	object[grantsx.FieldMinAmount] = g.MinAmount
	object[grantsx.FieldMaxAmount] = g.MaxAmount
	delete(object, grantsx.FieldMatchPercentage)
	return object
}

// SaveGrant writes g to indexName.
func (c *Client) SaveGrant(ctx context.Context, indexName string, g grantsx.Grant) error {
	_, span := c.tracer.Start(ctx, "algolia.save_grant",
		trace.WithAttributes(
			attribute.String("algolia.index_name", indexName),
			attribute.String("algolia.object_id", g.ID),
		),
	)
	defer span.End()

	if g.ID == "" {
		err := errors.New("grant has no id")
		span.RecordError(err)
		span.SetStatus(codes.Error, "grant has no id")
		return err
	}

	index, err := c.index(span, indexName)
	if err != nil {
		return err
	}

	if _, err := index.SaveObject(GrantObject(g)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, fmt.Sprintf("failed to save grant to index %s", indexName))
		return errors.Wrapf(err, "failed to save grant %s to Algolia index %s", g.ID, indexName)
	}

	span.SetStatus(codes.Ok, "grant saved successfully")
	return nil
}

// DeleteGrant removes the grant with id from indexName.
func (c *Client) DeleteGrant(ctx context.Context, indexName string, id string) error {
	_, span := c.tracer.Start(ctx, "algolia.delete_grant",
		trace.WithAttributes(
			attribute.String("algolia.index_name", indexName),
			attribute.String("algolia.object_id", id),
		),
	)
	defer span.End()

	index, err := c.index(span, indexName)
	if err != nil {
		return err
	}

	if _, err := index.DeleteObject(id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, fmt.Sprintf("failed to delete grant from index %s", indexName))
		return errors.Wrapf(err, "failed to delete grant %s from Algolia index %s", id, indexName)
	}

	span.SetStatus(codes.Ok, "grant deleted successfully")
	return nil
}

// BatchSaveGrants writes grants to indexName in one batch.
func (c *Client) BatchSaveGrants(ctx context.Context, indexName string, grants []grantsx.Grant) error {
	if len(grants) == 0 {
		return nil
	}

	_, span := c.tracer.Start(ctx, "algolia.batch_save_grants",
		trace.WithAttributes(
			attribute.String("algolia.index_name", indexName),
			attribute.Int("algolia.object_count", len(grants)),
		),
	)
	defer span.End()

	index, err := c.index(span, indexName)
	if err != nil {
		return err
	}

	objects := make([]map[string]interface{}, 0, len(grants))
	for _, g := range grants {
		objects = append(objects, GrantObject(g))
	}

	if _, err := index.SaveObjects(objects); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, fmt.Sprintf("failed to batch save %d grants to index %s", len(grants), indexName))
		return errors.Wrapf(err, "failed to batch save grants to Algolia index %s", indexName)
	}

	span.SetStatus(codes.Ok, fmt.Sprintf("batch saved %d grants successfully", len(grants)))
	return nil
}

// BatchDeleteGrants removes the grants with ids from indexName in one batch.
func (c *Client) BatchDeleteGrants(ctx context.Context, indexName string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	_, span := c.tracer.Start(ctx, "algolia.batch_delete_grants",
		trace.WithAttributes(
			attribute.String("algolia.index_name", indexName),
			attribute.Int("algolia.object_count", len(ids)),
		),
	)
	defer span.End()

	index, err := c.index(span, indexName)
	if err != nil {
		return err
	}

	if _, err := index.DeleteObjects(ids); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, fmt.Sprintf("failed to batch delete %d grants from index %s", len(ids), indexName))
		return errors.Wrapf(err, "failed to batch delete grants from Algolia index %s", indexName)
	}

	span.SetStatus(codes.Ok, fmt.Sprintf("batch deleted %d grants successfully", len(ids)))
	return nil
}
