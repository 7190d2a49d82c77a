package main

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/cockroachdb/errors"
	"github.com/letmevibethatforyou/grantsx"
	"github.com/letmevibethatforyou/grantsx/algolia"
	"github.com/letmevibethatforyou/grantsx/controller"
	"github.com/letmevibethatforyou/grantsx/inmemory"
	"github.com/letmevibethatforyou/grantsx/internal/pagecache"
	"github.com/letmevibethatforyou/grantsx/pagination"
	"github.com/letmevibethatforyou/grantsx/restapi"
	"github.com/urfave/cli/v2"

	grantsconfig "github.com/letmevibethatforyou/grantsx/internal/config"
)

// runtime holds the collaborators one command needs.
type runtime struct {
	cfg       *grantsconfig.Config
	logger    *slog.Logger
	lister    grantsx.Lister
	favorites grantsx.FavoritesLister
	matcher   grantsx.Matcher

	closers []io.Closer
}

// setup loads configuration and builds the backends. Logs go to stderr
// unless interactive is set, in which case they go to --log-file or
// nowhere.
func setup(c *cli.Context, interactive bool) (*runtime, error) {
	if err := grantsconfig.LoadEnv(c.String("env-file")); err != nil {
		return nil, err
	}

	path := c.String("config")
	if path == "" {
		path = grantsconfig.DefaultPath()
	}
	cfg, err := grantsconfig.Load(path)
	if err != nil {
		return nil, err
	}
	if err := applyFlags(c, cfg); err != nil {
		return nil, err
	}

	rt := &runtime{cfg: cfg}
	rt.logger, err = rt.newLogger(c, interactive)
	if err != nil {
		return nil, err
	}

	if err := rt.buildBackends(c.Context); err != nil {
		rt.Close()
		return nil, err
	}
	return rt, nil
}

// applyFlags layers explicitly set flags over the file configuration.
func applyFlags(c *cli.Context, cfg *grantsconfig.Config) error {
	if c.IsSet("api-url") {
		cfg.APIURL = c.String("api-url")
	}
	if c.IsSet("token") {
		cfg.Token = c.String("token")
	}
	if c.IsSet("retries") {
		cfg.Retries = c.Int("retries")
	}
	if c.IsSet("cache-ttl") {
		cfg.CacheTTL = grantsconfig.Duration{Duration: c.Duration("cache-ttl")}
	}
	if c.IsSet("offline-data") {
		cfg.OfflineData = c.String("offline-data")
	}
	if c.IsSet("algolia-index") {
		cfg.Algolia.Index = c.String("algolia-index")
	}
	if c.IsSet("algolia-secret-arn") {
		cfg.Algolia.SecretARN = c.String("algolia-secret-arn")
	}
	if c.IsSet("algolia-env") {
		cfg.Algolia.Env = c.String("algolia-env")
	}
	return cfg.Validate()
}

func (rt *runtime) newLogger(c *cli.Context, interactive bool) (*slog.Logger, error) {
	level := slog.LevelInfo
	if c.Bool("debug") {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var w io.Writer = c.App.ErrWriter
	if w == nil {
		w = os.Stderr
	}
	if interactive {
		w = io.Discard
	}
	if path := c.String("log-file"); path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, errors.Wrap(err, "failed to open log file")
		}
		rt.closers = append(rt.closers, f)
		w = f
	}

	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" || os.Getenv("AWS_REGION") != "" {
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	}
	return slog.New(slog.NewTextHandler(w, opts)), nil
}

func (rt *runtime) buildBackends(ctx context.Context) error {
	if path := rt.cfg.OfflineData; path != "" {
		store, err := loadStore(path)
		if err != nil {
			return err
		}
		rt.logger.InfoContext(ctx, "serving grants from file", "path", path, "grants", store.Size())
		rt.lister, rt.favorites, rt.matcher = store, store, store
		return nil
	}

	if rt.cfg.APIURL == "" {
		return errors.New("no backend configured: set --api-url, api_url in the config file, or --offline-data")
	}
	client, err := restapi.NewClient(rt.cfg.APIURL,
		restapi.WithToken(rt.cfg.Token),
		restapi.WithRetryMax(rt.cfg.Retries),
		restapi.WithLogger(rt.logger),
	)
	if err != nil {
		return err
	}
	rt.lister, rt.favorites = client, client

	matcher, err := newAlgoliaMatcher(ctx, rt.cfg.Algolia, rt.logger)
	if err != nil {
		return err
	}
	if matcher != nil {
		rt.matcher = matcher
	}
	return nil
}

func loadStore(path string) (*inmemory.Store, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open offline data")
	}
	defer f.Close()

	store := inmemory.New()
	if err := store.Load(f); err != nil {
		return nil, errors.Wrapf(err, "offline data %s", path)
	}
	return store, nil
}

// newAlgoliaMatcher returns nil when no Algolia credentials are configured.
func newAlgoliaMatcher(ctx context.Context, cfg grantsconfig.Algolia, logger *slog.Logger) (*algolia.Matcher, error) {
	var fetchSecrets algolia.FetchSecrets
	switch {
	case cfg.SecretARN != "" || cfg.Env != "":
		awsCfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, errors.Wrap(err, "failed to load AWS config")
		}
		client := secretsmanager.NewFromConfig(awsCfg)
		if cfg.SecretARN != "" {
			logger.InfoContext(ctx, "using AWS Secrets Manager for Algolia credentials", "secret_arn", cfg.SecretARN)
			fetchSecrets = algolia.AWSSecretsFromARN(ctx, client, cfg.SecretARN)
		} else {
			logger.InfoContext(ctx, "using AWS Secrets Manager for Algolia credentials", "environment", cfg.Env)
			fetchSecrets = algolia.AWSSecrets(ctx, client, cfg.Env)
		}
	case os.Getenv("ALGOLIA_APP_ID") != "":
		fetchSecrets = algolia.EnvSecrets()
	default:
		return nil, nil
	}
	return algolia.NewMatcher(algolia.NewClient(fetchSecrets), cfg.Index), nil
}

// controller builds a controller over the configured lister.
func (rt *runtime) controller() *controller.Controller {
	cache := pagecache.New(
		pagecache.WithTTL(rt.cfg.CacheTTL.Duration),
		pagecache.WithSize(rt.cfg.CacheSize),
		pagecache.WithLogger(rt.logger),
	)
	return controller.New(rt.lister,
		controller.WithCache(cache),
		controller.WithLogger(rt.logger),
		controller.WithPageSize(pagination.PageSize(rt.cfg.PageSize)),
	)
}

// Close releases the log file, if any.
func (rt *runtime) Close() error {
	var errs error
	for _, c := range rt.closers {
		errs = errors.CombineErrors(errs, c.Close())
	}
	rt.closers = nil
	return errs
}
