package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/jonwraymond/postinsights/cache"
	"github.com/jonwraymond/postinsights/config"
	"github.com/jonwraymond/postinsights/gemini"
	"github.com/jonwraymond/postinsights/health"
	"github.com/jonwraymond/postinsights/observe"
	"github.com/jonwraymond/postinsights/pipeline"
	"github.com/jonwraymond/postinsights/secret"
)

// runtime holds every wired component for one process.
type runtime struct {
	cfg      config.Config
	observer observe.Observer
	logger   observe.Logger
	store    *cache.Store
	chain    *secret.Chain
	pipeline *pipeline.Pipeline
	health   *health.Aggregator

	closers []func() error
}

func newRuntime(ctx context.Context, configPath string) (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	rt := &runtime{cfg: cfg}

	obsCfg := cfg.Observe
	obsCfg.Attributes = map[string]string{
		"insights.model":         cfg.Model,
		"insights.cache.backend": cfg.Cache.Kind,
	}
	obs, err := observe.NewObserver(ctx, obsCfg)
	if err != nil {
		return nil, fmt.Errorf("observe: %w", err)
	}
	rt.observer = obs
	rt.logger = obs.Logger()

	mw, err := observe.MiddlewareFromObserver(obs)
	if err != nil {
		rt.close(ctx)
		return nil, fmt.Errorf("observe middleware: %w", err)
	}

	backend, closeBackend, err := cache.Open(ctx, cfg.Cache)
	if err != nil {
		rt.close(ctx)
		return nil, err
	}
	rt.closers = append(rt.closers, closeBackend)
	rt.store = cache.NewStore(backend, cache.WithLogger(rt.logger))

	registry := secret.NewDefaultRegistry(secret.NewSessionProvider())
	chain, err := registry.Chain(cfg.CredentialRef, cfg.CredentialProviders, map[string]any{"dotenv": cfg.DotEnv})
	if err != nil {
		rt.close(ctx)
		return nil, fmt.Errorf("credentials: %w", err)
	}
	rt.chain = chain
	rt.closers = append(rt.closers, chain.Close)

	factory := gemini.NewFactory(chain, gemini.Config{Model: cfg.Model, Temperature: cfg.Temperature})
	rt.pipeline = pipeline.New(rt.store, factory.TextGenerator, pipeline.Config{
		Concurrency:     cfg.Concurrency,
		GenerateTimeout: cfg.GenerateTimeout,
	}, mw)

	rt.health = health.NewAggregator()
	rt.health.Register(health.NewStoreChecker(backend))
	rt.health.Register(health.NewCredentialChecker(chain))

	rt.logger.Debug(ctx, "runtime ready",
		observe.Field{Key: "cache_backend", Value: cfg.Cache.Kind},
		observe.Field{Key: "cache_location", Value: backend.Location()},
		observe.Field{Key: "model", Value: cfg.Model})
	return rt, nil
}

func (rt *runtime) close(ctx context.Context) error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		errs = append(errs, rt.closers[i]())
	}
	if rt.observer != nil {
		errs = append(errs, rt.observer.Shutdown(ctx))
	}
	return errors.Join(errs...)
}
