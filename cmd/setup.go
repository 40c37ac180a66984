package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/cardforge/cardforge/internal/bleed"
	"github.com/cardforge/cardforge/internal/bleed/gpu"
	"github.com/cardforge/cardforge/internal/cachestore"
	"github.com/cardforge/cardforge/internal/config"
	"github.com/cardforge/cardforge/internal/imagecache"
	"github.com/cardforge/cardforge/internal/pool"
	"github.com/cardforge/cardforge/internal/render"
)

// openStore opens the persistent image-cache backend selected by the
// configuration.
func openStore(ctx context.Context, cfg *config.Config) (cachestore.Store, error) {
	switch cfg.Cache.Backend {
	case "fs", "":
		return cachestore.NewFS(cfg.Cache.Dir)
	case "postgres":
		if cfg.Cache.DatabaseURL == "" {
			return nil, errors.New("CARDFORGE_CACHE_DATABASE_URL is required for the postgres backend")
		}
		return cachestore.NewPostgres(ctx, cfg.Cache.DatabaseURL)
	case "mariadb":
		if cfg.Cache.DatabaseURL == "" {
			return nil, errors.New("CARDFORGE_CACHE_DATABASE_URL is required for the mariadb backend")
		}
		return cachestore.NewMariaDB(ctx, cfg.Cache.DatabaseURL)
	default:
		return nil, fmt.Errorf("unknown cache backend %q", cfg.Cache.Backend)
	}
}

// newGenerator builds the bleed generator, trying the GPU flood-fill path
// when requested and falling back to the CPU on any probe failure.
func newGenerator(useGPU bool) *bleed.Generator {
	if !useGPU {
		return bleed.NewGenerator()
	}
	accel, err := gpu.New()
	if err != nil {
		fmt.Printf("Warning: GPU unavailable (%v), using CPU flood fill\n", err)
		return bleed.NewGenerator()
	}
	fmt.Println("GPU flood fill enabled")
	return bleed.NewAcceleratedGenerator(accel)
}

// newWorkerStack wires the cache, bleed generator, worker pool and render
// worker together. The returned pool is registered for teardown.
func newWorkerStack(ctx context.Context, cfg *config.Config, useGPU bool, registry *pool.Registry) (*pooledRenderer, cachestore.Store, error) {
	store, err := openStore(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open cache store: %w", err)
	}

	cache := imagecache.New(store, imagecache.NewFetcher())
	worker := render.NewWorker(cache, newGenerator(useGPU))

	workers := cfg.Render.MaxWorkers
	if workers <= 0 {
		workers = pool.DefaultMaxWorkers()
	}
	p := registry.Add(pool.New(workers))

	return &pooledRenderer{worker: worker, pool: p}, store, nil
}

// pooledRenderer routes card jobs through the worker pool. It satisfies
// the page compositor's renderer interface.
type pooledRenderer struct {
	worker *render.Worker
	pool   *pool.Pool
}

func (r *pooledRenderer) Process(ctx context.Context, job render.CardImageJob) (*render.BleedResult, error) {
	resCh := r.pool.Submit(r.worker.Task(job))
	select {
	case res := <-resCh:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Value.(*render.BleedResult), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
