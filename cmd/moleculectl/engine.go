package main

import (
	"context"

	"molecule/internal/bootstrap"
	listservice "molecule/internal/listmodule/service"
	"molecule/internal/logic"
	policyservice "molecule/internal/policy/service"
	"molecule/internal/policy/store"
)

// engine is a throwaway in-memory registry for offline commands.
type engine struct {
	ctx       context.Context
	directory *logic.Directory
	lists     *listservice.Service
	registry  *policyservice.Service
}

func newEngine(ctx context.Context) *engine {
	if ctx == nil {
		ctx = context.Background()
	}
	directory := logic.NewDirectory()
	return &engine{
		ctx:       ctx,
		directory: directory,
		lists:     listservice.New(directory),
		registry:  policyservice.New(store.NewInMemory(), directory),
	}
}

func (e *engine) apply(seed *bootstrap.Seed) (bootstrap.Summary, error) {
	return bootstrap.Apply(e.ctx, seed, e.lists, e.directory, e.registry, nil)
}
