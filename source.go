package main

import (
	"context"

	"github.com/Limetric/mysqlcat/internal/catalog"
	"github.com/Limetric/mysqlcat/internal/ddl"
	"github.com/Limetric/mysqlcat/internal/logger"
)

// Source produces a DDL script for the catalog. Implementations read SQL
// files or a live MySQL server.
type Source interface {
	// Name returns a human-readable name for logging ("MySQL shop", "schema.sql").
	Name() string

	// Schema returns the schema unqualified statements apply to, or "" to use
	// the catalog default.
	Schema() string

	// Script returns the statements to apply, DELIMITER lines included.
	Script(ctx context.Context) (string, error)
}

// ingestResult summarizes one source applied to a catalog.
type ingestResult struct {
	Source  string
	Errors  int
	Created []catalog.Object
}

// ingest applies every source to cat in order. Each source is one batch, so
// forward references inside a source are resolved while references across
// sources resolve only against objects already in the catalog.
func ingest(ctx context.Context, pc *ddl.Context, cat *catalog.Catalog, genFKNames bool, sources ...Source) ([]ingestResult, error) {
	log := logger.Nop()
	if pc != nil {
		log = logger.OrNop(pc.Log)
	}

	results := make([]ingestResult, 0, len(sources))
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		script, err := src.Script(ctx)
		if err != nil {
			return results, err
		}

		var created []catalog.Object
		opts := ddl.Options{
			Schema:              src.Schema(),
			GenFKNamesWhenEmpty: genFKNames,
			CreatedObjects:      &created,
		}
		errs := ddl.ParseSQLIntoCatalog(ctx, pc, cat, script, opts)
		log.Infow("ingested source", "source", src.Name(), "objects", len(created), "errors", errs)
		results = append(results, ingestResult{Source: src.Name(), Errors: errs, Created: created})
	}
	return results, nil
}
