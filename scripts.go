package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/Limetric/mysqlcat/internal/splitter"
)

// schemaPlaceholder is replaced with the target schema in script files.
const schemaPlaceholder = "{{schema}}"

// fileSource reads a DDL script from disk.
type fileSource struct {
	path   string
	schema string
}

func newFileSource(path, schema string) *fileSource {
	return &fileSource{path: path, schema: schema}
}

func (f *fileSource) Name() string   { return filepath.Base(f.path) }
func (f *fileSource) Schema() string { return f.schema }

func (f *fileSource) Script(_ context.Context) (string, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		return "", errors.Wrapf(err, "read %s", f.path)
	}
	return expandSchema(string(data), f.schema), nil
}

// expandSchema substitutes {{schema}}. Without a schema the placeholder is
// left in place so the statement fails visibly instead of naming "".
func expandSchema(sql, schema string) string {
	if schema == "" {
		return sql
	}
	return strings.ReplaceAll(sql, schemaPlaceholder, schema)
}

// scriptSources builds sources for the configured before/after scripts and
// the files given on the command line, in that order.
func scriptSources(cfg *Config, files []string) []Source {
	schema := cfg.Catalog.DefaultSchema
	var sources []Source
	for _, f := range cfg.Scripts.Before {
		sources = append(sources, newFileSource(cfg.resolvePath(f), schema))
	}
	for _, f := range files {
		sources = append(sources, newFileSource(f, schema))
	}
	for _, f := range cfg.Scripts.After {
		sources = append(sources, newFileSource(cfg.resolvePath(f), schema))
	}
	return sources
}

// splitStatements splits SQL text into trimmed statements, honoring quotes,
// comments and DELIMITER lines.
func splitStatements(ctx context.Context, sql, delimiter string) []string {
	ranges := splitter.Determine(ctx, sql, delimiter, "\n", nil)
	stmts := make([]string, 0, len(ranges))
	for _, r := range ranges {
		if s := strings.TrimSpace(r.Text(sql)); s != "" {
			stmts = append(stmts, s)
		}
	}
	return stmts
}
