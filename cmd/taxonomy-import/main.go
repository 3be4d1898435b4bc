// Command taxonomy-import seeds the compound property tree from a CSV file
// with the columns moa_group, moa_subgroup and target. Existing nodes are
// reused, so the import can be re-run safely.
//
// Flags:
//
//	--file     CSV file to read ("-" for stdin)
//	--dry-run  parse and report without writing
package main

import (
	"context"
	"encoding/csv"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/lejeunel/image-db-app/internal/config"
	"github.com/lejeunel/image-db-app/internal/core"
	"github.com/lejeunel/image-db-app/internal/platform/logger"
)

var columns = []string{"moa_group", "moa_subgroup", "target"}

func main() {
	file := flag.String("file", "-", "CSV file to read (- for stdin)")
	dryRun := flag.Bool("dry-run", false, "parse without writing to the catalog")
	flag.Parse()

	if err := run(*file, *dryRun); err != nil {
		fmt.Fprintf(os.Stderr, "taxonomy-import: %v\n", err)
		os.Exit(1)
	}
}

func run(file string, dryRun bool) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		return err
	}
	defer log.Sync()

	in := io.Reader(os.Stdin)
	if file != "-" {
		f, err := os.Open(file)
		if err != nil {
			return err
		}
		defer func() { _ = f.Close() }()
		in = f
	}
	paths, err := readPaths(in)
	if err != nil {
		return err
	}
	log.Info("parsed taxonomy", "paths", len(paths))
	if dryRun {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	store, closer, err := core.OpenPersistentStore(ctx, core.StorageConfig{
		Driver:      core.StorageDriver(cfg.Storage.Driver),
		SQLitePath:  cfg.Storage.SQLitePath,
		PostgresDSN: cfg.Storage.PostgresDSN,
	}, core.NewDefaultRulesEngine())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = closer.Close() }()

	svc := core.NewService(store, core.WithLogger(log))
	created, _, err := svc.EnsurePropertyPaths(ctx, paths)
	if err != nil {
		return err
	}
	log.Info("taxonomy imported", "created", created, "paths", len(paths))
	return nil
}

// readPaths parses the CSV, locating columns by header name. Duplicate rows
// and rows without a group are dropped; order of first appearance is kept.
func readPaths(r io.Reader) ([]core.PropertyPath, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(columns))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	if _, ok := index[columns[0]]; !ok {
		return nil, fmt.Errorf("header must contain %s, got %v", columns[0], header)
	}
	field := func(row []string, name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	seen := make(map[core.PropertyPath]bool)
	var out []core.PropertyPath
	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		p := core.PropertyPath{
			MoaGroup:    field(row, "moa_group"),
			MoaSubgroup: field(row, "moa_subgroup"),
			Target:      field(row, "target"),
		}
		if p.MoaGroup == "" {
			continue
		}
		if p.MoaSubgroup == "" {
			p.Target = ""
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out, nil
}
