// Command seed-database fills the spec store from a seed config file
// (YAML or JSON) listing the descriptions to import, or auto-discovers
// a ./specs directory when run without arguments.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/phuslu/log"
	"gopkg.in/yaml.v3"

	"github.com/toolfront/openapi-bridge/pkg/database"
	"github.com/toolfront/openapi-bridge/pkg/services"
)

// SpecConfig is one seed entry.
type SpecConfig struct {
	File         string `json:"file" yaml:"file"`
	Name         string `json:"name" yaml:"name"`
	EndpointPath string `json:"endpoint_path" yaml:"endpoint_path"`
	Token        string `json:"token,omitempty" yaml:"token,omitempty"`
	Active       *bool  `json:"active,omitempty" yaml:"active,omitempty"`
}

// SeedConfig is the seed file's shape.
type SeedConfig struct {
	Specs []SpecConfig `json:"specs" yaml:"specs"`
}

func main() {
	log.DefaultLogger = log.Logger{Level: log.InfoLevel, Writer: &log.IOWriter{Writer: os.Stderr}}

	db, err := database.Initialize(os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()

	specs := services.NewSpecService(db)

	if len(os.Args) > 1 {
		if err := seedFromConfig(specs, os.Args[1]); err != nil {
			log.Fatal().Err(err).Msg("seeding failed")
		}
		return
	}
	if err := autoSeed(specs, "./specs"); err != nil {
		log.Fatal().Err(err).Msg("seeding failed")
	}
}

func seedFromConfig(specs *services.SpecService, configFile string) error {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return fmt.Errorf("failed to read seed config: %w", err)
	}

	var config SeedConfig
	ext := strings.ToLower(filepath.Ext(configFile))
	if ext == ".yaml" || ext == ".yml" {
		err = yaml.Unmarshal(data, &config)
	} else {
		err = json.Unmarshal(data, &config)
	}
	if err != nil {
		return fmt.Errorf("failed to parse seed config: %w", err)
	}

	ctx := context.Background()
	seeded := 0
	for _, entry := range config.Specs {
		if entry.File == "" || entry.Name == "" || entry.EndpointPath == "" {
			log.Warn().Str("name", entry.Name).Msg("seed entry missing file, name, or endpoint_path, skipping")
			continue
		}
		var token *string
		if entry.Token != "" {
			token = &entry.Token
		}

		row, err := specs.Import(ctx, entry.File, entry.Name, entry.EndpointPath, token)
		if err != nil {
			log.Warn().Str("name", entry.Name).Err(err).Msg("seed import failed, skipping")
			continue
		}
		if entry.Active != nil && !*entry.Active {
			if err := specs.DeactivateSpec(row.ID); err != nil {
				log.Warn().Str("name", entry.Name).Err(err).Msg("failed to deactivate seeded spec")
			}
		}
		seeded++
	}

	fmt.Printf("Seeded %d specs from %s\n", seeded, configFile)
	return nil
}

func autoSeed(specs *services.SpecService, dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", dir, err)
	}

	ctx := context.Background()
	seeded := 0
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext != ".yaml" && ext != ".yml" && ext != ".json" {
			continue
		}

		name := strings.TrimSuffix(entry.Name(), filepath.Ext(entry.Name()))
		endpoint := strings.ReplaceAll(name, "_", "-")

		if _, err := specs.Import(ctx, filepath.Join(dir, entry.Name()), name, endpoint, nil); err != nil {
			log.Warn().Str("file", entry.Name()).Err(err).Msg("seed import failed, skipping")
			continue
		}
		seeded++
	}

	fmt.Printf("Seeded %d specs from %s\n", seeded, dir)
	return nil
}
