// Command import-specs bulk-imports every YAML/JSON description in a
// directory into the spec store, deriving names and endpoint paths from
// the file names.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/phuslu/log"

	"github.com/toolfront/openapi-bridge/pkg/database"
	"github.com/toolfront/openapi-bridge/pkg/services"
)

func main() {
	log.DefaultLogger = log.Logger{Level: log.InfoLevel, Writer: &log.IOWriter{Writer: os.Stderr}}

	specsDir := "./specs"
	if len(os.Args) > 1 {
		specsDir = os.Args[1]
	}
	if _, err := os.Stat(specsDir); os.IsNotExist(err) {
		log.Fatal().Str("dir", specsDir).Msg("specs directory does not exist")
	}

	db, err := database.Initialize(os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()

	specs := services.NewSpecService(db)

	entries, err := os.ReadDir(specsDir)
	if err != nil {
		log.Fatal().Err(err).Str("dir", specsDir).Msg("failed to read specs directory")
	}

	ctx := context.Background()
	imported := 0
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
		source := filepath.Join(specsDir, entry.Name())

		if _, err := specs.Import(ctx, source, name, endpoint, nil); err != nil {
			log.Warn().Str("file", entry.Name()).Err(err).Msg("import failed, skipping")
			continue
		}
		imported++
	}

	fmt.Printf("Imported %d specs from %s\n", imported, specsDir)
}
