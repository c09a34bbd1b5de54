// Command spec-manager administers the stored spec registry: list,
// show, import, activate, deactivate, delete, and credential updates.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/phuslu/log"

	"github.com/toolfront/openapi-bridge/pkg/database"
	"github.com/toolfront/openapi-bridge/pkg/models"
	"github.com/toolfront/openapi-bridge/pkg/services"
)

func main() {
	log.DefaultLogger = log.Logger{Level: log.InfoLevel, Writer: &log.IOWriter{Writer: os.Stderr}}

	if len(os.Args) < 2 {
		printHelp()
		os.Exit(1)
	}
	command := os.Args[1]
	if command == "help" {
		printHelp()
		return
	}

	db, err := database.Initialize(os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()

	specs := services.NewSpecService(db)

	switch command {
	case "list":
		err = handleList(specs, false)
	case "active":
		err = handleList(specs, true)
	case "show":
		err = handleShow(specs)
	case "import":
		err = handleImport(specs)
	case "activate":
		err = handleSetActive(specs, true)
	case "deactivate":
		err = handleSetActive(specs, false)
	case "delete":
		err = handleDelete(specs)
	case "set-token":
		err = handleSetToken(specs)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printHelp()
		os.Exit(1)
	}
	if err != nil {
		log.Fatal().Err(err).Str("command", command).Msg("command failed")
	}
}

func handleList(specs *services.SpecService, activeOnly bool) error {
	var rows []*models.APISpec
	var err error
	if activeOnly {
		rows, err = specs.GetActiveSpecs()
	} else {
		rows, err = specs.GetAllSpecs()
	}
	if err != nil {
		return err
	}

	if len(rows) == 0 {
		fmt.Println("No specs found.")
		return nil
	}
	fmt.Printf("%-5s %-25s %-25s %-8s %-6s\n", "ID", "NAME", "ENDPOINT", "ACTIVE", "TOKEN")
	for _, row := range rows {
		token := "-"
		if row.APIKeyToken != nil && *row.APIKeyToken != "" {
			token = "set"
		}
		fmt.Printf("%-5d %-25s %-25s %-8v %-6s\n", row.ID, row.Name, row.EndpointPath, row.IsActive, token)
	}
	return nil
}

func handleShow(specs *services.SpecService) error {
	id, err := argID("show")
	if err != nil {
		return err
	}
	row, err := specs.GetSpecByID(id)
	if err != nil {
		return err
	}
	fmt.Printf("ID:       %d\n", row.ID)
	fmt.Printf("Name:     %s\n", row.Name)
	fmt.Printf("Endpoint: %s\n", row.EndpointPath)
	fmt.Printf("Active:   %v\n", row.IsActive)
	if row.Title != nil {
		fmt.Printf("Title:    %s\n", *row.Title)
	}
	if row.Version != nil {
		fmt.Printf("Version:  %s\n", *row.Version)
	}
	if row.FileFormat != nil {
		fmt.Printf("Format:   %s\n", *row.FileFormat)
	}
	if row.FileSize != nil {
		fmt.Printf("Size:     %d bytes\n", *row.FileSize)
	}
	if row.SpecURL != nil {
		fmt.Printf("URL:      %s\n", *row.SpecURL)
	}
	return nil
}

func handleImport(specs *services.SpecService) error {
	if len(os.Args) < 5 {
		return fmt.Errorf("usage: spec-manager import <file-or-url> <name> <endpoint> [token]")
	}
	source, name, endpoint := os.Args[2], os.Args[3], os.Args[4]
	var token *string
	if len(os.Args) > 5 {
		token = &os.Args[5]
	}

	row, err := specs.Import(context.Background(), source, name, endpoint, token)
	if err != nil {
		return err
	}
	fmt.Printf("Imported spec %q with id %d at /%s\n", row.Name, row.ID, row.EndpointPath)
	return nil
}

func handleSetActive(specs *services.SpecService, active bool) error {
	verb := "activate"
	if !active {
		verb = "deactivate"
	}
	id, err := argID(verb)
	if err != nil {
		return err
	}
	if active {
		err = specs.ActivateSpec(id)
	} else {
		err = specs.DeactivateSpec(id)
	}
	if err != nil {
		return err
	}
	fmt.Printf("Spec %d %sd\n", id, verb)
	return nil
}

func handleDelete(specs *services.SpecService) error {
	id, err := argID("delete")
	if err != nil {
		return err
	}
	if err := specs.DeleteSpec(id); err != nil {
		return err
	}
	fmt.Printf("Spec %d deleted\n", id)
	return nil
}

func handleSetToken(specs *services.SpecService) error {
	if len(os.Args) < 3 {
		return fmt.Errorf("usage: spec-manager set-token <id> [token]")
	}
	id, err := strconv.Atoi(os.Args[2])
	if err != nil {
		return fmt.Errorf("spec id must be an integer: %w", err)
	}
	var token *string
	if len(os.Args) > 3 && os.Args[3] != "" {
		token = &os.Args[3]
	}
	if err := specs.SetAPIKeyToken(id, token); err != nil {
		return err
	}
	if token == nil {
		fmt.Printf("Token cleared for spec %d\n", id)
	} else {
		fmt.Printf("Token updated for spec %d\n", id)
	}
	return nil
}

func argID(command string) (int, error) {
	if len(os.Args) < 3 {
		return 0, fmt.Errorf("usage: spec-manager %s <id>", command)
	}
	id, err := strconv.Atoi(os.Args[2])
	if err != nil {
		return 0, fmt.Errorf("spec id must be an integer: %w", err)
	}
	return id, nil
}

func printHelp() {
	fmt.Println(`spec-manager - manage stored API descriptions

Usage:
  spec-manager list                                    list every spec
  spec-manager active                                  list active specs
  spec-manager show <id>                               show one spec
  spec-manager import <file-or-url> <name> <endpoint> [token]
  spec-manager activate <id>
  spec-manager deactivate <id>
  spec-manager delete <id>
  spec-manager set-token <id> [token]                  empty token clears it
  spec-manager help

DATABASE_URL must point at the PostgreSQL spec store.`)
}
