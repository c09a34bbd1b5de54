// Package services orchestrates the stored-spec lifecycle: importing
// descriptions into the database, loading the active set, and the
// activation/credential passthroughs the management surfaces use.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/phuslu/log"

	"github.com/toolfront/openapi-bridge/pkg/loader"
	"github.com/toolfront/openapi-bridge/pkg/models"
	"github.com/toolfront/openapi-bridge/pkg/repository"
)

// LoadedSpec pairs a stored spec row with its parsed document.
type LoadedSpec struct {
	Row *models.APISpec
	Doc *openapi3.T
}

// SpecService coordinates the spec store and the description loader.
type SpecService struct {
	repo   *repository.APISpecRepository
	loader *loader.Loader
}

func NewSpecService(db *sql.DB) *SpecService {
	return &SpecService{
		repo:   repository.NewAPISpecRepository(db),
		loader: loader.New(),
	}
}

// LoadActive parses every active spec row. Rows that fail to parse are
// skipped with a warning; one broken spec must not block the rest.
func (s *SpecService) LoadActive(ctx context.Context) ([]*LoadedSpec, error) {
	rows, err := s.repo.GetActive()
	if err != nil {
		return nil, fmt.Errorf("failed to load specs from database: %w", err)
	}

	var loaded []*LoadedSpec
	for _, row := range rows {
		doc, err := s.parseRow(ctx, row)
		if err != nil {
			log.Warn().Str("spec", row.Name).Err(err).Msg("skipping unparsable spec")
			continue
		}
		loaded = append(loaded, &LoadedSpec{Row: row, Doc: doc})
	}
	return loaded, nil
}

// LoadByEndpoint parses the active spec mounted at endpointPath.
func (s *SpecService) LoadByEndpoint(ctx context.Context, endpointPath string) (*LoadedSpec, error) {
	row, err := s.repo.GetByEndpointPath(endpointPath)
	if err != nil {
		return nil, err
	}
	if !row.IsActive {
		return nil, fmt.Errorf("spec at endpoint %q is not active", endpointPath)
	}
	doc, err := s.parseRow(ctx, row)
	if err != nil {
		return nil, err
	}
	return &LoadedSpec{Row: row, Doc: doc}, nil
}

func (s *SpecService) parseRow(ctx context.Context, row *models.APISpec) (*openapi3.T, error) {
	format := "yaml"
	if row.FileFormat != nil {
		format = *row.FileFormat
	}
	return s.loader.Parse(ctx, []byte(row.SpecContent), format)
}

// Import fetches a description from a file path or URL, parses it, and
// stores it under name at endpointPath. An optional token becomes the
// spec's stored credential.
func (s *SpecService) Import(ctx context.Context, source, name, endpointPath string, token *string) (*models.APISpec, error) {
	document, err := s.loader.Load(ctx, source)
	if err != nil {
		return nil, err
	}

	row := models.NewAPISpec(name, string(document.Content), endpointPath)
	row.FileFormat = &document.Format
	row.APIKeyToken = token
	size := len(document.Content)
	row.FileSize = &size
	if document.Doc.Info != nil {
		if document.Doc.Info.Title != "" {
			title := document.Doc.Info.Title
			row.Title = &title
		}
		if document.Doc.Info.Version != "" {
			version := document.Doc.Info.Version
			row.Version = &version
		}
	}
	if isURL(source) {
		row.SpecURL = &source
	}

	created, err := s.repo.Create(row)
	if err != nil {
		return nil, fmt.Errorf("failed to save spec to database: %w", err)
	}
	log.Info().Str("spec", name).Str("endpoint", endpointPath).Msg("spec imported")
	return created, nil
}

// CreateFromContent stores a description supplied as raw content, as the
// management API does.
func (s *SpecService) CreateFromContent(ctx context.Context, name, endpointPath, content, format string, token *string) (*models.APISpec, error) {
	doc, err := s.loader.Parse(ctx, []byte(content), format)
	if err != nil {
		return nil, err
	}

	row := models.NewAPISpec(name, content, endpointPath)
	row.FileFormat = &format
	row.APIKeyToken = token
	size := len(content)
	row.FileSize = &size
	if doc.Info != nil {
		if doc.Info.Title != "" {
			title := doc.Info.Title
			row.Title = &title
		}
		if doc.Info.Version != "" {
			version := doc.Info.Version
			row.Version = &version
		}
	}

	created, err := s.repo.Create(row)
	if err != nil {
		return nil, fmt.Errorf("failed to save spec to database: %w", err)
	}
	return created, nil
}

// Update rewrites an existing row.
func (s *SpecService) Update(row *models.APISpec) (*models.APISpec, error) {
	return s.repo.Update(row)
}

func (s *SpecService) GetAllSpecs() ([]*models.APISpec, error) {
	return s.repo.GetAll()
}

func (s *SpecService) GetActiveSpecs() ([]*models.APISpec, error) {
	return s.repo.GetActive()
}

func (s *SpecService) GetSpecByID(id int) (*models.APISpec, error) {
	return s.repo.GetByID(id)
}

func (s *SpecService) GetSpecByName(name string) (*models.APISpec, error) {
	return s.repo.GetByName(name)
}

func (s *SpecService) ActivateSpec(id int) error {
	return s.repo.SetActive(id, true)
}

func (s *SpecService) DeactivateSpec(id int) error {
	return s.repo.SetActive(id, false)
}

func (s *SpecService) DeleteSpec(id int) error {
	return s.repo.Delete(id)
}

// SetAPIKeyToken stores or clears the per-spec credential.
func (s *SpecService) SetAPIKeyToken(id int, token *string) error {
	return s.repo.UpdateAPIKeyToken(id, token)
}

func isURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}
