package repository

import (
	"database/sql"
	"fmt"

	"github.com/toolfront/openapi-bridge/pkg/models"
)

const specColumns = `id, name, title, version, spec_url, spec_content, endpoint_path,
	file_format, file_size, api_key_token, is_active, created_at, updated_at`

// APISpecRepository handles database access for stored API descriptions.
type APISpecRepository struct {
	db *sql.DB
}

func NewAPISpecRepository(db *sql.DB) *APISpecRepository {
	return &APISpecRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSpec(row rowScanner) (*models.APISpec, error) {
	spec := &models.APISpec{}
	err := row.Scan(
		&spec.ID,
		&spec.Name,
		&spec.Title,
		&spec.Version,
		&spec.SpecURL,
		&spec.SpecContent,
		&spec.EndpointPath,
		&spec.FileFormat,
		&spec.FileSize,
		&spec.APIKeyToken,
		&spec.IsActive,
		&spec.CreatedAt,
		&spec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return spec, nil
}

// Create inserts a new spec row and fills in the generated columns.
func (r *APISpecRepository) Create(spec *models.APISpec) (*models.APISpec, error) {
	query := `
		INSERT INTO api_specs (name, title, version, spec_url, spec_content, endpoint_path, file_format, file_size, api_key_token, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at, updated_at
	`

	err := r.db.QueryRow(
		query,
		spec.Name,
		spec.Title,
		spec.Version,
		spec.SpecURL,
		spec.SpecContent,
		spec.EndpointPath,
		spec.FileFormat,
		spec.FileSize,
		spec.APIKeyToken,
		spec.IsActive,
	).Scan(&spec.ID, &spec.CreatedAt, &spec.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create api spec: %w", err)
	}
	return spec, nil
}

func (r *APISpecRepository) GetByID(id int) (*models.APISpec, error) {
	query := `SELECT ` + specColumns + ` FROM api_specs WHERE id = $1`

	spec, err := scanSpec(r.db.QueryRow(query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("api spec with id %d not found", id)
		}
		return nil, fmt.Errorf("failed to get api spec: %w", err)
	}
	return spec, nil
}

func (r *APISpecRepository) GetByName(name string) (*models.APISpec, error) {
	query := `SELECT ` + specColumns + ` FROM api_specs WHERE name = $1`

	spec, err := scanSpec(r.db.QueryRow(query, name))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("api spec %q not found", name)
		}
		return nil, fmt.Errorf("failed to get api spec: %w", err)
	}
	return spec, nil
}

func (r *APISpecRepository) GetByEndpointPath(path string) (*models.APISpec, error) {
	query := `SELECT ` + specColumns + ` FROM api_specs WHERE endpoint_path = $1`

	spec, err := scanSpec(r.db.QueryRow(query, path))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("api spec with endpoint path %q not found", path)
		}
		return nil, fmt.Errorf("failed to get api spec: %w", err)
	}
	return spec, nil
}

func (r *APISpecRepository) GetAll() ([]*models.APISpec, error) {
	return r.list(`SELECT ` + specColumns + ` FROM api_specs ORDER BY created_at DESC`)
}

func (r *APISpecRepository) GetActive() ([]*models.APISpec, error) {
	return r.list(`SELECT ` + specColumns + ` FROM api_specs WHERE is_active = true ORDER BY created_at DESC`)
}

func (r *APISpecRepository) list(query string) ([]*models.APISpec, error) {
	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query api specs: %w", err)
	}
	defer rows.Close()

	var specs []*models.APISpec
	for rows.Next() {
		spec, err := scanSpec(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan api spec: %w", err)
		}
		specs = append(specs, spec)
	}
	return specs, rows.Err()
}

// Update rewrites every mutable column of an existing row.
func (r *APISpecRepository) Update(spec *models.APISpec) (*models.APISpec, error) {
	query := `
		UPDATE api_specs
		SET name = $2, title = $3, version = $4, spec_url = $5, spec_content = $6, endpoint_path = $7,
		    file_format = $8, file_size = $9, api_key_token = $10, is_active = $11, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`

	err := r.db.QueryRow(
		query,
		spec.ID,
		spec.Name,
		spec.Title,
		spec.Version,
		spec.SpecURL,
		spec.SpecContent,
		spec.EndpointPath,
		spec.FileFormat,
		spec.FileSize,
		spec.APIKeyToken,
		spec.IsActive,
	).Scan(&spec.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to update api spec: %w", err)
	}
	return spec, nil
}

func (r *APISpecRepository) Delete(id int) error {
	return r.execOne(`DELETE FROM api_specs WHERE id = $1`, id)
}

// SetActive flips the is_active flag of one row.
func (r *APISpecRepository) SetActive(id int, active bool) error {
	return r.execOne(`UPDATE api_specs SET is_active = $2, updated_at = NOW() WHERE id = $1`, id, active)
}

// UpdateAPIKeyToken replaces the per-spec credential. A nil token clears it.
func (r *APISpecRepository) UpdateAPIKeyToken(id int, token *string) error {
	return r.execOne(`UPDATE api_specs SET api_key_token = $2, updated_at = NOW() WHERE id = $1`, id, token)
}

// execOne runs a statement that must affect exactly one row identified
// by id.
func (r *APISpecRepository) execOne(query string, id int, args ...any) error {
	result, err := r.db.Exec(query, append([]any{id}, args...)...)
	if err != nil {
		return fmt.Errorf("statement failed: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("api spec with id %d not found", id)
	}
	return nil
}
