package models

import (
	"time"
)

// APISpec is one row of the api_specs table: a stored API description
// plus the endpoint it is mounted under and its optional per-spec
// credential.
type APISpec struct {
	ID           int        `json:"id" db:"id"`
	Name         string     `json:"name" db:"name"`
	Title        *string    `json:"title,omitempty" db:"title"`
	Version      *string    `json:"version,omitempty" db:"version"`
	SpecURL      *string    `json:"spec_url,omitempty" db:"spec_url"`
	SpecContent  string     `json:"spec_content" db:"spec_content"`
	EndpointPath string     `json:"endpoint_path" db:"endpoint_path"`
	FileFormat   *string    `json:"file_format,omitempty" db:"file_format"`
	FileSize     *int       `json:"file_size,omitempty" db:"file_size"`
	APIKeyToken  *string    `json:"api_key_token,omitempty" db:"api_key_token"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	CreatedAt    *time.Time `json:"created_at,omitempty" db:"created_at"`
	UpdatedAt    *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// TableName returns the table backing APISpec.
func (APISpec) TableName() string {
	return "api_specs"
}

// NewAPISpec creates a spec row with defaults: active, yaml format.
func NewAPISpec(name, specContent, endpointPath string) *APISpec {
	now := time.Now()
	format := "yaml"

	return &APISpec{
		Name:         name,
		SpecContent:  specContent,
		EndpointPath: endpointPath,
		FileFormat:   &format,
		IsActive:     true,
		CreatedAt:    &now,
		UpdatedAt:    &now,
	}
}
