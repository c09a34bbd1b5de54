// Package loader fetches an API description from a file path or URL,
// decodes it by extension, and parses it into the OpenAPI document
// model the conversion engine consumes.
package loader

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/phuslu/log"
	"gopkg.in/yaml.v3"

	"github.com/toolfront/openapi-bridge/pkg/memory"
	"github.com/toolfront/openapi-bridge/pkg/toolgen"
)

// maxSpecBytes caps how much description content is read from a file or
// URL before ingestion gives up.
const maxSpecBytes = 32 << 20

// Document is one loaded API description: the raw content, its decoded
// format, the endpoint name derived from the source, and the parsed
// document model.
type Document struct {
	Source   string
	Endpoint string
	Format   string
	Content  []byte
	Doc      *openapi3.T
}

// Loader fetches and parses API descriptions. Safe for concurrent use.
type Loader struct {
	client *http.Client
	reader *memory.CappedReader
}

func New() *Loader {
	return &Loader{
		client: &http.Client{Timeout: 30 * time.Second},
		reader: memory.NewCappedReader(maxSpecBytes),
	}
}

// Load fetches source (file path or http(s) URL), decodes it by
// extension, and parses it. Fetch, decode, and parse failures are all
// LoadError; a parsed document missing its format identifier, info
// block, or path table is a ValidationError.
func (l *Loader) Load(ctx context.Context, source string) (*Document, error) {
	content, err := l.fetch(ctx, source)
	if err != nil {
		return nil, &toolgen.LoadError{Source: source, Err: err}
	}

	format := FormatFromSource(source)
	doc, err := l.Parse(ctx, content, format)
	if err != nil {
		return nil, err
	}

	log.Debug().Str("source", source).Str("format", format).Int("bytes", len(content)).Msg("description loaded")
	return &Document{
		Source:   source,
		Endpoint: EndpointFromSource(source),
		Format:   format,
		Content:  content,
		Doc:      doc,
	}, nil
}

// Parse decodes content in the given format ("yaml" or "json") and
// parses it into the document model, then checks the structural
// invariant every description must satisfy.
func (l *Loader) Parse(ctx context.Context, content []byte, format string) (*openapi3.T, error) {
	// Decode explicitly first so a malformed document reports a
	// position in its own syntax, not a generic parser error.
	if format == "yaml" {
		var probe any
		if err := yaml.Unmarshal(content, &probe); err != nil {
			return nil, &toolgen.LoadError{Source: "yaml content", Err: err}
		}
	} else {
		var probe any
		if err := json.Unmarshal(content, &probe); err != nil {
			return nil, &toolgen.LoadError{Source: "json content", Err: err}
		}
	}

	openapiLoader := openapi3.NewLoader()
	openapiLoader.Context = ctx
	doc, err := openapiLoader.LoadFromData(content)
	if err != nil {
		return nil, &toolgen.LoadError{Source: "description", Err: err}
	}

	if err := ValidateStructure(doc); err != nil {
		return nil, err
	}
	return doc, nil
}

// ValidateStructure enforces the minimal shape of an API description: a
// format identifier, an info block, and a path table. Anything less is
// rejected before conversion begins.
func ValidateStructure(doc *openapi3.T) error {
	if doc == nil {
		return toolgen.NewValidationError("document is empty")
	}
	if doc.OpenAPI == "" {
		return toolgen.NewValidationError("missing openapi format identifier")
	}
	if doc.Info == nil {
		return toolgen.NewValidationError("missing info block")
	}
	if doc.Paths == nil {
		return toolgen.NewValidationError("missing path table")
	}
	return nil
}

func (l *Loader) fetch(ctx context.Context, source string) ([]byte, error) {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return l.fetchURL(ctx, source)
	}
	content, err := os.ReadFile(source)
	if err != nil {
		return nil, err
	}
	if len(content) > maxSpecBytes {
		return nil, fmt.Errorf("description exceeds %d bytes", maxSpecBytes)
	}
	return content, nil
}

func (l *Loader) fetchURL(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d fetching description", resp.StatusCode)
	}
	return l.reader.ReadAll(ctx, resp.Body)
}

// FormatFromSource picks the decode format by file extension: .yaml and
// .yml are YAML, anything else is JSON.
func FormatFromSource(source string) string {
	cleaned := source
	if idx := strings.Index(cleaned, "?"); idx != -1 {
		cleaned = cleaned[:idx]
	}
	switch strings.ToLower(filepath.Ext(cleaned)) {
	case ".yaml", ".yml":
		return "yaml"
	default:
		return "json"
	}
}

// EndpointFromSource derives a mount name from a file path or URL: the
// base name, lowercased, without extension or query string.
func EndpointFromSource(source string) string {
	cleaned := source
	if idx := strings.Index(cleaned, "?"); idx != -1 {
		cleaned = cleaned[:idx]
	}
	base := filepath.Base(strings.TrimSuffix(cleaned, "/"))
	if idx := strings.LastIndex(base, "."); idx > 0 {
		base = base[:idx]
	}
	return strings.ToLower(base)
}
