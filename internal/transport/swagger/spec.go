package swagger

import (
	"context"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

// LoadSpec parses and validates the OpenAPI document so a broken spec fails
// at startup instead of serving garbage to the swagger UI.
func LoadSpec(path string) (*openapi3.T, error) {
	loader := openapi3.NewLoader()

	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load openapi spec from %s: %w", path, err)
	}

	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("openapi spec %s is invalid: %w", path, err)
	}

	return doc, nil
}
