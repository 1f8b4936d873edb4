package shopify

import (
	"bytes"
	"embed"
	"fmt"
	"strings"

	"shopify-insights/internal/domain"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schemas/*.json
var schemaFS embed.FS

const schemaBaseURL = "https://shopify-insights.local/schemas/"

// PayloadValidator checks webhook bodies against the embedded JSON schemas
// before they are decoded into domain payloads.
type PayloadValidator struct {
	schemas map[string]*jsonschema.Schema
}

func NewPayloadValidator() (*PayloadValidator, error) {
	names := []string{"order", "customer", "product", "shop"}
	c := jsonschema.NewCompiler()
	for _, name := range names {
		raw, err := schemaFS.ReadFile("schemas/" + name + ".json")
		if err != nil {
			return nil, fmt.Errorf("failed to read %s schema: %w", name, err)
		}
		doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s schema: %w", name, err)
		}
		if err := c.AddResource(schemaBaseURL+name+".json", doc); err != nil {
			return nil, fmt.Errorf("failed to add %s schema: %w", name, err)
		}
	}

	v := &PayloadValidator{schemas: make(map[string]*jsonschema.Schema, len(names))}
	for _, name := range names {
		sch, err := c.Compile(schemaBaseURL + name + ".json")
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s schema: %w", name, err)
		}
		v.schemas[name] = sch
	}
	return v, nil
}

func (v *PayloadValidator) schemaFor(topic string) *jsonschema.Schema {
	switch {
	case strings.HasPrefix(topic, "orders/"):
		return v.schemas["order"]
	case strings.HasPrefix(topic, "customers/"):
		return v.schemas["customer"]
	case strings.HasPrefix(topic, "products/"):
		return v.schemas["product"]
	case topic == domain.TopicAppUninstalled:
		return v.schemas["shop"]
	}
	return nil
}

// Validate returns an ErrInvalidPayload error when raw does not match the
// topic's schema. Topics without a schema always pass.
func (v *PayloadValidator) Validate(topic string, raw []byte) error {
	sch := v.schemaFor(topic)
	if sch == nil {
		return nil
	}
	if topic == domain.TopicAppUninstalled && len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	inst, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidPayload, topic, err)
	}
	if err := sch.Validate(inst); err != nil {
		return fmt.Errorf("%w: %s: %v", domain.ErrInvalidPayload, topic, err)
	}
	return nil
}
