package tool

import (
	"fmt"

	"github.com/xeipuuv/gojsonschema"
)

// ValidateArguments checks args against a JSON Schema document. A nil or
// empty schema accepts anything. Validation problems are joined into a
// single error naming each offending field.
func ValidateArguments(args map[string]any, schema map[string]any) error {
	if len(schema) == 0 {
		return nil
	}
	if args == nil {
		args = map[string]any{}
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewGoLoader(schema),
		gojsonschema.NewGoLoader(args),
	)
	if err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msg := "invalid arguments:"
	for _, desc := range result.Errors() {
		msg += " " + desc.String() + ";"
	}
	return fmt.Errorf("%s", msg)
}
