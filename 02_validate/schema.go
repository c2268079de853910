package validate

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// LoadSchema reads and compiles the Draft-7 plan schema. Called once per
// run; the compiled schema is reused for every validation.
func LoadSchema(path string) (*jsonschema.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	if err := compiler.AddResource("plan_schema.json", bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("load plan schema: %w", err)
	}
	schema, err := compiler.Compile("plan_schema.json")
	if err != nil {
		return nil, fmt.Errorf("compile plan schema: %w", err)
	}
	return schema, nil
}

// parse turns raw model output into a JSON document. Markdown fences are
// stripped first since models occasionally wrap the plan in ```json blocks.
func parse(raw string) ([]byte, interface{}, error) {
	cleaned := []byte(cleanJSON(raw))
	var doc interface{}
	if err := json.Unmarshal(cleaned, &doc); err != nil {
		var offset int64
		var syn *json.SyntaxError
		if errors.As(err, &syn) {
			offset = syn.Offset
		}
		return nil, nil, &MalformedOutputError{Offset: offset, Reason: err.Error()}
	}
	return cleaned, doc, nil
}

// checkSchema validates a parsed document against the compiled schema and
// converts the library's error tree into the flat violation list.
func checkSchema(schema *jsonschema.Schema, doc interface{}) error {
	err := schema.Validate(doc)
	if err == nil {
		return nil
	}
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return fmt.Errorf("schema validation: %w", err)
	}

	var violations []FieldViolation
	for _, be := range ve.BasicOutput().Errors {
		// Composite entries just point at the sub-errors below them.
		if strings.HasPrefix(be.Error, "doesn't validate with") {
			continue
		}
		violations = append(violations, FieldViolation{
			Path:    pointerToPath(be.InstanceLocation),
			Message: be.Error,
		})
	}
	sort.SliceStable(violations, func(i, j int) bool {
		if violations[i].Path != violations[j].Path {
			return violations[i].Path < violations[j].Path
		}
		return violations[i].Message < violations[j].Message
	})
	return &SchemaViolationError{Violations: violations}
}

func pointerToPath(ptr string) string {
	if ptr == "" || ptr == "/" {
		return "(root)"
	}
	return strings.TrimPrefix(ptr, "/")
}

// cleanJSON strips markdown fences if the model wraps its response in
// ```json ... ```
func cleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
