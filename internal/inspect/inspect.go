// Package inspect extracts values from and validates JSON response bodies.
package inspect

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

// Extract returns the value at a JSONPath-style expression such as
// $.users[0].name. Null values are returned as "null".
func Extract(body []byte, path string) (string, error) {
	if len(body) == 0 {
		return "", fmt.Errorf("empty JSON body")
	}
	if path == "" {
		return "", fmt.Errorf("empty JSONPath expression")
	}
	if !gjson.ValidBytes(body) {
		return "", fmt.Errorf("body is not valid JSON")
	}

	result := gjson.GetBytes(body, toGjsonPath(path))
	if !result.Exists() {
		return "", fmt.Errorf("path not found: %s", path)
	}
	if result.Type == gjson.Null {
		return "null", nil
	}
	return result.String(), nil
}

// ExtractAll evaluates every named expression. Values that could be
// extracted are returned even when others fail.
func ExtractAll(body []byte, paths map[string]string) (map[string]string, error) {
	names := make([]string, 0, len(paths))
	for name := range paths {
		names = append(names, name)
	}
	sort.Strings(names)

	results := make(map[string]string, len(paths))
	var failures []string
	for _, name := range names {
		value, err := Extract(body, paths[name])
		if err != nil {
			failures = append(failures, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		results[name] = value
	}
	if len(failures) > 0 {
		return results, fmt.Errorf("extraction errors: %s", strings.Join(failures, "; "))
	}
	return results, nil
}

// toGjsonPath converts $.a.b[0]['c'] into a.b.0.c.
func toGjsonPath(path string) string {
	path = strings.TrimPrefix(path, "$")
	path = strings.TrimPrefix(path, ".")
	if path == "" {
		return "@this"
	}

	var b strings.Builder
	for i := 0; i < len(path); i++ {
		switch c := path[i]; c {
		case '[':
			end := strings.IndexByte(path[i:], ']')
			if end < 0 {
				b.WriteString(path[i:])
				return b.String()
			}
			key := strings.Trim(path[i+1:i+end], `'"`)
			if b.Len() > 0 {
				b.WriteByte('.')
			}
			b.WriteString(key)
			i += end
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

// SchemaErrors lists the violations found by ValidateSchema.
type SchemaErrors []string

func (e SchemaErrors) Error() string {
	return strings.Join(e, "; ")
}

// ValidateSchema checks body against a JSON Schema document. A nil error
// means the body is valid; violations are returned as SchemaErrors.
func ValidateSchema(body []byte, schema []byte) error {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", strings.NewReader(string(schema))); err != nil {
		return fmt.Errorf("invalid schema: %w", err)
	}
	compiled, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("invalid schema: %w", err)
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	err = compiled.Validate(doc)
	if err == nil {
		return nil
	}
	if verr, ok := err.(*jsonschema.ValidationError); ok {
		return collect(verr, nil)
	}
	return SchemaErrors{err.Error()}
}

func collect(err *jsonschema.ValidationError, out SchemaErrors) SchemaErrors {
	if len(err.Causes) == 0 {
		location := err.InstanceLocation
		if location == "" {
			location = "/"
		}
		out = append(out, fmt.Sprintf("%s: %s", location, err.Message))
	}
	for _, cause := range err.Causes {
		out = collect(cause, out)
	}
	return out
}
