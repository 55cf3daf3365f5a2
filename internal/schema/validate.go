package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Document names accepted by Validate.
const (
	BookSourceDoc  = "book_source"
	ReplaceRuleDoc = "replace_rule"
)

var (
	compileOnce sync.Once
	compiled    map[string]*jsonschema.Schema
	compileErr  error
)

func compileAll() {
	compiled = make(map[string]*jsonschema.Schema)
	compiler := jsonschema.NewCompiler()
	for _, name := range []string{BookSourceDoc, ReplaceRuleDoc} {
		file := name + ".json"
		raw, err := schemaFS.ReadFile("schemas/json/" + file)
		if err != nil {
			compileErr = fmt.Errorf("failed to read schema %s: %w", name, err)
			return
		}
		if err := compiler.AddResource(file, bytes.NewReader(raw)); err != nil {
			compileErr = fmt.Errorf("failed to load schema %s: %w", name, err)
			return
		}
		s, err := compiler.Compile(file)
		if err != nil {
			compileErr = fmt.Errorf("failed to compile schema %s: %w", name, err)
			return
		}
		compiled[name] = s
	}
}

// Validate checks an import payload against the named document schema.
// The payload may be a single object or an array of objects; each element is
// validated and the first failure is reported with its index.
func Validate(name string, payload []byte) error {
	compileOnce.Do(compileAll)
	if compileErr != nil {
		return compileErr
	}
	s, ok := compiled[name]
	if !ok {
		return fmt.Errorf("schema not found: %s", name)
	}

	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return fmt.Errorf("failed to decode JSON for validation: %w", err)
	}

	items, isList := doc.([]any)
	if !isList {
		items = []any{doc}
	}
	for i, item := range items {
		if err := s.Validate(item); err != nil {
			if isList {
				return fmt.Errorf("item %d does not match %s schema: %w", i, name, err)
			}
			return fmt.Errorf("document does not match %s schema: %w", name, err)
		}
	}
	return nil
}
