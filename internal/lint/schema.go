package lint

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/ivlev/formation2video/internal/payload"
)

// CodeSchemaViolation is reported for every leaf schema error.
const CodeSchemaViolation = "schema_violation"

const schemaURL = "payload.schema.json"

//go:embed payload.schema.json
var schemaText string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func compiledSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		c := jsonschema.NewCompiler()
		c.Draft = jsonschema.Draft7
		if err := c.AddResource(schemaURL, strings.NewReader(schemaText)); err != nil {
			schemaErr = err
			return
		}
		schema, schemaErr = c.Compile(schemaURL)
	})
	return schema, schemaErr
}

// SchemaChecker validates the raw document of a payload against the
// embedded export-json schema.
type SchemaChecker struct{}

func NewSchemaChecker() *SchemaChecker { return &SchemaChecker{} }

func (c *SchemaChecker) Name() string { return "schema" }

func (c *SchemaChecker) Check(p *payload.Payload) []Issue {
	if p == nil || len(p.Raw) == 0 {
		return nil
	}
	s, err := compiledSchema()
	if err != nil {
		return []Issue{{Code: CodeSchemaViolation, Message: fmt.Sprintf("schema does not compile: %v", err)}}
	}

	dec := json.NewDecoder(bytes.NewReader(p.Raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return []Issue{{Code: CodeSchemaViolation, Message: fmt.Sprintf("invalid json: %v", err)}}
	}

	err = s.Validate(doc)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []Issue{{Code: CodeSchemaViolation, Message: err.Error()}}
	}
	var issues []Issue
	for _, leaf := range leaves(ve) {
		loc := leaf.InstanceLocation
		if loc == "" {
			loc = "/"
		}
		issues = append(issues, Issue{Code: CodeSchemaViolation, Message: fmt.Sprintf("%s: %s", loc, leaf.Message)})
	}
	return issues
}

func leaves(ve *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*jsonschema.ValidationError{ve}
	}
	var out []*jsonschema.ValidationError
	for _, c := range ve.Causes {
		out = append(out, leaves(c)...)
	}
	return out
}
