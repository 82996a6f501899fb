package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaBaseURL = "mem://schemas/"

// JSONSchemaValidator checks decoded JSON documents against schema files read
// from fsys. Compiled schemas are cached by path.
type JSONSchemaValidator struct {
	fsys fs.FS

	mu       sync.Mutex
	compiled map[string]*jsonschema.Schema
}

var ErrTrailingData = errors.New("unexpected data after JSON document")

// DecodeJSON reads exactly one JSON document from r, keeping numbers as
// json.Number so integer-typed schema keywords see the literal value.
func DecodeJSON(r io.Reader) (interface{}, error) {
	d := json.NewDecoder(r)
	d.UseNumber()
	var doc interface{}
	if err := d.Decode(&doc); err != nil {
		return nil, err
	}
	if _, err := d.Token(); err != io.EOF {
		return nil, ErrTrailingData
	}
	return doc, nil
}

func NewJSONSchemaValidator(fsys fs.FS) *JSONSchemaValidator {
	return &JSONSchemaValidator{
		fsys:     fsys,
		compiled: make(map[string]*jsonschema.Schema),
	}
}

// ValidateObject reports whether obj conforms to the schema at schemaPath.
// obj must come from DecodeJSON or encoding/json. Failures are
// logged here and never returned to the caller.
func (v *JSONSchemaValidator) ValidateObject(obj interface{}, schemaPath string) bool {
	schema, err := v.schema(schemaPath)
	if err != nil {
		slog.Error("can't load JSON schema", "schema", schemaPath, "error", err)
		return false
	}
	if err := schema.Validate(obj); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			slog.Warn("object failed schema validation", "schema", schemaPath, "detail", fmt.Sprintf("%#v", ve))
		} else {
			slog.Warn("object failed schema validation", "schema", schemaPath, "error", err)
		}
		return false
	}
	return true
}

func (v *JSONSchemaValidator) schema(path string) (*jsonschema.Schema, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if s, ok := v.compiled[path]; ok {
		return s, nil
	}

	f, err := v.fsys.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	url := schemaBaseURL + path
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft7
	if err := c.AddResource(url, f); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	s, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	v.compiled[path] = s
	return s, nil
}
