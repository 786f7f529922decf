package protocol

import (
	"bytes"
	"embed"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

// CompileSchema compiles one of the embedded inbound-frame schemas by name
// (e.g. "res", "receipt", "welcome"). Compilation failures are programmer
// errors, so callers typically go through MustCompileSchema.
func CompileSchema(name string) (*jsonschema.Schema, error) {
	path := fmt.Sprintf("schemas/%s.schema.json", name)
	b, err := schemaFS.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", name, err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(path, bytes.NewReader(b)); err != nil {
		return nil, fmt.Errorf("schema %s: %w", name, err)
	}
	s, err := c.Compile(path)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", name, err)
	}
	return s, nil
}

func MustCompileSchema(name string) *jsonschema.Schema {
	s, err := CompileSchema(name)
	if err != nil {
		panic(err)
	}
	return s
}
