// Command generate-schema writes the JSON schema of the afsctl config file.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/marmos91/afsctl/pkg/config"
)

const defaultOutput = "config.schema.json"

func main() {
	output := flag.String("o", defaultOutput, "Schema file to write (\"-\" for stdout)")
	flag.Parse()

	// A positional path overrides -o.
	if flag.NArg() > 0 {
		*output = flag.Arg(0)
	}

	data, err := buildSchema()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building schema: %v\n", err)
		os.Exit(1)
	}

	if err := writeSchema(*output, data, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing schema: %v\n", err)
		os.Exit(1)
	}
}

// buildSchema reflects config.Config using the yaml field names users write
// in afsctl.yaml.
func buildSchema() ([]byte, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
		FieldNameTag:              "yaml",
	}

	schema := reflector.Reflect(&config.Config{})
	schema.Title = "afsctl Configuration"
	schema.Description = "Configuration for the afsctl OpenAFS administration driver"
	schema.Version = "1.0.0"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	return append(data, '\n'), nil
}

func writeSchema(path string, data []byte, stdout io.Writer) error {
	if path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "JSON schema written to %s\n", path)
	return nil
}
