package schema

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// File is the on-disk layout of a schema file (YAML, or JSON as a YAML subset).
//
//	documents:
//	  invoice:
//	    - key: invoice_number
//	      label: Invoice Number
//	      enabled: true
//	      type: string
//	output:
//	  invoice:
//	    - key: invoice_number
//	      enabled: true
type File struct {
	Documents Config       `yaml:"documents"`
	Output    OutputConfig `yaml:"output,omitempty"`
}

// LoadFile reads and validates a schema file. An empty path yields the defaults.
func LoadFile(path string) (Config, OutputConfig, error) {
	if path == "" {
		return DefaultConfig(), OutputConfig{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("read schema file: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates schema file contents.
func Parse(data []byte) (Config, OutputConfig, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, nil, fmt.Errorf("parse schema file: %w", err)
	}
	if len(f.Documents) == 0 {
		return nil, nil, fmt.Errorf("schema file declares no document types")
	}
	if err := f.Documents.Validate(); err != nil {
		return nil, nil, err
	}
	if f.Output == nil {
		f.Output = OutputConfig{}
	}
	return f.Documents, f.Output, nil
}

// Marshal encodes a config pair in the schema file layout.
func Marshal(cfg Config, out OutputConfig) ([]byte, error) {
	return yaml.Marshal(File{Documents: cfg, Output: out})
}

// LoadOutputFile reads only the output section of a schema-layout file.
func LoadOutputFile(path string) (OutputConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read output file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse output file: %w", err)
	}
	if f.Output == nil {
		f.Output = OutputConfig{}
	}
	return f.Output, nil
}

// Load reads the schema file and, when outputPath is set, replaces the output
// section with the one found there.
func Load(schemaPath, outputPath string) (Config, OutputConfig, error) {
	cfg, out, err := LoadFile(schemaPath)
	if err != nil {
		return nil, nil, err
	}
	if outputPath != "" {
		if out, err = LoadOutputFile(outputPath); err != nil {
			return nil, nil, err
		}
	}
	return cfg, out, nil
}
