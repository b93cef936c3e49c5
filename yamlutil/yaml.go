// Package yamlutil holds the yaml encoding settings shared by the context
// catalog, context input and command output.
package yamlutil

import (
	"bytes"

	"go.yaml.in/yaml/v3"
)

const DefaultIndent = 2

func MarshalWithIndent(v any, indent int) ([]byte, error) {
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(indent)
	if err := encoder.Encode(v); err != nil {
		_ = encoder.Close()
		return nil, err
	}
	if err := encoder.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func Marshal(v any) ([]byte, error) {
	return MarshalWithIndent(v, DefaultIndent)
}

// DecodeStrict decodes the first document in data into out and rejects keys
// that out does not declare.
func DecodeStrict(data []byte, out any) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	return decoder.Decode(out)
}
