package node

import (
	"gopkg.in/yaml.v3"

	"github.com/c360/streamflow/errors"
)

// DecodeOptions decodes raw node options into out. Options are YAML; JSON
// decodes too since YAML is a superset. Empty input leaves out untouched so
// callers can decode over defaults.
func DecodeOptions(raw []byte, out any) error {
	if len(raw) == 0 {
		return nil
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return errors.WrapInvalid(err, "node", "DecodeOptions", "options decoding")
	}
	return nil
}
