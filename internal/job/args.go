package job

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// DecodeArgs maps raw call arguments onto a typed argument struct. JSON
// numbers arrive as float64, so weak typing is on to fill integer fields.
func DecodeArgs(args map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return fmt.Errorf("building argument decoder: %w", err)
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("decoding arguments: %w", err)
	}
	return nil
}
