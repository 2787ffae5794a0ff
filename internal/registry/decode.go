package registry

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
)

// decode copies free-form component settings into out. Unknown keys are
// rejected so that typos surface at startup.
func decode(settings map[string]interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(settings); err != nil {
		return fmt.Errorf("invalid settings: %w", err)
	}
	return nil
}

// without returns a copy of settings minus keys.
func without(settings map[string]interface{}, keys ...string) map[string]interface{} {
	out := make(map[string]interface{}, len(settings))
	for k, v := range settings {
		out[k] = v
	}
	for _, k := range keys {
		delete(out, k)
	}
	return out
}
