package spec

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-viper/mapstructure/v2"
	"github.com/goccy/go-yaml"
)

// readYAMLFile reads the contents of the file into a map.
func readYAMLFile(file string) (map[string]any, error) {
	data, err := os.ReadFile(file) //nolint:gosec
	if err != nil {
		return nil, fmt.Errorf("failed to read file %q: %w", file, err)
	}
	return unmarshalData(data)
}

// unmarshalData unmarshals the data into a map. An empty document yields an
// empty map.
func unmarshalData(data []byte) (map[string]any, error) {
	var cm map[string]any
	err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&cm)
	if errors.Is(err, io.EOF) {
		err = nil
	}
	if cm == nil {
		cm = map[string]any{}
	}
	return cm, err
}

// orderedKeys returns the keys of the mapping stored under key in the
// document, in the order they appear in the file.
func orderedKeys(data []byte, key string) ([]string, error) {
	var doc any
	err := yaml.NewDecoder(bytes.NewReader(data), yaml.UseOrderedMap()).Decode(&doc)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	top, ok := doc.(yaml.MapSlice)
	if !ok {
		return nil, nil
	}
	for _, item := range top {
		if fmt.Sprint(item.Key) != key {
			continue
		}
		section, ok := item.Value.(yaml.MapSlice)
		if !ok {
			return nil, nil
		}
		keys := make([]string, 0, len(section))
		for _, entry := range section {
			keys = append(keys, fmt.Sprint(entry.Key))
		}
		return keys, nil
	}
	return nil, nil
}

// decode decodes the configuration map into out. Unknown keys are errors,
// and scalars are accepted where lists are expected.
func decode(cm map[string]any, out any) error {
	md, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return md.Decode(cm)
}
