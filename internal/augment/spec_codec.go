package augment

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v3"
)

// In config files a spec is written flat: "type" and "probability" sit next
// to the type-specific parameters, e.g.
//
//	- type: zoom
//	  probability: 0.9
//	  min_factor: 0.8
//	  max_factor: 1.5

// UnmarshalYAML implements yaml.Unmarshaler.
func (s *Spec) UnmarshalYAML(node *yaml.Node) error {
	var m map[string]any
	if err := node.Decode(&m); err != nil {
		return err
	}
	return s.fromMap(m)
}

// MarshalYAML implements yaml.Marshaler, writing the flat form. Parameters
// are sorted by name so the output is stable.
func (s Spec) MarshalYAML() (any, error) {
	node := &yaml.Node{Kind: yaml.MappingNode}
	add := func(k string, v any) error {
		var val yaml.Node
		if err := val.Encode(v); err != nil {
			return err
		}
		node.Content = append(node.Content, &yaml.Node{Kind: yaml.ScalarNode, Value: k}, &val)
		return nil
	}
	if err := add("type", s.Type); err != nil {
		return nil, err
	}
	if err := add("probability", s.Probability); err != nil {
		return nil, err
	}
	keys := make([]string, 0, len(s.Params))
	for k := range s.Params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := add(k, s.Params[k]); err != nil {
			return nil, err
		}
	}
	return node, nil
}

// UnmarshalTOML implements toml.Unmarshaler for BurntSushi/toml.
func (s *Spec) UnmarshalTOML(data any) error {
	m, ok := data.(map[string]any)
	if !ok {
		return fmt.Errorf("operation must be a table, got %T", data)
	}
	return s.fromMap(m)
}

func (s *Spec) fromMap(m map[string]any) error {
	*s = Spec{}
	for k, v := range m {
		switch k {
		case "type":
			t, ok := v.(string)
			if !ok {
				return fmt.Errorf("operation type must be a string, got %T", v)
			}
			s.Type = t
		case "probability":
			switch p := v.(type) {
			case float64:
				s.Probability = p
			case int:
				s.Probability = float64(p)
			case int64:
				s.Probability = float64(p)
			default:
				return fmt.Errorf("operation probability must be a number, got %T", v)
			}
		default:
			if s.Params == nil {
				s.Params = Params{}
			}
			s.Params[k] = v
		}
	}
	return nil
}
