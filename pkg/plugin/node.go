package plugin

import (
	"fmt"
	"strings"
)

// Node is a read-only view of a plugin's persisted configuration.
type Node interface {
	// Lookup returns the value stored under key, if any.
	Lookup(key string) (string, bool)
}

// Emitter receives a plugin's configuration on save.
type Emitter interface {
	Emit(key, value string)
}

// MapNode is a flat configuration node backed by a map. It accepts the maps
// produced by viper's AllSettings and by YAML/JSON decoders.
type MapNode map[string]any

// Lookup implements Node. Keys are matched case-insensitively, since viper
// lower-cases everything it reads.
func (n MapNode) Lookup(key string) (string, bool) {
	if v, ok := n[key]; ok {
		return stringify(v)
	}
	for k, v := range n {
		if strings.EqualFold(k, key) {
			return stringify(v)
		}
	}
	return "", false
}

// Emit implements Emitter.
func (n MapNode) Emit(key, value string) {
	n[key] = value
}

func stringify(v any) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		return val, true
	case fmt.Stringer:
		return val.String(), true
	default:
		return fmt.Sprintf("%v", val), true
	}
}
