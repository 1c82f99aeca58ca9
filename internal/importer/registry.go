package importer

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

var (
	registry   = make(map[EntityKind]Definition)
	registryMu sync.RWMutex
)

// Register adds a kind definition to the registry.
// Panics if the kind is already registered or the definition is incomplete.
func Register(def Definition) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := registry[def.Kind]; exists {
		panic(fmt.Sprintf("entity kind already registered: %s", def.Kind))
	}
	if len(def.Fields) == 0 || def.Apply == nil || def.FindExisting == nil {
		panic(fmt.Sprintf("incomplete definition for entity kind: %s", def.Kind))
	}

	registry[def.Kind] = def
}

// Get returns a kind definition. Returns false if not registered.
func Get(kind EntityKind) (Definition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	def, ok := registry[kind]
	return def, ok
}

// All returns every registered definition, sorted by kind.
func All() []Definition {
	registryMu.RLock()
	defer registryMu.RUnlock()

	result := make([]Definition, 0, len(registry))
	for _, def := range registry {
		result = append(result, def)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Kind < result[j].Kind
	})
	return result
}

// Clear removes all registered kinds. For tests.
func Clear() {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = make(map[EntityKind]Definition)
}

// ParseEntityKind resolves a kind from its canonical name or URL form
// (e.g. "TIME_ENTRY", "time_entry", "time-entry").
func ParseEntityKind(s string) (EntityKind, bool) {
	normalized := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	switch EntityKind(normalized) {
	case KindPerson, KindProject, KindTaskCategory, KindTimeEntry:
		return EntityKind(normalized), true
	}
	return "", false
}
