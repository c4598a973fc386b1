package keymap

import (
	"reflect"
	"strings"
	"unicode"

	"github.com/charmbracelet/bubbles/key"
	"github.com/grovetools/arcade/config"
)

// Overrides maps snake_case binding names to replacement keys.
type Overrides map[string][]string

// LoadOverrides reads the "keybindings" map of the "tui" config section.
// Errors yield no overrides.
func LoadOverrides() Overrides {
	cfg, err := config.LoadDefault()
	if err != nil {
		return nil
	}
	var section struct {
		Keybindings Overrides `yaml:"keybindings"`
	}
	if err := cfg.UnmarshalExtension("tui", &section); err != nil {
		return nil
	}
	return section.Keybindings
}

// ApplyOverrides replaces the keys of every key.Binding field of km whose
// snake_case name appears in overrides. Embedded structs are walked too.
//
//	tui:
//	  keybindings:
//	    pause: ["space"]
func ApplyOverrides(km interface{}, overrides Overrides) {
	if overrides == nil {
		return
	}

	v := reflect.ValueOf(km)
	if v.Kind() != reflect.Ptr {
		return
	}
	v = v.Elem()
	if v.Kind() != reflect.Struct {
		return
	}

	applyOverridesRecursive(v, overrides)
}

func applyOverridesRecursive(v reflect.Value, overrides Overrides) {
	t := v.Type()
	bindingType := reflect.TypeOf(key.Binding{})

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		if !field.CanSet() {
			continue
		}

		if fieldType.Anonymous && field.Kind() == reflect.Struct {
			applyOverridesRecursive(field, overrides)
			continue
		}

		if fieldType.Type != bindingType {
			continue
		}

		keys, ok := overrides[camelToSnake(fieldType.Name)]
		if !ok || len(keys) == 0 {
			continue
		}
		keys = normalizeKeys(keys)
		desc := field.Interface().(key.Binding).Help().Desc
		field.Set(reflect.ValueOf(key.NewBinding(
			key.WithKeys(keys...),
			key.WithHelp(keys[0], desc),
		)))
	}
}

// normalizeKeys maps the spelled-out "space" to the key bubbletea reports.
func normalizeKeys(keys []string) []string {
	out := make([]string, len(keys))
	for i, k := range keys {
		if strings.EqualFold(k, "space") {
			k = " "
		}
		out[i] = k
	}
	return out
}

// camelToSnake converts a CamelCase string to snake_case: Start -> start,
// ShowStats -> show_stats.
func camelToSnake(s string) string {
	var result strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				result.WriteRune('_')
			}
			result.WriteRune(unicode.ToLower(r))
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}
