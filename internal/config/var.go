// Package config provides a centralized registry for environment variables
// used throughout kpath-search. Variables are self-registering: calling any
// Register* function records the variable's metadata (name, default,
// description, component) in a process-wide registry and returns a typed
// accessor. This enables automatic documentation generation via the
// `kpathd env` command and the `/api/env` debug endpoint.
package config

import (
	"cmp"
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

// VarType identifies the data type of an environment variable.
type VarType int

const (
	TypeString VarType = iota
	TypeBool
	TypeInt
	TypeFloat
	TypeDuration
)

func (v VarType) String() string {
	switch v {
	case TypeString:
		return "String"
	case TypeBool:
		return "Boolean"
	case TypeInt:
		return "Integer"
	case TypeFloat:
		return "Floating-Point"
	case TypeDuration:
		return "Duration"
	default:
		return "Unknown"
	}
}

func (v VarType) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

// Component identifies which part of kpath-search consumes the variable.
type Component string

const (
	ComponentServer   Component = "server"
	ComponentDatabase Component = "database"
	ComponentIndex    Component = "index"
	ComponentAuth     Component = "auth"
	ComponentTesting  Component = "testing"
)

// Var holds the metadata for a single registered environment variable.
// It carries no type parameter: the registry stores declarations of
// every type side by side, keyed only by name, so metadata has to stay
// untyped even though the accessor returned to callers (EnvVar[T])
// isn't.
type Var struct {
	Name         string    `json:"name"`
	DefaultValue string    `json:"default"`
	Description  string    `json:"description"`
	Type         VarType   `json:"type"`
	Component    Component `json:"component"`
	Hidden       bool      `json:"-"`
}

var (
	allVars = make(map[string]Var)
	mu      sync.Mutex
)

func register(v Var) {
	mu.Lock()
	defer mu.Unlock()
	allVars[v.Name] = v
}

// VarDescriptions returns all registered variables sorted by name.
func VarDescriptions() []Var {
	mu.Lock()
	defer mu.Unlock()

	out := make([]Var, 0, len(allVars))
	for _, v := range allVars {
		out = append(out, v)
	}
	slices.SortFunc(out, func(a, b Var) int {
		return cmp.Compare(a.Name, b.Name)
	})
	return out
}

// varKind lists the value types an EnvVar[T] can hold.
type varKind interface {
	string | bool | int | float64 | time.Duration
}

// EnvVar is a self-registering environment variable of type T. Every
// Register*Var constructor below fixes T and supplies the type's
// format/parse pair to newEnvVar, so the five value types share one
// Get implementation instead of five near-identical copies.
type EnvVar[T varKind] struct {
	meta         Var
	defaultValue T
	parse        func(string) (T, bool)
}

// newEnvVar registers v's metadata (formatting the default with
// format) and returns the typed accessor that later calls parse to
// read the live environment.
func newEnvVar[T varKind](name string, defaultValue T, description string, component Component, typ VarType, format func(T) string, parse func(string) (T, bool)) EnvVar[T] {
	meta := Var{
		Name:         name,
		DefaultValue: format(defaultValue),
		Description:  description,
		Type:         typ,
		Component:    component,
	}
	register(meta)
	return EnvVar[T]{meta: meta, defaultValue: defaultValue, parse: parse}
}

// Get returns the current value of the environment variable, or the
// default if it's unset or fails to parse as T.
func (e EnvVar[T]) Get() T {
	val, ok := os.LookupEnv(e.meta.Name)
	if !ok {
		return e.defaultValue
	}
	parsed, ok := e.parse(val)
	if !ok {
		return e.defaultValue
	}
	return parsed
}

// Name returns the environment variable name.
func (e EnvVar[T]) Name() string { return e.meta.Name }

// StringVar, BoolVar, IntVar, FloatVar and DurationVar are the
// type-specific accessor names used throughout this package's
// declarations (see vars.go); each is just EnvVar instantiated at one
// type.
type (
	StringVar   = EnvVar[string]
	BoolVar     = EnvVar[bool]
	IntVar      = EnvVar[int]
	FloatVar    = EnvVar[float64]
	DurationVar = EnvVar[time.Duration]
)

// RegisterStringVar registers a string environment variable and returns a typed accessor.
func RegisterStringVar(name, defaultValue, description string, component Component) StringVar {
	return newEnvVar(name, defaultValue, description, component, TypeString,
		func(v string) string { return v },
		func(s string) (string, bool) { return s, true },
	)
}

// RegisterBoolVar registers a boolean environment variable and returns a typed accessor.
func RegisterBoolVar(name string, defaultValue bool, description string, component Component) BoolVar {
	return newEnvVar(name, defaultValue, description, component, TypeBool,
		strconv.FormatBool,
		func(s string) (bool, bool) {
			v, err := strconv.ParseBool(s)
			return v, err == nil
		},
	)
}

// RegisterIntVar registers an integer environment variable and returns a typed accessor.
func RegisterIntVar(name string, defaultValue int, description string, component Component) IntVar {
	return newEnvVar(name, defaultValue, description, component, TypeInt,
		strconv.Itoa,
		func(s string) (int, bool) {
			v, err := strconv.Atoi(s)
			return v, err == nil
		},
	)
}

// RegisterFloatVar registers a floating-point environment variable and returns a typed accessor.
func RegisterFloatVar(name string, defaultValue float64, description string, component Component) FloatVar {
	return newEnvVar(name, defaultValue, description, component, TypeFloat,
		func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) },
		func(s string) (float64, bool) {
			v, err := strconv.ParseFloat(s, 64)
			return v, err == nil
		},
	)
}

// RegisterDurationVar registers a duration environment variable and returns a typed accessor.
func RegisterDurationVar(name string, defaultValue time.Duration, description string, component Component) DurationVar {
	return newEnvVar(name, defaultValue, description, component, TypeDuration,
		time.Duration.String,
		func(s string) (time.Duration, bool) {
			v, err := time.ParseDuration(s)
			return v, err == nil
		},
	)
}

// ---------- Formatting ----------

// ExportJSON generates a JSON array of all registered variables, optionally
// filtered by component ("" or "all" means no filter).
func ExportJSON(component string) string {
	vars := VarDescriptions()
	out := make([]Var, 0, len(vars))
	for _, v := range vars {
		if v.Hidden {
			continue
		}
		if component != "" && component != "all" && string(v.Component) != component {
			continue
		}
		out = append(out, v)
	}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "[]\n"
	}
	return string(b) + "\n"
}

// ExportMarkdown generates a markdown table of all registered variables.
func ExportMarkdown(component string) string {
	vars := VarDescriptions()
	var sb strings.Builder
	sb.WriteString("# kpath-search Environment Variables\n\n")

	grouped := make(map[Component][]Var)
	for _, v := range vars {
		if v.Hidden {
			continue
		}
		if component != "" && component != "all" && string(v.Component) != component {
			continue
		}
		grouped[v.Component] = append(grouped[v.Component], v)
	}

	components := make([]Component, 0, len(grouped))
	for c := range grouped {
		components = append(components, c)
	}
	slices.SortFunc(components, func(a, b Component) int {
		return cmp.Compare(string(a), string(b))
	})

	for _, comp := range components {
		fmt.Fprintf(&sb, "## %s\n\n", comp)
		sb.WriteString("| Variable | Type | Default | Description |\n")
		sb.WriteString("|----------|------|---------|-------------|\n")
		for _, v := range grouped[comp] {
			defaultVal := v.DefaultValue
			if defaultVal == "" {
				defaultVal = "(none)"
			}
			fmt.Fprintf(&sb, "| `%s` | %s | `%s` | %s |\n", v.Name, v.Type, defaultVal, v.Description)
		}
		sb.WriteString("\n")
	}

	return sb.String()
}
