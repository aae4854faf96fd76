package cli

import (
	"fmt"
	"strconv"
	"strings"
)

// ParamType is a small enum for parameter types used in metadata.
type ParamType string

const (
	ParamTypeFloat ParamType = "float"
	ParamTypeBool  ParamType = "bool"
	ParamTypePath  ParamType = "path"
)

// ValidationRule is a machine-friendly representation of the constraints
// that a UI or client can use to validate input before invoking a command.
type ValidationRule struct {
	Type     ParamType `json:"type"`
	Required bool      `json:"required"`
	Min      *float64  `json:"min,omitempty"`
	Max      *float64  `json:"max,omitempty"`
	Unit     string    `json:"unit,omitempty"`
	Example  string    `json:"example,omitempty"`
	Hint     string    `json:"hint,omitempty"`
}

// ArgSpec describes a single positional argument.
type ArgSpec struct {
	Name        string
	Type        ParamType
	Required    bool
	Min, Max    *float64
	Unit        string
	Example     string
	Description string
}

// CommandSpec defines a single command and its positional arguments.
type CommandSpec struct {
	Name        string
	Args        []ArgSpec
	Usage       string
	Description string
}

func bound(v float64) *float64 { return &v }

// Commands lists the commands that take positional arguments. The cobra
// commands and the interactive shell both validate through it.
var Commands = []CommandSpec{
	{
		Name: "tag",
		Args: []ArgSpec{
			{Name: "image", Type: ParamTypePath, Required: true, Example: "photo.jpg", Description: "JPEG to geotag"},
			{Name: "lat", Type: ParamTypeFloat, Required: true, Min: bound(-90), Max: bound(90), Unit: "deg", Example: "41.0428465", Description: "latitude, south negative"},
			{Name: "lon", Type: ParamTypeFloat, Required: true, Min: bound(-180), Max: bound(180), Unit: "deg", Example: "29.0075283", Description: "longitude, west negative"},
		},
		Usage:       "tag <image> <lat> <lon>",
		Description: "write a GPS position into the image's EXIF segment",
	},
	{
		Name:        "inspect",
		Args:        []ArgSpec{{Name: "image", Type: ParamTypePath, Required: true, Example: "photo.jpg", Description: "JPEG to read"}},
		Usage:       "inspect <image>",
		Description: "show EXIF metadata and GPS position",
	},
	{
		Name: "strip",
		Args: []ArgSpec{
			{Name: "image", Type: ParamTypePath, Required: true, Example: "photo.jpg", Description: "JPEG to clean"},
			{Name: "all", Type: ParamTypeBool, Example: "no", Description: "drop the whole EXIF segment instead of only GPS"},
		},
		Usage:       "strip <image> [all]",
		Description: "remove the GPS directory",
	},
	{
		Name:        "locate",
		Args:        []ArgSpec{{Name: "image", Type: ParamTypePath, Required: true, Example: "photo.jpg", Description: "JPEG to read"}},
		Usage:       "locate <image>",
		Description: "print the stored position as decimal degrees",
	},
}

// parseBoolLikeToString accepts common truthy/falsy forms and returns "true"/"false" string.
func parseBoolLikeToString(s string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "1", "t", "true", "y", "yes", "on":
		return "true", nil
	case "0", "f", "false", "n", "no", "off":
		return "false", nil
	default:
		return "", fmt.Errorf("invalid boolean: %q", s)
	}
}

// GenerateTooltip produces a tooltip string from a CommandSpec.
func GenerateTooltip(c CommandSpec) string {
	var sb strings.Builder
	if c.Description != "" {
		sb.WriteString(c.Description)
	} else {
		sb.WriteString("No description")
	}
	if len(c.Args) == 0 {
		sb.WriteString(", no parameters")
		return sb.String()
	}
	sb.WriteString(". Parameters:\n")
	for _, a := range c.Args {
		req := "optional"
		if a.Required {
			req = "required"
		}
		fmt.Fprintf(&sb, "- %s (%s, %s)", a.Name, a.Type, req)
		if a.Description != "" {
			sb.WriteString(": " + a.Description)
		}
		if a.Min != nil && a.Max != nil {
			fmt.Fprintf(&sb, " [%v..%v]", *a.Min, *a.Max)
		}
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String())
}

// GenerateValidationRules creates ValidationRule entries from a CommandSpec.
func GenerateValidationRules(c CommandSpec) map[string]ValidationRule {
	rules := make(map[string]ValidationRule, len(c.Args))
	for _, a := range c.Args {
		rules[a.Name] = ValidationRule{
			Type:     a.Type,
			Required: a.Required,
			Min:      a.Min,
			Max:      a.Max,
			Unit:     a.Unit,
			Example:  a.Example,
			Hint:     a.Description,
		}
	}
	return rules
}

// MetaStore indexes command metadata by name.
type MetaStore struct {
	Commands []CommandSpec
	byName   map[string]CommandSpec
}

// NewMetaStore creates a MetaStore from a CommandSpec list.
func NewMetaStore(cmds []CommandSpec) *MetaStore {
	m := &MetaStore{Commands: cmds, byName: make(map[string]CommandSpec, len(cmds))}
	for _, c := range cmds {
		m.byName[c.Name] = c
	}
	return m
}

// Lookup returns the spec for name.
func (m *MetaStore) Lookup(name string) (CommandSpec, bool) {
	c, ok := m.byName[name]
	return c, ok
}

// GetCommandHelp returns both tooltip and validation rules for a command.
func (m *MetaStore) GetCommandHelp(name string) (string, map[string]ValidationRule, error) {
	c, ok := m.byName[name]
	if !ok {
		return "", nil, fmt.Errorf("unknown command: %s", name)
	}
	return GenerateTooltip(c), GenerateValidationRules(c), nil
}

// NormalizeArgs checks args against the command's metadata and returns them
// in canonical form. Missing optional arguments come back as "".
func NormalizeArgs(store *MetaStore, cmdName string, args []string) ([]string, error) {
	if store == nil {
		return nil, fmt.Errorf("metadata store is nil")
	}
	c, ok := store.byName[cmdName]
	if !ok {
		return nil, fmt.Errorf("unknown command: %s", cmdName)
	}
	if len(args) > len(c.Args) {
		return nil, fmt.Errorf("%s: expected at most %d arguments, got %d", cmdName, len(c.Args), len(args))
	}
	rules := GenerateValidationRules(c)
	out := make([]string, len(c.Args))
	for i, a := range c.Args {
		var raw string
		if i < len(args) {
			raw = strings.TrimSpace(args[i])
		}
		if raw == "" {
			if a.Required {
				return nil, fmt.Errorf("missing required parameter: %s", a.Name)
			}
			continue
		}
		vr := rules[a.Name]
		switch vr.Type {
		case ParamTypeFloat:
			f, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return nil, fmt.Errorf("parameter %s: expected float, got %q", a.Name, raw)
			}
			if vr.Min != nil && f < *vr.Min {
				return nil, fmt.Errorf("parameter %s: %v < min %v", a.Name, f, *vr.Min)
			}
			if vr.Max != nil && f > *vr.Max {
				return nil, fmt.Errorf("parameter %s: %v > max %v", a.Name, f, *vr.Max)
			}
			out[i] = strconv.FormatFloat(f, 'f', -1, 64)
		case ParamTypeBool:
			bs, err := parseBoolLikeToString(raw)
			if err != nil {
				return nil, fmt.Errorf("parameter %s: %w", a.Name, err)
			}
			out[i] = bs
		case ParamTypePath:
			out[i] = raw
		default:
			return nil, fmt.Errorf("parameter %s: unsupported param type %q", a.Name, vr.Type)
		}
	}
	return out, nil
}
