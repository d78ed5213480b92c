package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"dario.cat/mergo"
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// DefaultOrigin is the origin reported by tables built from the defaults only.
const DefaultOrigin = "builtin"

// DefaultSource returns the built-in tables source.
func DefaultSource() (Source, error) {
	var src Source
	if err := yaml.Unmarshal(defaultsYAML, &src); err != nil {
		return Source{}, fmt.Errorf("failed to decode built-in tables: %w", err)
	}
	return src, nil
}

// Default builds the built-in tables.
func Default() (*Tables, error) {
	src, err := DefaultSource()
	if err != nil {
		return nil, err
	}
	t, err := Build(src)
	if err != nil {
		return nil, err
	}
	t.origin = DefaultOrigin
	return t, nil
}

// Load builds tables from the file at path merged over the defaults. An
// empty path yields the defaults.
func Load(path string) (*Tables, error) {
	if path == "" {
		return Default()
	}

	user, err := ReadFile(path)
	if err != nil {
		return nil, err
	}

	merged, err := Merge(user)
	if err != nil {
		return nil, err
	}

	t, err := Build(merged)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	t.origin = path
	return t, nil
}

// Merge combines a user source with the defaults. User entries come first so
// they take precedence in ordered matching, unless the user source sets
// Replace, in which case the defaults are ignored.
func Merge(user Source) (Source, error) {
	if user.Replace {
		return user, nil
	}
	defaults, err := DefaultSource()
	if err != nil {
		return Source{}, err
	}
	if err := mergo.Merge(&user, defaults, mergo.WithAppendSlice); err != nil {
		return Source{}, fmt.Errorf("failed to merge tables: %w", err)
	}
	return user, nil
}

// ReadFile decodes a tables file. The format is chosen by extension: YAML
// (.yaml, .yml), JSON (.json) or CUE (.cue).
func ReadFile(path string) (Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Source{}, fmt.Errorf("failed to read tables file: %w", err)
	}
	src, err := Decode(filepath.Ext(path), data)
	if err != nil {
		return Source{}, fmt.Errorf("%s: %w", path, err)
	}
	return src, nil
}

// Decode parses tables data in the format named by ext.
func Decode(ext string, data []byte) (Source, error) {
	var src Source
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &src); err != nil {
			return Source{}, fmt.Errorf("failed to parse YAML tables: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &src); err != nil {
			return Source{}, fmt.Errorf("failed to parse JSON tables: %w", err)
		}
	case ".cue":
		return decodeCUE(data)
	default:
		return Source{}, fmt.Errorf("unsupported tables format %q", ext)
	}
	return src, nil
}

func decodeCUE(data []byte) (Source, error) {
	ctx := cuecontext.New()
	val := ctx.CompileBytes(data)
	if err := val.Err(); err != nil {
		return Source{}, fmt.Errorf("failed to compile CUE tables: %w", err)
	}
	if err := val.Validate(cue.Concrete(true)); err != nil {
		return Source{}, fmt.Errorf("CUE tables are not concrete: %w", err)
	}

	var src Source
	if err := val.Decode(&src); err != nil {
		return Source{}, fmt.Errorf("failed to decode CUE tables: %w", err)
	}
	return src, nil
}
