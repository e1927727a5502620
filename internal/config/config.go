// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apex/log"
	"gopkg.in/yaml.v3"
)

// FileName is the config file looked up in the standard locations.
const FileName = "catinfo.yaml"

type Type struct {
	Source    string
	Namespace string
	Data      map[string]interface{}
}

var Config Type

func init() {
	_, _ = Load()
}

// Load reads the config file and makes it current. The optional argument is
// the namespace (the subcommand name) consulted before top-level keys. With
// no file the current config is empty and the lookup error is returned.
func Load(namespace ...string) (Type, error) {
	var ns string
	if len(namespace) > 0 {
		ns = namespace[0]
	}

	path, err := getConfigPath()
	if err != nil {
		Config = Type{Namespace: ns}
		return Config, err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return Type{}, fmt.Errorf("failed to read config file: %w", err)
	}

	loaded := Type{Source: path, Namespace: ns}
	if err := yaml.Unmarshal(content, &loaded.Data); err != nil {
		return Type{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	Config = loaded
	return Config, nil
}

// get resolves a dotted key, trying the namespaced key before the top-level
// one.
func (cfg *Type) get(kspec string) (any, error) {
	keys := []string{kspec}
	if cfg.Namespace != "" {
		keys = []string{cfg.Namespace + "." + kspec, kspec}
	}

	for _, key := range keys {
		if v, ok := walk(cfg.Data, strings.Split(key, ".")); ok {
			return v, nil
		}
	}
	return nil, fmt.Errorf("no valid path found among: %v", keys)
}

func walk(node any, path []string) (any, bool) {
	for _, segment := range path {
		m, ok := node.(map[string]interface{})
		if !ok {
			return nil, false
		}
		if node, ok = m[segment]; !ok {
			return nil, false
		}
	}
	return node, true
}

func lookup(key string) (any, error) {
	if len(Config.Data) == 0 && Config.Source == "" {
		_, _ = Load(Config.Namespace)
	}
	return Config.get(key)
}

// typed looks key up and converts it. A missing key yields the default when
// one is given; a value of the wrong type is always an error.
func typed[T any](key string, defaults []T, convert func(any) (T, error)) (T, error) {
	val, err := lookup(key)
	if err != nil {
		if len(defaults) > 0 {
			return defaults[0], nil
		}
		var zero T
		return zero, err
	}
	return convert(val)
}

func GetString(key string, defaultValue ...string) (string, error) {
	return typed(key, defaultValue, func(v any) (string, error) {
		if s, ok := v.(string); ok {
			return s, nil
		}
		return "", errors.New("value is not a string")
	})
}

// GetInt accepts any YAML number; floats are truncated.
func GetInt(key string, defaultValue ...int) (int, error) {
	return typed(key, defaultValue, func(v any) (int, error) {
		switch n := v.(type) {
		case int:
			return n, nil
		case int64:
			return int(n), nil
		case float64:
			return int(n), nil
		}
		return 0, errors.New("value is not an int")
	})
}

func GetBool(key string, defaultValue ...bool) (bool, error) {
	return typed(key, defaultValue, func(v any) (bool, error) {
		if b, ok := v.(bool); ok {
			return b, nil
		}
		return false, errors.New("value is not a bool")
	})
}

// GetDuration reads a Go duration string ("36h", "90m"). A bare number is
// taken as seconds.
func GetDuration(key string, defaultValue ...time.Duration) (time.Duration, error) {
	return typed(key, defaultValue, func(v any) (time.Duration, error) {
		switch d := v.(type) {
		case string:
			parsed, err := time.ParseDuration(d)
			if err != nil {
				return 0, fmt.Errorf("value is not a duration: %w", err)
			}
			return parsed, nil
		case int:
			return time.Duration(d) * time.Second, nil
		case float64:
			return time.Duration(d * float64(time.Second)), nil
		}
		return 0, errors.New("value is not a duration")
	})
}

// GetStringSlice reads a list of strings. A single string is returned as a
// one element slice.
func GetStringSlice(key string) ([]string, error) {
	return typed(key, nil, func(v any) ([]string, error) {
		switch list := v.(type) {
		case string:
			return []string{list}, nil
		case []interface{}:
			out := make([]string, len(list))
			for i, item := range list {
				s, ok := item.(string)
				if !ok {
					return nil, errors.New("list contains a non-string value")
				}
				out[i] = s
			}
			return out, nil
		}
		return nil, errors.New("value is not a list")
	})
}

// getConfigPath honors CATINFO_CFG, then looks for catinfo.yaml under
// XDG_CONFIG_HOME, APPDATA and HOME in that order.
func getConfigPath() (string, error) {
	if p := os.Getenv("CATINFO_CFG"); p != "" {
		fi, err := os.Stat(p)
		switch {
		case err != nil:
			return "", fmt.Errorf("config file not found: %s", p)
		case fi.IsDir():
			return "", fmt.Errorf("CATINFO_CFG points to a directory: %s", p)
		}
		return p, nil
	}

	for _, env := range []string{"XDG_CONFIG_HOME", "APPDATA", "HOME"} {
		dir := os.Getenv(env)
		if dir == "" {
			continue
		}
		file := filepath.Join(dir, FileName)
		if fi, err := os.Stat(file); err == nil && !fi.IsDir() {
			log.Debugf("using config file: %s", file)
			return file, nil
		}
	}
	return "", errors.New("no config file found in standard locations")
}
