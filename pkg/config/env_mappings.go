package config

import (
	"reflect"
	"sync"
)

// EnvPrefix namespaces environment variables without an explicit env tag,
// e.g. STORYMAPPER_GROUPING_LINKAGE -> grouping.linkage.
const EnvPrefix = "STORYMAPPER_"

// EnvMapping ties an environment variable to a config path.
type EnvMapping struct {
	EnvVar     string
	ConfigPath string
	Sensitive  bool
}

var (
	envMappings     []EnvMapping
	envMappingsOnce sync.Once
)

var sensitiveType = reflect.TypeOf(SensitiveString(""))

// GenerateEnvMappings lists every leaf of Config that carries an env tag.
func GenerateEnvMappings() []EnvMapping {
	envMappingsOnce.Do(func() {
		walkLeaves(reflect.TypeOf(Config{}), "", func(path string, field reflect.StructField) {
			env := field.Tag.Get("env")
			if env == "" || env == "-" {
				return
			}
			envMappings = append(envMappings, EnvMapping{
				EnvVar:     env,
				ConfigPath: path,
				Sensitive:  isSensitiveField(field),
			})
		})
	})
	return envMappings
}

// GetEnvVarForConfigPath returns the environment variable for a given config path
func GetEnvVarForConfigPath(configPath string) string {
	for _, m := range GenerateEnvMappings() {
		if m.ConfigPath == configPath {
			return m.EnvVar
		}
	}
	return ""
}

// IsSensitiveConfigPath reports whether the value at configPath is a secret.
func IsSensitiveConfigPath(configPath string) bool {
	sensitive := false
	walkLeaves(reflect.TypeOf(Config{}), "", func(path string, field reflect.StructField) {
		if path == configPath {
			sensitive = isSensitiveField(field)
		}
	})
	return sensitive
}

func isSensitiveField(field reflect.StructField) bool {
	return field.Type == sensitiveType || field.Tag.Get("sensitive") == "true"
}

// walkLeaves calls fn for each koanf-tagged field that is not a nested section.
func walkLeaves(t reflect.Type, prefix string, fn func(path string, field reflect.StructField)) {
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("koanf")
		if !field.IsExported() || tag == "" || tag == "-" {
			continue
		}
		path := tag
		if prefix != "" {
			path = prefix + "." + tag
		}
		if field.Type.Kind() == reflect.Struct && field.Type.PkgPath() != "time" {
			walkLeaves(field.Type, path, fn)
			continue
		}
		fn(path, field)
	}
}
