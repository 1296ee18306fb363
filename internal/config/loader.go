package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable drivedrain reads.
const EnvPrefix = "DRIVEDRAIN"

// configName is the base name searched for when no file is given.
const configName = "drivedrain"

// EnvSpec maps one environment variable to a config key path.
type EnvSpec struct {
	Name string
	Path []string
}

// Key returns the dotted viper key for the spec.
func (s EnvSpec) Key() string {
	return strings.Join(s.Path, ".")
}

// Options controls where configuration is read from.
type Options struct {
	// File is an explicit config file. When empty, drivedrain.{yaml,json,toml}
	// is searched for in SearchPaths and a missing file is not an error.
	File string

	// SearchPaths overrides the default search locations.
	SearchPaths []string
}

// LoadWithOptions reads configuration from defaults, a config file, the
// environment and overrides. Later sources win: overrides > env > file >
// defaults.
func LoadWithOptions(ctx context.Context, opts Options, overrides ...map[string]any) (*Config, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	if err := readConfigFile(v, opts); err != nil {
		return nil, err
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, spec := range getEnvSpecs() {
		// An explicit binding replaces the automatic name, so bind both.
		if err := v.BindEnv(spec.Key(), autoEnvName(spec.Path), spec.Name); err != nil {
			return nil, fmt.Errorf("bind %s: %w", spec.Name, err)
		}
	}

	for _, o := range overrides {
		for key, value := range flatten("", o) {
			v.Set(key, value)
		}
	}

	cfg := &Config{}
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(cfg, hook); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Match.Includes = trimEmpty(cfg.Match.Includes)
	cfg.Match.Excludes = trimEmpty(cfg.Match.Excludes)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DefaultSearchPaths returns the directories searched for drivedrain.yaml.
func DefaultSearchPaths() []string {
	paths := []string{"."}
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, configName))
	}
	return paths
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("credentials.file", "")
	v.SetDefault("credentials.subject", "")

	v.SetDefault("drive.folder_id", "")
	v.SetDefault("drive.page_size", 100)
	v.SetDefault("drive.rate_limit", 0.0)
	v.SetDefault("drive.shared_drives", false)

	v.SetDefault("output.dir", "")
	v.SetDefault("output.records", "")

	v.SetDefault("export.mapping_file", "")
	v.SetDefault("export.mapping", []any{})

	v.SetDefault("match.includes", []string{})
	v.SetDefault("match.excludes", []string{})
	v.SetDefault("match.exclude_hidden", false)

	v.SetDefault("run.timeout", "0s")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// getEnvSpecs lists short aliases in addition to the automatic
// DRIVEDRAIN_<SECTION>_<KEY> names.
func getEnvSpecs() []EnvSpec {
	specs := []EnvSpec{
		{Name: EnvPrefix + "_CREDENTIALS", Path: []string{"credentials", "file"}},
		{Name: EnvPrefix + "_SUBJECT", Path: []string{"credentials", "subject"}},
		{Name: EnvPrefix + "_FOLDER", Path: []string{"drive", "folder_id"}},
		{Name: EnvPrefix + "_OUT", Path: []string{"output", "dir"}},
		{Name: EnvPrefix + "_LOG_LEVEL", Path: []string{"logging", "level"}},
		{Name: EnvPrefix + "_LOG_FORMAT", Path: []string{"logging", "format"}},
		{Name: EnvPrefix + "_TIMEOUT", Path: []string{"run", "timeout"}},
	}
	return specs
}

func autoEnvName(path []string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.Join(path, "_"))
}

func readConfigFile(v *viper.Viper, opts Options) error {
	if opts.File != "" {
		v.SetConfigFile(opts.File)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config file %s: %w", opts.File, err)
		}
		return nil
	}

	paths := opts.SearchPaths
	if paths == nil {
		paths = DefaultSearchPaths()
	}
	v.SetConfigName(configName)
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	return nil
}

// flatten turns nested override maps into dotted viper keys.
func flatten(prefix string, m map[string]any) map[string]any {
	out := make(map[string]any)
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if nested, ok := m[k].(map[string]any); ok {
			for nk, nv := range flatten(key, nested) {
				out[nk] = nv
			}
			continue
		}
		out[key] = m[k]
	}
	return out
}

func trimEmpty(in []string) []string {
	out := in[:0]
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
