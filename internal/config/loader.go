package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix of every setting.
const envPrefix = "REAGENT"

// newViper builds a Viper instance with YAML file type, REAGENT_ env prefix
// and a key replacer mapping "." to "_" so that "catalog.source" resolves to
// REAGENT_CATALOG_SOURCE.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	bindEnvKeys(v, reflect.TypeOf(Config{}), "")
	return v
}

var durationType = reflect.TypeOf(time.Duration(0))

// bindEnvKeys registers every mapstructure key of t so that environment
// variables apply even when the key is absent from the config file.
func bindEnvKeys(v *viper.Viper, t reflect.Type, prefix string) {
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" || tag == "-" {
			continue
		}
		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}
		if f.Type.Kind() == reflect.Struct && f.Type != durationType {
			bindEnvKeys(v, f.Type, key)
			continue
		}
		_ = v.BindEnv(key)
	}
}

// Load reads the YAML file at configPath, merges REAGENT_* environment
// overrides, applies defaults and validates the result.
func Load(configPath string) (*Config, error) {
	return LoadWith(configPath, nil)
}

// LoadWith is Load with an override hook applied after unmarshalling and
// before defaults and validation. An empty configPath reads the environment
// only. Command-line flags use the hook.
func LoadWith(configPath string, override func(*Config)) (*Config, error) {
	v := newViper()
	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
		}
	}
	return finalize(v, override)
}

// LoadFromEnv builds a Config from REAGENT_* environment variables only.
//
//	REAGENT_<SECTION>_<FIELD>   e.g.  REAGENT_CATALOG_SOURCE, REAGENT_REDIS_ADDR
func LoadFromEnv() (*Config, error) {
	return LoadWith("", nil)
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	return finalize(v, nil)
}

func finalize(v *viper.Viper, override func(*Config)) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}
	if override != nil {
		override(cfg)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}

	return cfg, nil
}

// Watch monitors configPath and invokes onChange with the re-parsed Config on
// every modification. Invalid edits are reported through onError (when not
// nil) and do not reach onChange. Watch does not block.
func Watch(configPath string, onChange func(*Config), onError func(error)) {
	v := newViper()
	v.SetConfigFile(configPath)
	_ = v.ReadInConfig()

	v.OnConfigChange(func(_ fsnotify.Event) {
		cfg, err := unmarshalAndFinalize(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		onChange(cfg)
	})
	v.WatchConfig()
}

// MustLoad is Load that panics on error. Intended for main().
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("config: MustLoad failed: %v", err))
	}
	return cfg
}
