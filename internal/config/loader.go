package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix prefixes dbpilot environment variables. A double underscore
// separates nesting levels: DBPILOT_RELATIONAL__HOST sets relational.host.
const EnvPrefix = "DBPILOT_"

// legacyEnv maps the environment variables older deployments set to config
// keys. They rank below DBPILOT_ variables.
var legacyEnv = map[string]string{
	"POSTGRES_HOST":     "relational.host",
	"POSTGRES_PORT":     "relational.port",
	"POSTGRES_DB":       "relational.database",
	"POSTGRES_USER":     "relational.user",
	"POSTGRES_PASSWORD": "relational.password",
	"MONGO_URI":         "document.uri",
	"MONGO_DB":          "document.database",
}

// flagKeys maps command-line flag names to config keys. Flags not listed
// here do not feed configuration.
var flagKeys = map[string]string{
	"log-level":    "log_level",
	"output":       "output",
	"db-type":      "relational.type",
	"db-path":      "relational.path",
	"db-schema":    "relational.schema",
	"mongo-uri":    "document.uri",
	"mongo-db":     "document.database",
	"history":      "history.enabled",
	"history-path": "history.path",
	"addr":         "server.addr",
}

// Load loads configuration. Precedence (highest to lowest):
// flags > DBPILOT_ env vars > legacy env vars > config file > defaults.
// cfgFile names an explicit file; otherwise dbpilot.yaml or dbpilot.yml in
// the working directory is used when present. flags may be nil.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	// 1. Defaults
	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Config file
	fileUsed := findConfigFile(cfgFile)
	if fileUsed != "" {
		if err := k.Load(file.Provider(fileUsed), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", fileUsed, err)
		}
	}

	// 3. Legacy environment variables
	if legacy := legacyValues(os.LookupEnv); len(legacy) > 0 {
		if err := k.Load(confmap.Provider(legacy, "."), nil); err != nil {
			return nil, fmt.Errorf("failed to load env vars: %w", err)
		}
	}

	// 4. DBPILOT_ environment variables
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load env vars: %w", err)
	}

	// 5. Flags that were explicitly set
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	cfg.FileUsed = fileUsed

	applyDefaults(&cfg)
	expandSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// findConfigFile returns the config file to use.
// Priority: explicit path > dbpilot.yaml > dbpilot.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{ConfigFileName, ConfigFileNameAlt} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// envKey transforms DBPILOT_RELATIONAL__HOST into relational.host.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func legacyValues(lookup func(string) (string, bool)) map[string]any {
	out := map[string]any{}
	for name, key := range legacyEnv {
		if v, ok := lookup(name); ok && v != "" {
			out[key] = v
		}
	}
	return out
}

var envRef = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars expands ${VAR} patterns with environment variable values.
// Unset variables are left as written.
func expandEnvVars(s string) string {
	return envRef.ReplaceAllStringFunc(s, func(match string) string {
		if val := os.Getenv(match[2 : len(match)-1]); val != "" {
			return val
		}
		return match
	})
}

// expandSecrets expands environment references in connection settings.
func expandSecrets(c *Config) {
	r := &c.Relational
	r.Host = expandEnvVars(r.Host)
	r.User = expandEnvVars(r.User)
	r.Password = expandEnvVars(r.Password)
	r.Database = expandEnvVars(r.Database)
	r.Path = expandEnvVars(r.Path)
	c.Document.URI = expandEnvVars(c.Document.URI)
}
