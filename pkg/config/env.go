package config

import (
	"strings"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// ReadFromEnv fills cfg from environment variables. Nested fields are
// addressed with a double underscore, e.g. POSTGRES__HOST -> postgres.host.
// defaultValue, when non-nil, seeds the configuration before the
// environment is applied.
func ReadFromEnv(cfg any, defaultValue any) error {
	k := koanf.New(".")

	if defaultValue != nil {
		if err := k.Load(structs.Provider(defaultValue, "koanf"), nil); err != nil {
			return err
		}
	}

	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(s), "__", ".")
	}), nil)
	if err != nil {
		return err
	}

	return k.Unmarshal("", cfg)
}
