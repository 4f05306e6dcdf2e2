package envar

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/taskcalendar/calendar-api/internal"
)

// Load reads the env filename and loads it into ENV for this process.
func Load(filename string) error {
	if filename == "" {
		return nil
	}

	if err := godotenv.Load(filename); err != nil {
		return internal.WrapErrorf(err, internal.ErrorCodeUnknown, "loading env var file")
	}

	return nil
}

// Provider provides access to secret values stored outside the environment.
type Provider interface {
	Get(key string) (string, error)
}

// Configuration is the decoupling layer between the environment and the rest
// of the codebase. Values are read from ENV; when a `<KEY>_SECURE` variable
// exists its value is used as the lookup key against the secrets provider.
type Configuration struct {
	provider Provider
}

// New instantiates a new configuration.
func New(provider Provider) *Configuration {
	return &Configuration{
		provider: provider,
	}
}

// Get returns the value for the requested key.
func (c *Configuration) Get(key string) (string, error) {
	res := os.Getenv(key)

	valSecret := os.Getenv(fmt.Sprintf("%s_SECURE", key))
	if valSecret != "" {
		valSecretRes, err := c.provider.Get(valSecret)
		if err != nil {
			return "", internal.WrapErrorf(err, internal.ErrorCodeUnknown, "provider.Get")
		}

		res = valSecretRes
	}

	return res, nil
}
