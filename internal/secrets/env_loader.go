package secrets

import (
	"os"
	"strings"
)

// DefaultEnvPrefix marks environment variables exposed as named secrets.
const DefaultEnvPrefix = "TASKGATE_SECRET_"

// PrefixEnvLoader returns a Loader that exposes every non-empty environment
// variable starting with prefix. The secret name is the lower-cased rest of
// the variable name, so TASKGATE_SECRET_DB_PASSWORD becomes "db_password".
func PrefixEnvLoader(prefix string) Loader {
	return func() (map[string]string, error) {
		vals := make(map[string]string)
		for _, kv := range os.Environ() {
			k, v, ok := strings.Cut(kv, "=")
			if !ok || v == "" || !strings.HasPrefix(k, prefix) {
				continue
			}
			name := strings.ToLower(strings.TrimPrefix(k, prefix))
			if name != "" {
				vals[name] = v
			}
		}
		return vals, nil
	}
}
