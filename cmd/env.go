package cmd

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/pjuu/client/internal/config"
)

// secretKeys are masked when printed.
var secretKeys = map[string]bool{
	"PJUU_SITE_SESSION_VALUE": true,
}

// ConfigCheckResult holds the PJUU_ variables found in the environment
type ConfigCheckResult struct {
	Present  map[string]string // Variables that are set (secrets masked)
	Warnings []string          // Variables that match no configuration key
}

// CheckEnvConfig collects the PJUU_ variables and flags unknown ones
func CheckEnvConfig() *ConfigCheckResult {
	result := &ConfigCheckResult{
		Present:  make(map[string]string),
		Warnings: []string{},
	}

	known := make(map[string]bool)
	for key := range config.Defaults() {
		known[envName(key)] = true
	}
	known[envName("site.session_value")] = true
	known[envName("metrics.file")] = true

	for _, kv := range os.Environ() {
		name, val, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, config.EnvPrefix) {
			continue
		}
		if secretKeys[name] {
			val = maskSecret(val)
		}
		result.Present[name] = val
		if !known[name] {
			result.Warnings = append(result.Warnings, fmt.Sprintf("%s does not match any configuration key", name))
		}
	}
	sort.Strings(result.Warnings)

	return result
}

// envName is the variable that overrides a configuration key
func envName(key string) string {
	return config.EnvPrefix + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

// PrintConfigCheck prints the configuration check results
func PrintConfigCheck(w io.Writer, result *ConfigCheckResult) {
	fmt.Fprintln(w, "=== Environment ===")

	if len(result.Present) == 0 {
		fmt.Fprintln(w, "No PJUU_ variables set")
	}

	names := make([]string, 0, len(result.Present))
	for k := range result.Present {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		fmt.Fprintf(w, "   - %s = %s\n", k, result.Present[k])
	}

	for _, warning := range result.Warnings {
		fmt.Fprintf(w, "⚠ Warning: %s\n", warning)
	}

	fmt.Fprintln(w, "===================")
}

// maskSecret masks a secret value for display, showing only first and last 2 chars
func maskSecret(value string) string {
	if len(value) <= 8 {
		return "****"
	}
	return value[:2] + "****" + value[len(value)-2:]
}
