package secrets

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// maxEnvKeys bounds the numbered environment lookup.
const maxEnvKeys = 64

// Pool describes an ordered set of credentials gathered from files, inline
// values and numbered environment variables (PREFIX1, PREFIX2, ...).
type Pool struct {
	Name      string
	Values    []string
	Files     []string
	EnvPrefix string
}

// LoadPool resolves every source in order: files, inline values, then the
// environment. Duplicates are dropped while keeping the first position.
func LoadPool(p Pool) ([]string, error) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = "credentials"
	}

	var keys []string
	seen := make(map[string]struct{})
	add := func(key string) {
		if _, ok := seen[key]; ok {
			return
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}

	for i, file := range p.Files {
		key, err := Load(Source{Name: fmt.Sprintf("%s #%d", name, i+1), File: file})
		if err != nil {
			return nil, err
		}
		add(key)
	}

	for _, value := range p.Values {
		if value = strings.TrimSpace(value); value != "" {
			add(value)
		}
	}

	if prefix := strings.TrimSpace(p.EnvPrefix); prefix != "" {
		for i := 1; i <= maxEnvKeys; i++ {
			value, ok := os.LookupEnv(prefix + strconv.Itoa(i))
			if !ok {
				break
			}
			if value = strings.TrimSpace(value); value != "" {
				add(value)
			}
		}
	}

	if len(keys) == 0 {
		return nil, fmt.Errorf("%s is not configured", name)
	}

	return keys, nil
}
