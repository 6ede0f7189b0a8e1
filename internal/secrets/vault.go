// Package secrets holds the named secrets served by the Secrets tool
// back-end, with atomic reload.
package secrets

import (
	"fmt"
	"sync"
)

const mask = "****"

// Loader returns the current secret values by name.
type Loader func() (map[string]string, error)

// Vault holds secret values in memory and supports atomic reloading.
type Vault struct {
	mu     sync.RWMutex
	values map[string]string
	loader Loader
}

// NewVault creates a Vault, calling the loader once to populate initial values.
func NewVault(loader Loader) (*Vault, error) {
	vals, err := loader()
	if err != nil {
		return nil, fmt.Errorf("initial secret load: %w", err)
	}
	return &Vault{
		values: vals,
		loader: loader,
	}, nil
}

// Lookup returns the secret for key and whether it exists.
func (v *Vault) Lookup(key string) (string, bool) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	val, ok := v.values[key]
	return val, ok
}

// Reload calls the loader and swaps in the new values atomically.
// If the loader returns an error, existing values are preserved.
func (v *Vault) Reload() error {
	newVals, err := v.loader()
	if err != nil {
		return fmt.Errorf("reload secrets: %w", err)
	}
	v.mu.Lock()
	v.values = newVals
	v.mu.Unlock()
	return nil
}

// Redacted returns a masked form of the secret: the first two characters
// followed by a mask, or only the mask for values of four characters or
// fewer. Missing keys yield "".
func (v *Vault) Redacted(key string) string {
	val, ok := v.Lookup(key)
	if !ok {
		return ""
	}
	return redact(val)
}

func redact(val string) string {
	if len(val) <= 4 {
		return mask
	}
	return val[:2] + mask
}
