package secrets_test

import (
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/Strob0t/taskgate/internal/secrets"
)

// sequenceLoader returns each result in turn, repeating the last one.
func sequenceLoader(results ...map[string]string) (secrets.Loader, *int) {
	calls := 0
	return func() (map[string]string, error) {
		i := calls
		calls++
		if i >= len(results) {
			i = len(results) - 1
		}
		if results[i] == nil {
			return nil, errors.New("secret source unavailable")
		}
		return results[i], nil
	}, &calls
}

func getSecret(v *secrets.Vault, key string) string {
	val, _ := v.Lookup(key)
	return val
}

func TestVault_LoadAndLookup(t *testing.T) {
	load, _ := sequenceLoader(map[string]string{"api_key": "sk-live-1234", "db_password": "hunter22"})
	v, err := secrets.NewVault(load)
	if err != nil {
		t.Fatalf("NewVault failed: %v", err)
	}

	if got := getSecret(v, "api_key"); got != "sk-live-1234" {
		t.Errorf("api_key = %q", got)
	}
	if got, ok := v.Lookup("db_password"); !ok || got != "hunter22" {
		t.Errorf("db_password = %q, %v", got, ok)
	}
	if got, ok := v.Lookup("signing_key"); ok || got != "" {
		t.Errorf("missing key = %q, %v", got, ok)
	}
}

func TestNewVault_LoaderError(t *testing.T) {
	load, _ := sequenceLoader(nil)
	if _, err := secrets.NewVault(load); err == nil {
		t.Fatal("expected error from failing loader")
	}
}

func TestVault_Reload(t *testing.T) {
	tests := []struct {
		name    string
		second  map[string]string
		wantErr bool
		want    string
	}{
		{"rotated value", map[string]string{"api_key": "rotated"}, false, "rotated"},
		{"failed reload keeps values", nil, true, "original"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			load, calls := sequenceLoader(map[string]string{"api_key": "original"}, tt.second)
			v, err := secrets.NewVault(load)
			if err != nil {
				t.Fatal(err)
			}
			if err := v.Reload(); (err != nil) != tt.wantErr {
				t.Fatalf("Reload err = %v, wantErr %v", err, tt.wantErr)
			}
			if got := getSecret(v, "api_key"); got != tt.want {
				t.Errorf("api_key = %q, want %q", got, tt.want)
			}
			if *calls != 2 {
				t.Errorf("loader called %d times, want 2", *calls)
			}
		})
	}
}

func TestVault_ConcurrentReloadAndRedact(t *testing.T) {
	v, err := secrets.NewVault(func() (map[string]string, error) {
		return map[string]string{"api_key": "sk-live-1234"}, nil
	})
	if err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if got := v.Redacted("api_key"); got != "sk****" {
				t.Errorf("Redacted = %q", got)
			}
		}()
		go func() {
			defer wg.Done()
			_ = v.Reload()
		}()
	}
	wg.Wait()
}

func TestVault_Redacted(t *testing.T) {
	load, _ := sequenceLoader(map[string]string{
		"api_key": "sk-live-1234",
		"pin":     "4321",
		"empty":   "",
	})
	v, _ := secrets.NewVault(load)

	tests := []struct {
		name string
		want string
	}{
		{"api_key", "sk****"},
		{"pin", "****"},
		{"empty", "****"},
		{"signing_key", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := v.Redacted(tt.name)
			if got != tt.want {
				t.Errorf("Redacted(%q) = %q, want %q", tt.name, got, tt.want)
			}
			if len(got) > 2 && strings.Contains("sk-live-1234", got[2:]) {
				t.Errorf("Redacted(%q) leaks the value: %q", tt.name, got)
			}
		})
	}
}

func TestPrefixEnvLoader(t *testing.T) {
	t.Setenv("TASKGATE_SECRET_DB_PASSWORD", "hunter22")
	t.Setenv("TASKGATE_SECRET_API_KEY", "sk-live-1234")
	t.Setenv("TASKGATE_SECRET_EMPTY", "")
	t.Setenv("TASKGATE_SECRET_", "nameless")
	t.Setenv("TASKGATE_PORT", "8080")

	vals, err := secrets.PrefixEnvLoader(secrets.DefaultEnvPrefix)()
	if err != nil {
		t.Fatalf("PrefixEnvLoader: %v", err)
	}
	want := map[string]string{"db_password": "hunter22", "api_key": "sk-live-1234"}
	for k, w := range want {
		if vals[k] != w {
			t.Errorf("%s = %q, want %q", k, vals[k], w)
		}
	}
	for k := range vals {
		if _, ok := want[k]; !ok {
			t.Errorf("unexpected secret %q", k)
		}
	}
}
