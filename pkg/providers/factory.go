package providers

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/chaharhimanshu/system-design-interviewer-coach/pkg/config"
)

const (
	ProviderOpenRouter = "openrouter"
	ProviderOpenAI     = "openai"
)

// Backend is one selectable LLM service.
type Backend struct {
	Build    func(cfg *config.Config) (LLMProvider, error)
	Validate func(cfg *config.Config) error
	// AuthMode reports how requests would authenticate; "" means they can't.
	AuthMode func(cfg *config.Config) string
}

// Status describes whether the configured backend can coach online.
type Status struct {
	Backend    string
	Model      string
	Configured bool
	AuthMode   string
	// Problem explains why Configured is false.
	Problem string
}

var (
	backendsMu  sync.RWMutex
	backends    = map[string]Backend{}
	registerErr error
)

// Register makes a backend selectable through agents.defaults.provider.
// A bad registration surfaces on the next lookup instead of panicking in init.
func Register(name string, b Backend) {
	name = NormalizeProviderName(name)
	backendsMu.Lock()
	defer backendsMu.Unlock()
	if b.Build == nil {
		registerErr = errors.Join(registerErr, fmt.Errorf("providers: backend %q has no build func", name))
		return
	}
	backends[name] = b
}

func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func NormalizeProviderName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ProviderOpenRouter
	}
	return name
}

func ActiveProviderName(cfg *config.Config) string {
	if cfg == nil {
		return ProviderOpenRouter
	}
	return NormalizeProviderName(cfg.Agents.Defaults.Provider)
}

func lookup(cfg *config.Config) (Backend, string, error) {
	name := ActiveProviderName(cfg)

	backendsMu.RLock()
	defer backendsMu.RUnlock()
	if registerErr != nil {
		return Backend{}, name, fmt.Errorf("provider registration failed: %w", registerErr)
	}
	b, ok := backends[name]
	if !ok {
		known := make([]string, 0, len(backends))
		for k := range backends {
			known = append(known, k)
		}
		sort.Strings(known)
		return Backend{}, name, fmt.Errorf("unsupported provider %q: supported providers are %s", name, strings.Join(known, ", "))
	}
	return b, name, nil
}

func ValidateProviderConfig(cfg *config.Config) error {
	b, _, err := lookup(cfg)
	if err != nil {
		return err
	}
	if b.Validate == nil {
		return nil
	}
	return b.Validate(cfg)
}

// CheckCredentials inspects the active backend without making a request.
func CheckCredentials(cfg *config.Config) (Status, error) {
	b, name, err := lookup(cfg)
	if err != nil {
		return Status{Backend: name, Problem: err.Error()}, err
	}
	st := Status{Backend: name}
	if cfg != nil {
		st.Model = strings.TrimSpace(cfg.Agents.Defaults.Model)
	}
	if b.Validate != nil {
		if err := b.Validate(cfg); err != nil {
			st.Problem = err.Error()
			return st, nil
		}
	}
	st.Configured = true
	if b.AuthMode != nil {
		st.AuthMode = b.AuthMode(cfg)
	}
	return st, nil
}

func CreateProvider(cfg *config.Config) (LLMProvider, error) {
	b, _, err := lookup(cfg)
	if err != nil {
		return nil, err
	}
	return b.Build(cfg)
}
