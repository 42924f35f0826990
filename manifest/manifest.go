package manifest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/skosovsky/toolround"
)

var (
	ErrInvalidManifest = errors.New("manifest: invalid profile")
	ErrProfileNotFound = errors.New("manifest: profile not found")
	ErrInvalidName     = errors.New("manifest: invalid profile name")
)

// Provider names accepted in the provider field.
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderOllama    = "ollama"
)

// Providers lists the accepted provider names.
var Providers = []string{ProviderGemini, ProviderAnthropic, ProviderOpenAI, ProviderOllama}

// Profile is one parsed profile. An empty provider means ProviderGemini.
type Profile struct {
	ID           string `yaml:"id"`
	Description  string `yaml:"description"`
	Provider     string `yaml:"provider"`
	Model        string `yaml:"model"`
	SystemPrompt string `yaml:"system_prompt"`
	Context      struct {
		MaxTokens int `yaml:"max_tokens"`
	} `yaml:"context"`
	Tools []toolround.ToolSpec `yaml:"tools"`

	// Environment is set by registries to the env the profile was requested for.
	Environment string `yaml:"-"`
}

// ProfileRegistry returns profiles by name and environment.
type ProfileRegistry interface {
	GetProfile(ctx context.Context, name, env string) (*Profile, error)
}

// ParseBytes parses and validates a YAML profile.
func ParseBytes(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidManifest, err)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	if p.Provider == "" {
		p.Provider = ProviderGemini
	}
	return &p, nil
}

// ParseFile reads and parses a profile file.
func ParseFile(path string) (*Profile, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- path is validated by caller
	if err != nil {
		return nil, fmt.Errorf("manifest: read file: %w", err)
	}
	return ParseBytes(data)
}

// ParseFS reads and parses a profile from fs.FS (e.g. embed.FS).
func ParseFS(fsys fs.FS, name string) (*Profile, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("manifest: read fs: %w", err)
	}
	return ParseBytes(data)
}

func (p *Profile) validate() error {
	if p.ID == "" {
		return fmt.Errorf("%w: missing id", ErrInvalidManifest)
	}
	if p.Provider != "" && !slices.Contains(Providers, p.Provider) {
		return fmt.Errorf("%w: unknown provider %q", ErrInvalidManifest, p.Provider)
	}
	if p.Context.MaxTokens < 0 {
		return fmt.Errorf("%w: negative context.max_tokens", ErrInvalidManifest)
	}
	seen := make(map[string]bool, len(p.Tools))
	for i, t := range p.Tools {
		if t.Name == "" {
			return fmt.Errorf("%w: tool %d: missing name", ErrInvalidManifest, i)
		}
		if seen[t.Name] {
			return fmt.Errorf("%w: duplicate tool %q", ErrInvalidManifest, t.Name)
		}
		seen[t.Name] = true
	}
	return nil
}

// Options returns the orchestrator options the profile sets. Empty fields add nothing.
func (p *Profile) Options() []toolround.Option {
	var opts []toolround.Option
	if p.Model != "" {
		opts = append(opts, toolround.WithModel(p.Model))
	}
	if p.SystemPrompt != "" {
		opts = append(opts, toolround.WithSystemPrompt(p.SystemPrompt))
	}
	if p.Context.MaxTokens > 0 {
		opts = append(opts, toolround.WithContextTokenLimit(p.Context.MaxTokens))
	}
	return opts
}

// Clone returns a deep copy; registries hand out clones so callers cannot mutate the cache.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	c := *p
	if p.Tools != nil {
		c.Tools = make([]toolround.ToolSpec, len(p.Tools))
		for i, t := range p.Tools {
			t.Parameters, _ = cloneValue(t.Parameters).(map[string]any)
			c.Tools[i] = t
		}
	}
	return &c
}

func cloneValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		if x == nil {
			return x
		}
		m := make(map[string]any, len(x))
		for k, e := range x {
			m[k] = cloneValue(e)
		}
		return m
	case []any:
		s := make([]any, len(x))
		for i, e := range x {
			s[i] = cloneValue(e)
		}
		return s
	default:
		return v
	}
}

// ValidateName checks a profile name and env before they are used in file paths or cache keys.
func ValidateName(name, env string) error {
	if name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidName)
	}
	for _, s := range []string{name, env} {
		if strings.ContainsAny(s, `/\:`) || strings.Contains(s, "..") {
			return fmt.Errorf("%w: %q", ErrInvalidName, s)
		}
	}
	return nil
}
