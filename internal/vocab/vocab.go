// Package vocab holds the closed vocabulary of environment and service
// names, and the normalization applied to user-typed tokens before any
// store access.
package vocab

import (
	"fmt"
	"sort"
	"strings"
)

// Resource is one configured environment or service.
type Resource struct {
	Name    string   `yaml:"name"`
	Label   string   `yaml:"label"`
	Icon    string   `yaml:"icon"`
	Aliases []string `yaml:"aliases"`
}

// Config is the vocabulary section of the application config.
type Config struct {
	Environments []Resource `yaml:"environments"`
	Services     []Resource `yaml:"services"`
}

// Vocabulary is built once at startup and never mutated afterwards.
type Vocabulary struct {
	environments []Resource
	services     []Resource

	envNames map[string]struct{}
	svcNames map[string]struct{}

	envAliases map[string]string
	svcAliases map[string]string
}

// New validates the configured vocabulary and builds the lookup tables.
func New(cfg Config) (*Vocabulary, error) {
	if len(cfg.Environments) == 0 {
		return nil, fmt.Errorf("vocabulary requires at least one environment")
	}

	v := &Vocabulary{
		environments: cfg.Environments,
		services:     cfg.Services,
		envNames:     make(map[string]struct{}, len(cfg.Environments)),
		svcNames:     make(map[string]struct{}, len(cfg.Services)),
		envAliases:   make(map[string]string),
		svcAliases:   make(map[string]string),
	}

	if err := buildTables(cfg.Environments, v.envNames, v.envAliases, "environment"); err != nil {
		return nil, err
	}
	if err := buildTables(cfg.Services, v.svcNames, v.svcAliases, "service"); err != nil {
		return nil, err
	}

	for _, env := range cfg.Environments {
		// Resource keys join environment and service with '-', so a dash
		// in an environment name would make stored keys ambiguous.
		if strings.Contains(env.Name, "-") {
			return nil, fmt.Errorf("environment name %q must not contain '-'", env.Name)
		}
		if _, ok := v.svcNames[env.Name]; ok {
			return nil, fmt.Errorf("%q is both an environment and a service", env.Name)
		}
	}

	// Aliases resolve before table lookup, so a cross-table collision
	// would make one token mean both an environment and a service.
	for alias := range v.envAliases {
		if _, ok := v.svcNames[alias]; ok {
			return nil, fmt.Errorf("environment alias %q collides with a service name", alias)
		}
	}
	for alias := range v.svcAliases {
		if _, ok := v.envNames[alias]; ok {
			return nil, fmt.Errorf("service alias %q collides with an environment name", alias)
		}
		if _, ok := v.envAliases[alias]; ok {
			return nil, fmt.Errorf("%q is both an environment and a service alias", alias)
		}
	}

	return v, nil
}

func buildTables(resources []Resource, names map[string]struct{}, aliases map[string]string, kind string) error {
	for _, r := range resources {
		name := strings.ToLower(strings.TrimSpace(r.Name))
		if name == "" {
			return fmt.Errorf("%s with empty name", kind)
		}
		if _, ok := names[name]; ok {
			return fmt.Errorf("duplicate %s name: %s", kind, name)
		}
		names[name] = struct{}{}
	}

	for _, r := range resources {
		for _, alias := range r.Aliases {
			alias = strings.ToLower(strings.TrimSpace(alias))
			if alias == "" {
				continue
			}
			if _, ok := names[alias]; ok {
				return fmt.Errorf("%s alias %q shadows a canonical name", kind, alias)
			}
			if existing, ok := aliases[alias]; ok && existing != strings.ToLower(r.Name) {
				return fmt.Errorf("%s alias %q maps to both %s and %s", kind, alias, existing, r.Name)
			}
			aliases[alias] = strings.ToLower(strings.TrimSpace(r.Name))
		}
	}
	return nil
}

// Normalize maps raw user tokens to canonical names. Per token:
// lower-case, alias substitution, trim, drop empty, drop unknown. The
// survivors are deduplicated and returned sorted ascending; callers rely
// on that ordering for stable display and single-survivor checks.
func Normalize(tokens []string, valid map[string]struct{}, aliases map[string]string) []string {
	seen := make(map[string]struct{}, len(tokens))
	out := make([]string, 0, len(tokens))

	for _, tok := range tokens {
		tok = strings.ToLower(tok)
		if canonical, ok := aliases[tok]; ok {
			tok = canonical
		}
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if _, ok := valid[tok]; !ok {
			continue
		}
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		out = append(out, tok)
	}

	sort.Strings(out)
	return out
}

// NormalizeEnvironments normalizes tokens against the environment table.
func (v *Vocabulary) NormalizeEnvironments(tokens []string) []string {
	return Normalize(tokens, v.envNames, v.envAliases)
}

// NormalizeServices normalizes tokens against the service table.
func (v *Vocabulary) NormalizeServices(tokens []string) []string {
	return Normalize(tokens, v.svcNames, v.svcAliases)
}

// Environments returns canonical environment names in configured order.
func (v *Vocabulary) Environments() []string {
	return names(v.environments)
}

// Services returns canonical service names in configured order.
func (v *Vocabulary) Services() []string {
	return names(v.services)
}

// HasServices reports whether the deployment uses fine-grained
// per-service reservations.
func (v *Vocabulary) HasServices() bool {
	return len(v.services) > 0
}

// EnvironmentAliases returns the aliases registered for one environment.
func (v *Vocabulary) EnvironmentAliases(name string) []string {
	var out []string
	for alias, canonical := range v.envAliases {
		if canonical == name {
			out = append(out, alias)
		}
	}
	sort.Strings(out)
	return out
}

// ServiceLabel returns the display label of a service, or the name itself
// when no label is configured.
func (v *Vocabulary) ServiceLabel(name string) string {
	for _, s := range v.services {
		if s.Name == name {
			if s.Label != "" {
				return s.Label
			}
			break
		}
	}
	return name
}

// ServiceIcon returns the configured icon of a service, if any.
func (v *Vocabulary) ServiceIcon(name string) string {
	for _, s := range v.services {
		if s.Name == name {
			return s.Icon
		}
	}
	return ""
}

func names(resources []Resource) []string {
	out := make([]string, 0, len(resources))
	for _, r := range resources {
		out = append(out, strings.ToLower(strings.TrimSpace(r.Name)))
	}
	return out
}
