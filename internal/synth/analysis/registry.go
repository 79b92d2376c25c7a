package analysis

import (
	"fmt"
	"sort"
	"strings"
)

// Registry manages a collection of analysis rules with enable/disable
// controls.
type Registry struct {
	// rules maps rule names to their definitions
	rules map[string]*Rule

	// enabled tracks which rules are currently enabled
	enabled map[string]bool

	// configs holds per-rule configuration
	configs map[string]RuleConfig

	// categories maps category names to rule names
	categories map[string][]string
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		rules:      make(map[string]*Rule),
		enabled:    make(map[string]bool),
		configs:    make(map[string]RuleConfig),
		categories: make(map[string][]string),
	}
}

// Register adds rules to the registry and validates them.
// Returns an error if any rule has an invalid name or duplicates an
// existing rule.
func (r *Registry) Register(rules ...*Rule) error {
	for _, rule := range rules {
		if rule.Name == "" {
			return fmt.Errorf("rule has empty name")
		}
		if _, exists := r.rules[rule.Name]; exists {
			return fmt.Errorf("duplicate rule name: %s", rule.Name)
		}
		if !isValidRuleName(rule.Name) {
			return fmt.Errorf("invalid rule name %q: must be kebab-case (lowercase with hyphens)", rule.Name)
		}

		r.rules[rule.Name] = rule
		r.enabled[rule.Name] = true

		if rule.Category != "" {
			r.categories[rule.Category] = append(r.categories[rule.Category], rule.Name)
		}
	}

	return nil
}

// Enable enables the specified rules by name, category, or "all".
// If a name matches both a rule and a category, the rule takes precedence.
func (r *Registry) Enable(names ...string) {
	r.setEnabled(true, names)
}

// Disable disables the specified rules by name, category, or "all".
// If a name matches both a rule and a category, the rule takes precedence.
func (r *Registry) Disable(names ...string) {
	r.setEnabled(false, names)
}

func (r *Registry) setEnabled(value bool, names []string) {
	for _, name := range names {
		if name == "all" {
			for ruleName := range r.rules {
				r.enabled[ruleName] = value
			}
			continue
		}

		if _, exists := r.rules[name]; exists {
			r.enabled[name] = value
			continue
		}

		if rules, exists := r.categories[name]; exists {
			for _, ruleName := range rules {
				r.enabled[ruleName] = value
			}
			continue
		}

		if strings.Contains(name, "*") {
			for ruleName := range r.rules {
				if matchGlob(name, ruleName) {
					r.enabled[ruleName] = value
				}
			}
		}
	}
}

// SetConfig sets the configuration for a specific rule.
func (r *Registry) SetConfig(ruleName string, config RuleConfig) error {
	if _, exists := r.rules[ruleName]; !exists {
		return fmt.Errorf("unknown rule: %s", ruleName)
	}
	r.configs[ruleName] = config
	return nil
}

// GetConfig returns the configuration for a specific rule.
// Returns an empty config if none is set.
func (r *Registry) GetConfig(ruleName string) RuleConfig {
	if config, exists := r.configs[ruleName]; exists {
		return config
	}
	return RuleConfig{}
}

// EnabledRules returns all currently enabled rules sorted by name.
func (r *Registry) EnabledRules() []*Rule {
	var enabled []*Rule
	for name, rule := range r.rules {
		if r.enabled[name] {
			enabled = append(enabled, rule)
		}
	}
	sort.Slice(enabled, func(i, j int) bool {
		return enabled[i].Name < enabled[j].Name
	})
	return enabled
}

// AllRules returns all registered rules sorted by name.
func (r *Registry) AllRules() []*Rule {
	rules := make([]*Rule, 0, len(r.rules))
	for _, rule := range r.rules {
		rules = append(rules, rule)
	}
	sort.Slice(rules, func(i, j int) bool {
		return rules[i].Name < rules[j].Name
	})
	return rules
}

// Categories returns all known categories, sorted.
func (r *Registry) Categories() []string {
	cats := make([]string, 0, len(r.categories))
	for cat := range r.categories {
		cats = append(cats, cat)
	}
	sort.Strings(cats)
	return cats
}

// isValidRuleName checks if a rule name follows kebab-case convention.
// Allows lowercase letters, digits, hyphens, and underscores.
func isValidRuleName(name string) bool {
	if name == "" {
		return false
	}
	for i, ch := range name {
		if ch >= 'a' && ch <= 'z' {
			continue
		}
		if ch >= '0' && ch <= '9' && i > 0 {
			continue
		}
		if (ch == '-' || ch == '_') && i > 0 && i < len(name)-1 {
			continue
		}
		return false
	}
	return true
}

// matchGlob is a simple glob matcher supporting a single '*' wildcard.
func matchGlob(pattern, str string) bool {
	parts := strings.SplitN(pattern, "*", 2)
	if len(parts) != 2 {
		return pattern == str
	}
	prefix, suffix := parts[0], parts[1]
	return strings.HasPrefix(str, prefix) && strings.HasSuffix(str, suffix) &&
		len(str) >= len(prefix)+len(suffix)
}
