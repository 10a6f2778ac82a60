package dns

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/creasty/defaults"
)

// Options is the user-facing form of the zone and record classification
// rules. A nil list takes its default; an empty list disables the rule.
type Options struct {
	ReverseZoneSuffixes    []string
	ExcludedZonePatterns   []string
	ExcludedRecordPatterns []string
}

// SetDefaults implements defaults.Setter.
func (o *Options) SetDefaults() {
	if o.ReverseZoneSuffixes == nil {
		o.ReverseZoneSuffixes = []string{".in-addr.arpa", ".ip6.arpa"}
	}
	if o.ExcludedZonePatterns == nil {
		o.ExcludedZonePatterns = []string{`^_msdcs\..*$`}
	}
	if o.ExcludedRecordPatterns == nil {
		o.ExcludedRecordPatterns = []string{
			`^$`,
			`_msdcs`,
			`_sites`,
			`_tcp`,
			`_udp`,
			`@`,
			`_gc\..*$`,
			`_kerberos\..*$`,
			`_kpasswd\..*$`,
			`_ldap\..*$`,
			`ForestDnsZones`,
		}
	}
}

// Config holds compiled classification rules. It is immutable once built and
// safe for concurrent use.
type Config struct {
	reverseSuffixes []string
	excludedZones   []*regexp.Regexp
	excludedRecords []*regexp.Regexp
}

// NewConfig validates opts and compiles its patterns. Patterns always match
// the whole name.
func NewConfig(opts Options) (*Config, error) {
	if err := defaults.Set(&opts); err != nil {
		return nil, fmt.Errorf("applying dns defaults: %w", err)
	}

	cfg := &Config{}
	for _, suffix := range opts.ReverseZoneSuffixes {
		suffix = strings.ToLower(strings.TrimSuffix(strings.TrimSpace(suffix), "."))
		if suffix == "" {
			return nil, fmt.Errorf("reverse zone suffix cannot be empty")
		}
		if !strings.HasPrefix(suffix, ".") {
			suffix = "." + suffix
		}
		cfg.reverseSuffixes = append(cfg.reverseSuffixes, suffix)
	}

	var err error
	if cfg.excludedZones, err = CompileRules(opts.ExcludedZonePatterns); err != nil {
		return nil, fmt.Errorf("excluded zone pattern: %w", err)
	}
	if cfg.excludedRecords, err = CompileRules(opts.ExcludedRecordPatterns); err != nil {
		return nil, fmt.Errorf("excluded record pattern: %w", err)
	}
	return cfg, nil
}

// DefaultConfig returns the configuration built from default Options.
func DefaultConfig() *Config {
	cfg, err := NewConfig(Options{})
	if err != nil {
		panic(err)
	}
	return cfg
}

// CompileRules compiles patterns into whole-name rules for IsExcluded.
func CompileRules(patterns []string) ([]*regexp.Regexp, error) {
	rules := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(`^(?:` + p + `)$`)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", p, err)
		}
		rules = append(rules, re)
	}
	return rules, nil
}

// ReverseZoneSuffixes returns the configured suffixes in match order.
func (c *Config) ReverseZoneSuffixes() []string {
	return slices.Clone(c.reverseSuffixes)
}

// IsReverseZone reports whether name ends with a reverse zone suffix.
func (c *Config) IsReverseZone(name string) bool {
	_, ok := c.reverseSuffix(name)
	return ok
}

// reverseSuffix returns the first configured suffix name ends with.
func (c *Config) reverseSuffix(name string) (string, bool) {
	name = strings.ToLower(strings.TrimSuffix(name, "."))
	for _, suffix := range c.reverseSuffixes {
		if strings.HasSuffix(name, suffix) && len(name) > len(suffix) {
			return suffix, true
		}
	}
	return "", false
}

// IsExcludedZone reports whether a zone is hidden from listings.
func (c *Config) IsExcludedZone(name string) bool {
	return IsExcluded(name, c.excludedZones)
}

// IsExcludedRecord reports whether a record node is hidden from listings.
func (c *Config) IsExcludedRecord(name string) bool {
	return IsExcluded(name, c.excludedRecords)
}

// IsExcluded reports whether any rule matches name. Rules built by
// CompileRules only match the whole name.
func IsExcluded(name string, rules []*regexp.Regexp) bool {
	for _, re := range rules {
		if re.MatchString(name) {
			return true
		}
	}
	return false
}
