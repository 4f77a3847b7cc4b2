package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrVariableMissing is returned by Lookup for an unknown name.
	ErrVariableMissing = errors.New("variable missing")

	// ErrVariableEmpty is returned by Lookup when the setting is empty.
	ErrVariableEmpty = errors.New("variable empty")
)

// Lookup resolves a setting by its classic variable name (VOS, AFS_CELL,
// KRB_REALM, ...). Booleans are rendered as "true" or "false".
func (c *Config) Lookup(name string) (string, error) {
	get, ok := variables[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrVariableMissing, name)
	}
	value := get(c)
	if value == "" {
		return "", fmt.Errorf("%w: %s", ErrVariableEmpty, name)
	}
	return value, nil
}

// LookupBool resolves a setting with Lookup and interprets it with ParseBool.
func (c *Config) LookupBool(name string) (bool, error) {
	value, err := c.Lookup(name)
	if err != nil {
		return false, err
	}
	return ParseBool(value), nil
}

// Variables returns the names accepted by Lookup.
func Variables() []string {
	names := make([]string, 0, len(variables))
	for name := range variables {
		names = append(names, name)
	}
	return names
}

var variables = map[string]func(*Config) string{
	"VOS":               func(c *Config) string { return c.Tools.Vos },
	"FS":                func(c *Config) string { return c.Tools.Fs },
	"BOS":               func(c *Config) string { return c.Tools.Bos },
	"RXDEBUG":           func(c *Config) string { return c.Tools.Rxdebug },
	"AKLOG":             func(c *Config) string { return c.Tools.Aklog },
	"KLOG_KRB5":         func(c *Config) string { return c.Tools.KlogKrb5 },
	"KINIT":             func(c *Config) string { return c.Tools.Kinit },
	"KDESTROY":          func(c *Config) string { return c.Tools.Kdestroy },
	"UNLOG":             func(c *Config) string { return c.Tools.Unlog },
	"PAGSH":             func(c *Config) string { return c.Tools.Pagsh },
	"AFS_CELL":          func(c *Config) string { return c.Cell.Name },
	"KRB_REALM":         func(c *Config) string { return c.Cell.Realm },
	"KRB_AFS_KEYTAB":    func(c *Config) string { return c.Cell.Keytab },
	"KRB5CCNAME":        func(c *Config) string { return c.Cell.Krb5CCache },
	"AFS_AKIMPERSONATE": func(c *Config) string { return strconv.FormatBool(c.Cell.Akimpersonate) },
	"PAG_ONEGROUP":      func(c *Config) string { return strconv.FormatBool(c.Cell.PagOneGroup) },
}

// ParseBool interprets a setting value: "yes", "y", "true", "t" and any
// non-zero integer are true (case-insensitive); everything else is false.
func ParseBool(value string) bool {
	value = strings.ToLower(strings.TrimSpace(value))
	switch value {
	case "yes", "y", "true", "t":
		return true
	}
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return n != 0
	}
	return false
}
