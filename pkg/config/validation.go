package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Validate checks cfg after ApplyDefaults. Struct tags run first, then the
// cross-field rules tags cannot express.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}
	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	for name, exe := range toolsByName(&cfg.Tools) {
		if *exe == "" {
			return fmt.Errorf("tools.%s: executable must not be empty", name)
		}
	}

	if cfg.Cell.Akimpersonate && cfg.Cell.Keytab == "" {
		return fmt.Errorf("cell: akimpersonate is true but keytab is empty")
	}

	if cfg.Journal.Type == "badger" {
		if path, _ := cfg.Journal.Badger["db_path"].(string); path == "" {
			if inMem, _ := cfg.Journal.Badger["in_memory"].(bool); !inMem {
				return fmt.Errorf("journal.badger: db_path is required")
			}
		}
	}

	return nil
}

// toolsByName returns the tool settings keyed by their configuration name.
func toolsByName(t *ToolsConfig) map[string]*string {
	return map[string]*string{
		"vos":       &t.Vos,
		"fs":        &t.Fs,
		"bos":       &t.Bos,
		"rxdebug":   &t.Rxdebug,
		"aklog":     &t.Aklog,
		"klog_krb5": &t.KlogKrb5,
		"kinit":     &t.Kinit,
		"kdestroy":  &t.Kdestroy,
		"unlog":     &t.Unlog,
		"pagsh":     &t.Pagsh,
	}
}

// formatValidationError reports every failed field as
// "<namespace>: failed '<tag>' (value: <v>)".
func formatValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return err
	}

	errs := make([]error, 0, len(fieldErrs))
	for _, e := range fieldErrs {
		errs = append(errs, fmt.Errorf("%s: failed '%s' (value: %v)", e.Namespace(), e.Tag(), e.Value()))
	}
	return errors.Join(errs...)
}
