package registry

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/multierr"

	"github.com/hamed0406/readycheck/internal/config"
	"github.com/hamed0406/readycheck/internal/probe"
)

// Build turns the probes of cfg into a registry. Every invalid entry is
// reported, not just the first; the returned error is a ConfigurationError.
func Build(cfg *config.Config) (*Registry, error) {
	reg := New()
	var errs error
	for i, spec := range cfg.Probes {
		def, err := Definition(spec, cfg)
		if err == nil {
			err = reg.Register(def)
		}
		if err != nil {
			if !IsConfigurationError(err) {
				err = &ConfigurationError{Probe: label(spec, i), Err: err}
			}
			errs = multierr.Append(errs, err)
		}
	}
	if errs != nil {
		return nil, &ConfigurationError{Err: errs}
	}
	return reg, nil
}

// Definition converts one config entry, filling defaults from cfg.
func Definition(spec config.ProbeSpec, cfg *config.Config) (probe.Definition, error) {
	kind, err := probe.ParseKind(spec.Kind)
	if err != nil {
		return probe.Definition{}, err
	}

	def := probe.Definition{
		Name:      strings.TrimSpace(spec.Name),
		Kind:      kind,
		Target:    spec.Target,
		Method:    strings.ToUpper(spec.Method),
		Headers:   spec.Headers,
		Body:      spec.Body,
		Container: spec.Container,
		Runtime:   strings.ToLower(spec.Runtime),
		Timeout:   spec.Timeout,
		Retries:   cfg.RetryAttempts,
	}
	if def.Timeout == 0 {
		def.Timeout = cfg.DefaultTimeout
	}
	if spec.Retries != nil {
		def.Retries = *spec.Retries
	}

	if kind == probe.KindCommand {
		argv, err := probe.ParseCommand(spec.Command)
		if err != nil {
			return probe.Definition{}, err
		}
		def.Command = argv
		if def.Target == "" {
			def.Target = strings.Join(probe.Argv(def), " ")
		}
	} else if spec.Command != "" {
		return probe.Definition{}, errors.New("command is only valid for command probes")
	}

	def.Expect, err = spec.Expect.Compile(kind)
	if err != nil {
		return probe.Definition{}, err
	}
	return def, nil
}

func label(spec config.ProbeSpec, i int) string {
	if spec.Name != "" {
		return spec.Name
	}
	return fmt.Sprintf("#%d", i+1)
}
