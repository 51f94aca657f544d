// Package registry holds the ordered, uniquely named set of probe definitions
// a run executes.
package registry

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
	"sync"
	"unicode"

	"go.uber.org/multierr"

	"github.com/hamed0406/readycheck/internal/probe"
)

// ConfigurationError is returned for anything wrong with a probe definition.
// It is fatal: the process exits before any probe runs.
type ConfigurationError struct {
	Probe string // empty when the problem is not tied to one probe
	Err   error
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.detail()
}

// detail is the message without the prefix, so an aggregate of several
// errors carries the prefix once.
func (e *ConfigurationError) detail() string {
	if e.Probe != "" {
		return fmt.Sprintf("probe %q: %v", e.Probe, e.Err)
	}
	errs := multierr.Errors(e.Err)
	parts := make([]string, 0, len(errs))
	for _, err := range errs {
		var ce *ConfigurationError
		if errors.As(err, &ce) {
			parts = append(parts, ce.detail())
			continue
		}
		parts = append(parts, err.Error())
	}
	return strings.Join(parts, "; ")
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// IsConfigurationError reports whether err is, or wraps, a ConfigurationError.
func IsConfigurationError(err error) bool {
	var ce *ConfigurationError
	return errors.As(err, &ce)
}

type Registry struct {
	mu    sync.RWMutex
	defs  []probe.Definition
	names map[string]struct{}
}

func New() *Registry {
	return &Registry{names: make(map[string]struct{})}
}

// Register validates def and appends it. Names are unique.
func (r *Registry) Register(def probe.Definition) error {
	if err := validate(def); err != nil {
		return &ConfigurationError{Probe: def.Name, Err: err}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, dup := r.names[def.Name]; dup {
		return &ConfigurationError{Probe: def.Name, Err: errors.New("duplicate probe name")}
	}
	r.names[def.Name] = struct{}{}
	r.defs = append(r.defs, def)
	return nil
}

// All returns the definitions in registration order. The slice is a copy, so a
// run holding it is unaffected by later registrations.
func (r *Registry) All() []probe.Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]probe.Definition, len(r.defs))
	copy(out, r.defs)
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.defs)
}

func validate(def probe.Definition) error {
	if def.Name == "" {
		return errors.New("name is required")
	}
	if strings.IndexFunc(def.Name, unicode.IsControl) >= 0 {
		return errors.New("name must not contain control characters")
	}
	if _, err := probe.ParseKind(string(def.Kind)); err != nil {
		return err
	}
	if def.Timeout <= 0 {
		return errors.New("timeout must be positive")
	}
	if def.Retries < 0 {
		return errors.New("retries must not be negative")
	}

	switch def.Kind {
	case probe.KindHTTP:
		u, err := url.Parse(def.Target)
		if err != nil {
			return fmt.Errorf("malformed target: %w", err)
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("target %q is not an http(s) URL", def.Target)
		}
	case probe.KindCommand:
		if len(def.Command) == 0 {
			return errors.New("command is required")
		}
		switch def.Runtime {
		case "", "docker", "podman", "kubectl":
		default:
			return fmt.Errorf("unsupported container runtime %q", def.Runtime)
		}
		if def.Runtime != "" && def.Container == "" {
			return errors.New("runtime is set but container is empty")
		}
	case probe.KindPostgres:
		u, err := url.Parse(def.Target)
		if err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			return errors.New("target must be a postgres:// URL")
		}
	case probe.KindRedis:
		u, err := url.Parse(def.Target)
		if err != nil || (u.Scheme != "redis" && u.Scheme != "rediss") {
			return errors.New("target must be a redis:// URL")
		}
	case probe.KindTCP:
		if _, _, err := net.SplitHostPort(def.Target); err != nil {
			return fmt.Errorf("malformed target: %w", err)
		}
	case probe.KindDNS:
		return validateDNSTarget(def.Target)
	}
	return nil
}

// validateDNSTarget accepts a bare hostname or an http(s) URL whose host is
// resolved. A host:port is a tcp target and would never resolve.
func validateDNSTarget(target string) error {
	if target == "" {
		return errors.New("target is required")
	}
	if strings.Contains(target, "://") {
		u, err := url.Parse(target)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Hostname() == "" {
			return fmt.Errorf("target %q is neither a hostname nor an http(s) URL", target)
		}
		return nil
	}
	if _, _, err := net.SplitHostPort(target); err == nil {
		return fmt.Errorf("target %q has a port; use a tcp probe for host:port", target)
	}
	if strings.ContainsAny(target, "/:") || strings.IndexFunc(target, unicode.IsSpace) >= 0 {
		return fmt.Errorf("target %q is not a hostname", target)
	}
	return nil
}
