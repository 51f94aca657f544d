package probe

import (
	"context"
	"fmt"
	"time"
)

// Set maps each kind to the prober that handles it.
type Set map[Kind]Prober

// DefaultSet returns the built-in probers.
func DefaultSet() Set {
	return Set{
		KindHTTP:     NewHTTPChecker(),
		KindCommand:  NewCommandChecker(),
		KindPostgres: NewPostgresChecker(),
		KindRedis:    NewRedisChecker(),
		KindTCP:      NewTCPChecker(),
		KindDNS:      NewDNSChecker(),
	}
}

// For returns the prober for def, wrapped for retries when def asks for them.
// initial is the first backoff interval between attempts.
func (s Set) For(def Definition, initial time.Duration) Prober {
	p, ok := s[def.Kind]
	if !ok {
		return missing(def.Kind)
	}
	return Retrying(p, def.Retries+1, initial)
}

func missing(k Kind) Prober {
	return ProberFunc(func(context.Context, Definition) (Raw, error) {
		return Raw{}, Fault(fmt.Errorf("no prober registered for kind %q", k))
	})
}
