package probe

import (
	"errors"
	"strings"
)

// DefaultPredicate is used when a definition has no explicit expectation.
func DefaultPredicate(k Kind) Predicate {
	switch k {
	case KindHTTP:
		return StatusIn(200, 299)
	case KindCommand:
		return ExitCode(0)
	case KindRedis:
		return OutputEquals("PONG")
	case KindDNS:
		return OutputEquals(DNSResolves)
	default:
		// postgres and tcp: getting an observation at all means healthy
		return func(Raw) bool { return true }
	}
}

func StatusIn(lo, hi int) Predicate {
	return func(r Raw) bool { return r.StatusCode >= lo && r.StatusCode <= hi }
}

func ExitCode(code int) Predicate {
	return func(r Raw) bool { return r.ExitCode == code }
}

// OutputEquals compares trimmed output.
func OutputEquals(want string) Predicate {
	return func(r Raw) bool { return strings.TrimSpace(r.Output) == want }
}

func OutputContains(sub string) Predicate {
	return func(r Raw) bool { return strings.Contains(r.Output, sub) }
}

// All is true when every predicate is true.
func All(ps ...Predicate) Predicate {
	return func(r Raw) bool {
		for _, p := range ps {
			if !p(r) {
				return false
			}
		}
		return true
	}
}

// Expect is the declarative form of a predicate, as written in config files.
// Unset fields are not checked; an entirely empty Expect means "use the kind's
// default".
type Expect struct {
	Status         []int  `mapstructure:"status"`          // [code] or [lo, hi]
	BodyContains   string `mapstructure:"body_contains"`   // http
	OutputEquals   string `mapstructure:"output_equals"`   // command, redis, dns
	OutputContains string `mapstructure:"output_contains"` // command, redis, dns
	ExitCode       *int   `mapstructure:"exit_code"`       // command
}

func (e Expect) empty() bool {
	return len(e.Status) == 0 && e.BodyContains == "" && e.OutputEquals == "" &&
		e.OutputContains == "" && e.ExitCode == nil
}

// Compile turns e into a predicate for kind k. Status and exit code checks
// fall back to the kind's defaults when only content checks are configured, so
// "body_contains: ok" still requires a 2xx and "output_equals: PONG" on a
// command still requires exit 0.
func (e Expect) Compile(k Kind) (Predicate, error) {
	if e.empty() {
		return DefaultPredicate(k), nil
	}

	var ps []Predicate
	switch len(e.Status) {
	case 0:
		if k == KindHTTP {
			ps = append(ps, StatusIn(200, 299))
		}
	case 1:
		ps = append(ps, StatusIn(e.Status[0], e.Status[0]))
	case 2:
		if e.Status[0] > e.Status[1] {
			return nil, errors.New("expect.status: range is inverted")
		}
		ps = append(ps, StatusIn(e.Status[0], e.Status[1]))
	default:
		return nil, errors.New("expect.status: want [code] or [lo, hi]")
	}
	if len(e.Status) > 0 && k != KindHTTP {
		return nil, errors.New("expect.status only applies to http probes")
	}

	if e.ExitCode != nil {
		if k != KindCommand {
			return nil, errors.New("expect.exit_code only applies to command probes")
		}
		ps = append(ps, ExitCode(*e.ExitCode))
	} else if k == KindCommand {
		ps = append(ps, ExitCode(0))
	}

	if e.BodyContains != "" {
		if k != KindHTTP {
			return nil, errors.New("expect.body_contains only applies to http probes")
		}
		ps = append(ps, OutputContains(e.BodyContains))
	}
	if e.OutputEquals != "" {
		ps = append(ps, OutputEquals(e.OutputEquals))
	}
	if e.OutputContains != "" {
		ps = append(ps, OutputContains(e.OutputContains))
	}
	return All(ps...), nil
}
