package httpapi

import (
	"net/url"

	"github.com/hamed0406/readycheck/internal/probe"
)

// redact hides credentials embedded in DSN and URL targets.
func redact(d probe.Definition) string {
	switch d.Kind {
	case probe.KindPostgres, probe.KindRedis, probe.KindHTTP:
	default:
		return d.Target
	}
	u, err := url.Parse(d.Target)
	if err != nil || u.User == nil {
		return d.Target
	}
	return u.Redacted()
}
