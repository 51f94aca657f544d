package registry

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hamed0406/readycheck/internal/config"
	"github.com/hamed0406/readycheck/internal/probe"
)

func httpDef(name string) probe.Definition {
	return probe.Definition{Name: name, Kind: probe.KindHTTP, Target: "http://host:7474", Timeout: 5 * time.Second}
}

func TestRegister_PreservesOrder(t *testing.T) {
	r := New()
	for _, n := range []string{"PostgreSQL", "Redis", "Neo4j", "LanceDB", "MinIO"} {
		require.NoError(t, r.Register(httpDef(n)))
	}

	var names []string
	for _, d := range r.All() {
		names = append(names, d.Name)
	}
	assert.Equal(t, []string{"PostgreSQL", "Redis", "Neo4j", "LanceDB", "MinIO"}, names)
	assert.Equal(t, 5, r.Len())
}

func TestRegister_DuplicateNameIsConfigurationError(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(httpDef("Redis")))

	err := r.Register(httpDef("Redis"))
	require.Error(t, err)
	var ce *ConfigurationError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "Redis", ce.Probe)
	assert.Equal(t, 1, r.Len())
}

func TestAll_ReturnsSnapshot(t *testing.T) {
	r := New()
	require.NoError(t, r.Register(httpDef("a")))
	snap := r.All()

	require.NoError(t, r.Register(httpDef("b")))
	assert.Len(t, snap, 1)

	snap[0].Name = "mutated"
	assert.Equal(t, "a", r.All()[0].Name)
}

func TestRegister_RejectsMalformed(t *testing.T) {
	cases := map[string]probe.Definition{
		"no name":        {Kind: probe.KindHTTP, Target: "http://x", Timeout: time.Second},
		"bad kind":       {Name: "x", Kind: "smtp", Target: "x", Timeout: time.Second},
		"no timeout":     {Name: "x", Kind: probe.KindHTTP, Target: "http://x"},
		"not http":       {Name: "x", Kind: probe.KindHTTP, Target: "ftp://x", Timeout: time.Second},
		"empty command":  {Name: "x", Kind: probe.KindCommand, Timeout: time.Second},
		"bad runtime":    {Name: "x", Kind: probe.KindCommand, Command: []string{"true"}, Container: "c", Runtime: "lxc", Timeout: time.Second},
		"runtime alone":  {Name: "x", Kind: probe.KindCommand, Command: []string{"true"}, Runtime: "docker", Timeout: time.Second},
		"pg scheme":      {Name: "x", Kind: probe.KindPostgres, Target: "mysql://db", Timeout: time.Second},
		"redis scheme":   {Name: "x", Kind: probe.KindRedis, Target: "localhost:6379", Timeout: time.Second},
		"tcp no port":    {Name: "x", Kind: probe.KindTCP, Target: "localhost", Timeout: time.Second},
		"dns no target":  {Name: "x", Kind: probe.KindDNS, Timeout: time.Second},
		"dns host:port":  {Name: "x", Kind: probe.KindDNS, Target: "localhost:9000", Timeout: time.Second},
		"dns path":       {Name: "x", Kind: probe.KindDNS, Target: "minio/health", Timeout: time.Second},
		"dns space":      {Name: "x", Kind: probe.KindDNS, Target: "my host", Timeout: time.Second},
		"dns ftp url":    {Name: "x", Kind: probe.KindDNS, Target: "ftp://files", Timeout: time.Second},
		"newline name":   {Name: "x\nOK fake", Kind: probe.KindTCP, Target: "db:5432", Timeout: time.Second},
		"tab name":       {Name: "x\ty", Kind: probe.KindTCP, Target: "db:5432", Timeout: time.Second},
		"negative retry": {Name: "x", Kind: probe.KindTCP, Target: "db:5432", Timeout: time.Second, Retries: -1},
	}
	for name, def := range cases {
		t.Run(name, func(t *testing.T) {
			err := New().Register(def)
			assert.True(t, IsConfigurationError(err), "got %v", err)
		})
	}
}

func TestRegister_DNSTargets(t *testing.T) {
	for _, target := range []string{"neo4j", "db.internal", "http://neo4j:7474/browser", "https://minio.local"} {
		def := probe.Definition{Name: target, Kind: probe.KindDNS, Target: target, Timeout: time.Second}
		assert.NoError(t, New().Register(def), target)
	}
}

func testConfig(specs ...config.ProbeSpec) *config.Config {
	return &config.Config{DefaultTimeout: 4 * time.Second, RetryAttempts: 1, Probes: specs}
}

func TestBuild_FromConfig(t *testing.T) {
	zero := 0
	cfg := testConfig(
		config.ProbeSpec{Name: "Neo4j Browser", Kind: "http", Target: "http://host:7474", Timeout: 5 * time.Second},
		config.ProbeSpec{Name: "Redis", Kind: "command", Container: "cache-container", Command: "redis-cli ping",
			Timeout: 3 * time.Second, Retries: &zero, Expect: probe.Expect{OutputEquals: "PONG"}},
	)

	reg, err := Build(cfg)
	require.NoError(t, err)
	defs := reg.All()
	require.Len(t, defs, 2)

	assert.Equal(t, 5*time.Second, defs[0].Timeout)
	assert.Equal(t, 1, defs[0].Retries, "global retry default applies")
	assert.True(t, defs[0].Expect(probe.Raw{StatusCode: 200}))

	redis := defs[1]
	assert.Equal(t, []string{"redis-cli", "ping"}, redis.Command)
	assert.Equal(t, "docker exec cache-container redis-cli ping", redis.Target)
	assert.Equal(t, 0, redis.Retries)
	assert.True(t, redis.Expect(probe.Raw{Output: "PONG\n"}))
	assert.False(t, redis.Expect(probe.Raw{Output: "Could not connect", ExitCode: 1}))
}

func TestBuild_DefaultTimeout(t *testing.T) {
	reg, err := Build(testConfig(config.ProbeSpec{Name: "pg", Kind: "tcp", Target: "db:5432"}))
	require.NoError(t, err)
	assert.Equal(t, 4*time.Second, reg.All()[0].Timeout)
}

func TestBuild_ReportsEveryError(t *testing.T) {
	cfg := testConfig(
		config.ProbeSpec{Name: "Redis", Kind: "tcp", Target: "cache:6379"},
		config.ProbeSpec{Name: "Redis", Kind: "tcp", Target: "cache:6380"},
		config.ProbeSpec{Name: "broken", Kind: "command", Command: `echo "oops`},
		config.ProbeSpec{Kind: "gopher"},
	)
	reg, err := Build(cfg)
	require.Error(t, err)
	assert.Nil(t, reg)
	assert.True(t, IsConfigurationError(err))

	msg := err.Error()
	assert.Contains(t, msg, "duplicate probe name")
	assert.Contains(t, msg, `"broken"`)
	assert.Contains(t, msg, "#4")
	assert.Equal(t, 1, strings.Count(msg, "configuration error"), msg)
	assert.True(t, strings.HasPrefix(msg, `configuration error: probe "Redis": `), msg)
}

func TestBuild_SingleErrorHasOnePrefix(t *testing.T) {
	_, err := Build(testConfig(config.ProbeSpec{Name: "a", Kind: "tcp", Target: "nope"}))
	require.Error(t, err)
	assert.Equal(t, 1, strings.Count(err.Error(), "configuration error"), err.Error())
	assert.Contains(t, err.Error(), `probe "a": `)
}
