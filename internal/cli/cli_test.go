package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isometry/terraform-provider-dccon/internal/connector"
	"github.com/isometry/terraform-provider-dccon/internal/connector/connectortest"
)

// run executes dccon with args against f and returns stdout.
func run(t *testing.T, f *connectortest.Fixture, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer

	cmd := NewRootCommand(Options{
		Version: "1.2.3",
		Connect: func(context.Context, *Settings) (*connector.Service, io.Closer, error) {
			return f.Service, f.Dir, nil
		},
	})
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	err := cmd.Execute()
	t.Log(stderr.String())
	return stdout.String(), err
}

func lines(s string) [][]string {
	var out [][]string
	for _, l := range strings.Split(strings.TrimSpace(s), "\n") {
		if l != "" {
			out = append(out, strings.Fields(l))
		}
	}
	return out
}

func TestVersionCommand(t *testing.T) {
	out, err := run(t, connectortest.New(t), "version")
	require.NoError(t, err)
	assert.Equal(t, "dccon 1.2.3\n", out)
}

func TestZonesCommand(t *testing.T) {
	f := connectortest.New(t)
	f.Tool.AddZone("1.168.192.in-addr.arpa").
		AddZone("_msdcs.example.org").
		AddZone("example.org")

	out, err := run(t, f, "zones")
	require.NoError(t, err)
	assert.Equal(t, [][]string{
		{"example.org", "forward"},
		{"1.168.192.in-addr.arpa", "reverse"},
	}, lines(out))

	out, err = run(t, f, "zones", "--kind", "Reverse")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1.168.192.in-addr.arpa", "reverse"}}, lines(out))

	_, err = run(t, f, "zones", "--kind", "sideways")
	assert.Error(t, err)
}

func TestRecordsCommand(t *testing.T) {
	f := connectortest.New(t)
	f.Tool.AddZone("example.org").
		AddRecord("example.org", "web", "A", "192.168.1.10").
		AddRecord("example.org", "forelle", "A", "192.168.1.113")

	out, err := run(t, f, "records", "example.org", "--match", "w*")
	require.NoError(t, err)
	rows := lines(out)
	require.Len(t, rows, 1)
	assert.Equal(t, "web", rows[0][0])
	assert.Equal(t, []string{"A", "192.168.1.10"}, rows[0][2:])

	_, err = run(t, f, "records")
	assert.Error(t, err)
}

func TestBindCommand(t *testing.T) {
	f := connectortest.New(t)
	f.Tool.AddZone("example.org").AddZone("1.168.192.in-addr.arpa")

	out, err := run(t, f, "bind", "example.org", "web", "a", "192.168.1.10")
	require.NoError(t, err)
	rows := lines(out)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"created", "example.org", "web", "A", "192.168.1.10"}, rows[0])
	assert.Equal(t, "created", rows[1][0])
	assert.Equal(t, "1.168.192.in-addr.arpa", rows[1][1])

	assert.Equal(t, []string{"web A 192.168.1.10"}, f.Tool.Records("example.org"))
	assert.Equal(t, []string{"10 PTR web.example.org"}, f.Tool.Records("1.168.192.in-addr.arpa"))

	out, err = run(t, f, "bind", "example.org", "web", "A", "192.168.1.10")
	require.NoError(t, err)
	assert.Equal(t, "exists", lines(out)[0][0])

	_, err = run(t, f, "bind", "example.org", "web", "BOGUS", "x")
	assert.Error(t, err)
}

func TestGroupsCommand(t *testing.T) {
	f := connectortest.New(t)
	f.AddUser("alice")
	f.AddGroup("web-admins", "alice")
	f.AddGroup("db-admins")

	out, err := run(t, f, "groups", "--match", "web-*")
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"web-admins", "1"}}, lines(out))
}

func TestInvalidLogLevel(t *testing.T) {
	_, err := run(t, connectortest.New(t), "--loglevel", "chatty", "groups")
	assert.ErrorContains(t, err, "invalid log level")
}

func TestConfigurationSources(t *testing.T) {
	dir := t.TempDir()
	config := filepath.Join(dir, "dccon.yaml")
	require.NoError(t, os.WriteFile(config, []byte("ldap-url: ldaps://dc1.example.org\nuse-sudo: false\nname-server: dc1.example.org\n"), 0o600))
	t.Setenv("DCCON_USERNAME", "Administrator")
	t.Setenv("DCCON_NAME_SERVER", "dc2.example.org")

	f := connectortest.New(t)
	var got Settings
	cmd := NewRootCommand(Options{
		Connect: func(_ context.Context, s *Settings) (*connector.Service, io.Closer, error) {
			got = *s
			return f.Service, f.Dir, nil
		},
	})
	cmd.SetArgs([]string{"--config", config, "--username", "admin", "groups"})
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	require.NoError(t, cmd.Execute())

	assert.Equal(t, "ldaps://dc1.example.org", got.LDAPURL)
	assert.False(t, got.UseSudo)
	// Command line beats environment, environment beats the file.
	assert.Equal(t, "admin", got.Username)
	assert.Equal(t, "dc2.example.org", got.NameServer)
}

func TestSettingsDirectoryConfig(t *testing.T) {
	s := &Settings{Domain: "ad.example.org"}
	cfg, err := s.directoryConfig()
	require.NoError(t, err)
	assert.Equal(t, "CN=Users,DC=ad,DC=example,DC=org", cfg.UserBaseDN)
	assert.Equal(t, "CN=Users,DC=ad,DC=example,DC=org", cfg.GroupBaseDN)

	s = &Settings{LDAPURL: "ldaps://dc1.example.org", GroupBaseDN: "OU=Groups,DC=example,DC=org"}
	_, err = s.directoryConfig()
	assert.Error(t, err)
}

func TestSettingsConnectionConfig(t *testing.T) {
	_, err := (&Settings{Username: "admin", Password: "x"}).connectionConfig()
	assert.ErrorContains(t, err, "--domain or --ldap-url")

	_, err = (&Settings{Domain: "example.org"}).connectionConfig()
	assert.ErrorContains(t, err, "no credentials")

	cfg, err := (&Settings{Domain: "example.org", Username: "admin", Password: "x", SkipTLSVerify: true}).connectionConfig()
	require.NoError(t, err)
	assert.Equal(t, "example.org", cfg.Domain)
	assert.True(t, cfg.TLSConfig.InsecureSkipVerify)
}

func TestToolConfig(t *testing.T) {
	cfg := (&Settings{UseSudo: false, NameServer: "dc1.example.org"}).toolConfig()
	assert.False(t, cfg.UseSudo)
	assert.Equal(t, "dc1.example.org", cfg.NameServer)
	assert.Equal(t, "/usr/bin/samba-tool", cfg.SambaToolBinary)
}

func TestSubsystemEventsReachConsole(t *testing.T) {
	f := connectortest.New(t)
	f.Tool.AddZone("example.org").AddZone("1.168.192.in-addr.arpa")

	for _, tt := range []struct {
		level string
		want  bool
	}{
		{"debug", true},
		{"info", false},
	} {
		t.Run(tt.level, func(t *testing.T) {
			var stderr bytes.Buffer
			cmd := NewRootCommand(Options{
				Connect: func(context.Context, *Settings) (*connector.Service, io.Closer, error) {
					return f.Service, f.Dir, nil
				},
			})
			cmd.SetArgs([]string{"--loglevel", tt.level, "bind", "example.org", "web", "A", "192.168.1.10"})
			cmd.SetOut(io.Discard)
			cmd.SetErr(&stderr)
			require.NoError(t, cmd.Execute())

			assert.Equal(t, tt.want, strings.Contains(stderr.String(), "Operation completed successfully"), stderr.String())
		})
	}
}

func TestZerologSink(t *testing.T) {
	var out bytes.Buffer
	sink := &zerologSink{log: zerolog.New(&out)}

	// Lines may arrive split across writes.
	_, err := sink.Write([]byte(`{"@level":"warn","@message":"Counterpart record could not be written","@module":"provider.dns","zone":"1.168`))
	require.NoError(t, err)
	assert.Empty(t, out.String())
	_, err = sink.Write([]byte(`.192.in-addr.arpa"}` + "\n" + `{"@level":"debug","@message":"Running command","@module":"provider.sambatool"}` + "\n"))
	require.NoError(t, err)

	var events []map[string]any
	dec := json.NewDecoder(&out)
	for dec.More() {
		var e map[string]any
		require.NoError(t, dec.Decode(&e))
		events = append(events, e)
	}
	require.Len(t, events, 2)
	assert.Equal(t, map[string]any{
		"level":     "warn",
		"subsystem": "dns",
		"zone":      "1.168.192.in-addr.arpa",
		"message":   "Counterpart record could not be written",
	}, events[0])
	assert.Equal(t, "debug", events[1]["level"])
	assert.Equal(t, "sambatool", events[1]["subsystem"])
}
