package sambatool

import (
	"fmt"
	"strings"
	"time"

	"github.com/creasty/defaults"
)

// Config describes how samba-tool is invoked on the domain controller.
type Config struct {
	KinitBinary        string `default:"/usr/bin/kinit"`
	KinitAdministrator string `default:"Administrator"`
	KinitPasswordFile  string `default:"/var/lib/dc-con/dc-pass.txt"`

	SudoBinary string `default:"/usr/bin/sudo"`
	UseSudo    bool   `default:"true"`

	SambaToolBinary string `default:"/usr/bin/samba-tool"`
	ExecDir         string `default:"/tmp"`

	// NameServer is the DNS server samba-tool dns talks to.
	NameServer string `default:"ns.example.org"`

	// Account defaults for created users. {} is replaced by the user name.
	LoginShell            string `default:"/bin/bash"`
	HomeDirectoryTemplate string `default:"\\\\data\\users\\{}"`
	UnixHomeTemplate      string `default:"/home/{}"`

	// Timeout bounds one process invocation.
	Timeout time.Duration `default:"60s"`
}

// DefaultConfig returns a configuration with every field at its default.
// Booleans defaulting to true must be overridden after this call.
func DefaultConfig() *Config {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		panic(fmt.Sprintf("sambatool defaults: %v", err))
	}
	return cfg
}

// Validate checks the fields needed to build command lines.
func (c *Config) Validate() error {
	switch {
	case c.SambaToolBinary == "":
		return fmt.Errorf("samba-tool binary is required")
	case c.UseSudo && c.SudoBinary == "":
		return fmt.Errorf("sudo binary is required when sudo is enabled")
	case c.NameServer == "":
		return fmt.Errorf("name server host is required")
	case c.KinitBinary != "" && (c.KinitAdministrator == "" || c.KinitPasswordFile == ""):
		return fmt.Errorf("kinit requires an administrator name and a password file")
	case c.Timeout <= 0:
		return fmt.Errorf("timeout must be positive")
	}
	return nil
}

// HomeDirectory expands the Windows home directory template for user.
func (c *Config) HomeDirectory(user string) string {
	return strings.ReplaceAll(c.HomeDirectoryTemplate, "{}", user)
}

// UnixHome expands the unix home template for user.
func (c *Config) UnixHome(user string) string {
	return strings.ReplaceAll(c.UnixHomeTemplate, "{}", user)
}

// command wraps argv in sudo when enabled.
func (c *Config) command(binary string, args ...string) Command {
	if c.UseSudo {
		return Command{Path: c.SudoBinary, Args: append([]string{binary}, args...), Dir: c.ExecDir}
	}
	return Command{Path: binary, Args: args, Dir: c.ExecDir}
}

// kinitCommand obtains a ticket for the administrator from the password file.
func (c *Config) kinitCommand() Command {
	return c.command(c.KinitBinary, "--password-file="+c.KinitPasswordFile, c.KinitAdministrator)
}

// sambaTool builds a samba-tool invocation. Authenticated commands use the
// Kerberos ticket obtained by kinit.
func (c *Config) sambaTool(authenticated bool, args ...string) Command {
	if authenticated && c.KinitBinary != "" {
		args = append(args, "-k", "yes")
	}
	return c.command(c.SambaToolBinary, args...)
}
