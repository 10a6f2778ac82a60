package provider

import (
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
)

// Test environment configuration constants.
const (
	EnvTestDomain   = "DCCON_TEST_DOMAIN"
	EnvTestLDAPURL  = "DCCON_TEST_LDAP_URL"
	EnvTestUsername = "DCCON_TEST_USERNAME"
	EnvTestPassword = "DCCON_TEST_PASSWORD"
	EnvTestKeytab   = "DCCON_TEST_KEYTAB"
	EnvTestRealm    = "DCCON_TEST_REALM"
	EnvTestZone     = "DCCON_TEST_ZONE"

	DefaultTestDomain = "example.org"

	// Test object name prefixes to avoid conflicts.
	TestGroupPrefix = "tf-test-grp-"
	TestUserPrefix  = "tf-test-usr-"
)

// TestConfig holds common acceptance test configuration.
type TestConfig struct {
	Domain      string
	LDAPURL     string
	Username    string
	Password    string
	Keytab      string
	Realm       string
	Zone        string
	UseKerberos bool
}

// GetTestConfig returns the test configuration from environment variables.
func GetTestConfig() *TestConfig {
	config := &TestConfig{
		Domain:   getEnvWithDefault(EnvTestDomain, DefaultTestDomain),
		LDAPURL:  os.Getenv(EnvTestLDAPURL),
		Username: os.Getenv(EnvTestUsername),
		Password: os.Getenv(EnvTestPassword),
		Keytab:   os.Getenv(EnvTestKeytab),
		Realm:    os.Getenv(EnvTestRealm),
		Zone:     os.Getenv(EnvTestZone),
	}
	config.UseKerberos = config.Keytab != "" && config.Realm != ""
	return config
}

// IsAccTest returns true if acceptance tests should run.
func IsAccTest() bool {
	return os.Getenv("TF_ACC") != ""
}

// SkipIfNotAccTest skips the test if TF_ACC is not set.
func SkipIfNotAccTest(t *testing.T) {
	if !IsAccTest() {
		t.Skip("Skipping acceptance test - set TF_ACC=1 to run")
	}
}

// testAccPreCheckWithConfig skips unless a real domain controller is
// configured and returns its configuration.
func testAccPreCheckWithConfig(t *testing.T) *TestConfig {
	SkipIfNotAccTest(t)

	config := GetTestConfig()

	if config.Username == "" {
		t.Skipf("Skipping test: %s must be set", EnvTestUsername)
	}
	if config.Password == "" && !config.UseKerberos {
		t.Skipf("Skipping test: %s must be set (or configure Kerberos)", EnvTestPassword)
	}
	if config.LDAPURL == "" && config.Domain == DefaultTestDomain {
		t.Skipf("Skipping test: Either %s or %s must be set to a real domain", EnvTestLDAPURL, EnvTestDomain)
	}

	return config
}

// testAccProviderConfig renders the provider block for acceptance tests.
func testAccProviderConfig() string {
	config := GetTestConfig()

	var b strings.Builder
	b.WriteString("provider \"dccon\" {\n")
	if config.LDAPURL != "" {
		fmt.Fprintf(&b, "  ldap_url = %q\n", config.LDAPURL)
	} else {
		fmt.Fprintf(&b, "  domain = %q\n", config.Domain)
	}
	fmt.Fprintf(&b, "  username = %q\n", config.Username)
	if config.UseKerberos {
		fmt.Fprintf(&b, "  kerberos_realm  = %q\n", config.Realm)
		fmt.Fprintf(&b, "  kerberos_keytab = %q\n", config.Keytab)
	} else {
		fmt.Fprintf(&b, "  password = %q\n", config.Password)
	}
	b.WriteString("}\n")
	return b.String()
}

// GenerateTestName returns prefix followed by a short random suffix, short
// enough for a sAMAccountName.
func GenerateTestName(prefix string) string {
	name := prefix + strings.ReplaceAll(uuid.New().String(), "-", "")
	if len(name) > 20 {
		name = name[:20]
	}
	return name
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
