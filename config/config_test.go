package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/assujiar/ugc-business-command-portal-sub003/authority"
	"github.com/assujiar/ugc-business-command-portal-sub003/config"
	"github.com/assujiar/ugc-business-command-portal-sub003/domain"
	"github.com/assujiar/ugc-business-command-portal-sub003/persistence"
	"github.com/fundwit/go-commons/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "bizflow.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaultConfig(t *testing.T) {
	c := config.DefaultConfig()
	assert.NoError(t, c.Validate())
	assert.Equal(t, ":8080", c.HTTP.Addr)
	assert.Equal(t, persistence.DriverSqlite, c.Database.DriverType)
	assert.Equal(t, 4, c.SLA.Hours[domain.PriorityUrgent])
	assert.Empty(t, c.Search.Addresses)
}

func TestLoadConfig(t *testing.T) {
	t.Run("should merge file over defaults", func(t *testing.T) {
		path := writeConfig(t, `
http:
  addr: ":9090"
database:
  driverType: mysql
  driverArgs: "root:root@(127.0.0.1:3306)/bizflow?parseTime=True&loc=UTC"
sla:
  hours:
    urgent: 2
accounts:
  - {id: 1, name: root, role: admin, token: t-root}
  - {id: 2, name: dina, role: designer}
`)
		c, err := config.LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, ":9090", c.HTTP.Addr)
		assert.Equal(t, 3*time.Second, c.HTTP.ShutdownTimeout)
		assert.Equal(t, persistence.DriverMysql, c.Database.DriverType)
		assert.Equal(t, 2, c.SLA.Hours[domain.PriorityUrgent])
		assert.Equal(t, "@every 1m", c.SLA.ScanSchedule)
		assert.Equal(t, []config.AccountConfig{
			{ID: types.ID(1), Name: "root", Role: authority.RoleAdmin, Token: "t-root"},
			{ID: types.ID(2), Name: "dina", Role: authority.RoleDesigner},
		}, c.Accounts)
	})

	t.Run("should apply environment overrides", func(t *testing.T) {
		t.Setenv("HTTP_ADDR", ":7070")
		t.Setenv("GIN_MODE", "debug")
		t.Setenv("DB_DRIVER_ARGS", "/tmp/other.db")

		c, err := config.LoadConfig("")
		require.NoError(t, err)
		assert.Equal(t, ":7070", c.HTTP.Addr)
		assert.Equal(t, "debug", c.HTTP.Mode)
		assert.Equal(t, "/tmp/other.db", c.Database.DriverArgs)
	})

	t.Run("should reject a malformed connection limit", func(t *testing.T) {
		t.Setenv("DB_MAX_OPEN_CONNS", "lots")

		_, err := config.LoadConfig("")
		assert.ErrorContains(t, err, "invalid DB_MAX_OPEN_CONNS 'lots'")
	})

	t.Run("should fail on missing or malformed file", func(t *testing.T) {
		_, err := config.LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.ErrorContains(t, err, "failed to read config file")

		_, err = config.LoadConfig(writeConfig(t, "http: [1, 2"))
		assert.ErrorContains(t, err, "failed to parse config file")
	})
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(c *config.Config)
		message string
	}{
		{"empty addr", func(c *config.Config) { c.HTTP.Addr = "" }, "http.addr is required"},
		{"bad mode", func(c *config.Config) { c.HTTP.Mode = "loud" }, "http.mode 'loud' is not one of debug, release, test"},
		{"bad driver", func(c *config.Config) { c.Database.DriverType = "postgres" }, "database: unsupported database driver 'postgres'"},
		{"bad scan schedule", func(c *config.Config) { c.SLA.ScanSchedule = "sometimes" }, "sla.scanSchedule"},
		{"negative hours", func(c *config.Config) { c.SLA.Hours[domain.PriorityLow] = -1 }, "sla.hours.low must not be negative"},
		{"bad sync schedule", func(c *config.Config) {
			c.Search.Addresses = []string{"http://es:9200"}
			c.Search.SyncSchedule = "never"
		}, "search.syncSchedule"},
		{"unknown role", func(c *config.Config) {
			c.Accounts = []config.AccountConfig{{ID: 1, Name: "x", Role: "intern"}}
		}, "accounts[0]: unknown role 'intern'"},
		{"missing id", func(c *config.Config) {
			c.Accounts = []config.AccountConfig{{Name: "x", Role: authority.RoleAdmin}}
		}, "accounts[0]: id and name are required"},
		{"duplicated id", func(c *config.Config) {
			c.Accounts = []config.AccountConfig{{ID: 1, Name: "x", Role: authority.RoleAdmin}, {ID: 1, Name: "y", Role: authority.RoleSales}}
		}, "accounts[1]: duplicated id 1"},
		{"duplicated token", func(c *config.Config) {
			c.Accounts = []config.AccountConfig{{ID: 1, Name: "x", Role: authority.RoleAdmin, Token: "t"}, {ID: 2, Name: "y", Role: authority.RoleSales, Token: "t"}}
		}, "accounts[1]: duplicated token"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := config.DefaultConfig()
			tc.mutate(c)
			assert.ErrorContains(t, c.Validate(), tc.message)
		})
	}
}
