package config_test

import (
	"docflow/authority"
	"docflow/config"
	"docflow/domain/document"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	. "github.com/onsi/gomega"
)

func writeConfig(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "docflow.yaml")
	Expect(ioutil.WriteFile(path, []byte(content), 0644)).To(BeNil())
	return path
}

func TestParseFlags(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should read flags", func(t *testing.T) {
		opts, err := config.ParseFlags([]string{"--config", "/etc/docflow.yaml", "--listen", ":8080"})
		Expect(err).To(BeNil())
		Expect(*opts).To(Equal(config.Options{ConfigPath: "/etc/docflow.yaml", Listen: ":8080"}))
	})

	t.Run("should fall back to environment", func(t *testing.T) {
		os.Setenv("DOCFLOW_CONFIG", "/opt/docflow.yaml")
		defer os.Unsetenv("DOCFLOW_CONFIG")
		opts, err := config.ParseFlags([]string{})
		Expect(err).To(BeNil())
		Expect(opts.ConfigPath).To(Equal("/opt/docflow.yaml"))
	})

	t.Run("should reject unknown flags", func(t *testing.T) {
		_, err := config.ParseFlags([]string{"--bogus"})
		Expect(err).ToNot(BeNil())
	})
}

func TestLoad(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should use defaults without file", func(t *testing.T) {
		c, err := config.Load(&config.Options{})
		Expect(err).To(BeNil())
		Expect(c).To(Equal(config.Default()))
	})

	t.Run("should override defaults from file", func(t *testing.T) {
		path := writeConfig(t, `
listen: ":9000"
roles:
  adminRole: Root
  productionRoles: [Operator]
  managerRoles: [Supervisor]
departments: [Assembly, Paint]
`)
		c, err := config.Load(&config.Options{ConfigPath: path, Listen: ":9100"})
		Expect(err).To(BeNil())
		Expect(c.Listen).To(Equal(":9100"))
		Expect(c.Roles).To(Equal(authority.RoleTable{AdminRole: "Root", ProductionRoles: []string{"Operator"}, ManagerRoles: []string{"Supervisor"}}))
		Expect(c.Departments).To(Equal([]string{"Assembly", "Paint"}))
		Expect(c.IndexSchedule).To(Equal(config.Default().IndexSchedule))
	})

	t.Run("should reject empty lists", func(t *testing.T) {
		path := writeConfig(t, "departments: []\n")
		_, err := config.Load(&config.Options{ConfigPath: path})
		Expect(err).To(MatchError("departments must not be empty"))
	})

	t.Run("should report invalid yaml", func(t *testing.T) {
		path := writeConfig(t, "roles: [")
		_, err := config.Load(&config.Options{ConfigPath: path})
		Expect(err).ToNot(BeNil())
	})
}

func TestApply(t *testing.T) {
	RegisterTestingT(t)
	t.Cleanup(func() {
		authority.Active = authority.New(authority.DefaultRoleTable)
		document.Departments = document.DefaultDepartments
	})

	c := config.Default()
	c.Roles = authority.RoleTable{AdminRole: "Root", ProductionRoles: []string{"Operator"}, ManagerRoles: []string{"Supervisor"}}
	c.Departments = []string{"Assembly"}
	c.Apply()

	Expect(authority.Active.Table().AdminRole).To(Equal("Root"))
	Expect(authority.Active.CanCreate(authority.Principal{Perms: authority.Permissions{"Root"}})).To(BeTrue())
	Expect(document.Departments).To(Equal([]string{"Assembly"}))
}
