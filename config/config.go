package config

import (
	"docflow/authority"
	"docflow/domain/document"
	"docflow/indices"
	"fmt"
	"io/ioutil"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

const DefaultListenAddr = ":80"

// Config is the service configuration file. Connection settings stay in the environment.
type Config struct {
	Listen        string              `yaml:"listen"`
	Roles         authority.RoleTable `yaml:"roles"`
	Departments   []string            `yaml:"departments"`
	IndexSchedule string              `yaml:"indexSchedule"`
}

type Options struct {
	ConfigPath string
	Listen     string
}

func Default() *Config {
	return &Config{
		Listen:        DefaultListenAddr,
		Roles:         authority.DefaultRoleTable,
		Departments:   document.DefaultDepartments,
		IndexSchedule: indices.DefaultSyncSchedule,
	}
}

// ParseFlags reads --config and --listen, falling back to DOCFLOW_CONFIG and LISTEN_ADDR.
func ParseFlags(args []string) (*Options, error) {
	opts := &Options{}
	flagSet := pflag.NewFlagSet("docflow", pflag.ContinueOnError)
	flagSet.StringVar(&opts.ConfigPath, "config", os.Getenv("DOCFLOW_CONFIG"), "path to the yaml configuration file")
	flagSet.StringVar(&opts.Listen, "listen", os.Getenv("LISTEN_ADDR"), "address the http server listens on")
	if err := flagSet.Parse(args); err != nil {
		return nil, err
	}
	return opts, nil
}

// Load reads the file over the defaults, keys absent from the file keep their default value.
func Load(opts *Options) (*Config, error) {
	c := Default()
	if opts.ConfigPath != "" {
		content, err := ioutil.ReadFile(opts.ConfigPath)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", opts.ConfigPath, err)
		}
		if err := yaml.Unmarshal(content, c); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", opts.ConfigPath, err)
		}
	}
	if opts.Listen != "" {
		c.Listen = opts.Listen
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Config) validate() error {
	if len(c.Roles.ProductionRoles) == 0 {
		return fmt.Errorf("roles.productionRoles must not be empty")
	}
	if len(c.Roles.ManagerRoles) == 0 {
		return fmt.Errorf("roles.managerRoles must not be empty")
	}
	if len(c.Departments) == 0 {
		return fmt.Errorf("departments must not be empty")
	}
	return nil
}

// Apply installs the role table and the department list.
func (c *Config) Apply() {
	authority.Active = authority.New(c.Roles)
	document.Departments = c.Departments
	logrus.WithFields(logrus.Fields{
		"adminRole":   authority.Active.Table().AdminRole,
		"departments": len(c.Departments),
	}).Info("configuration applied")
}
