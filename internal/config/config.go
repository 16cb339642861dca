package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config models stagegate.yml.
type Config struct {
	Project struct {
		ID   string `yaml:"id"`
		Kind string `yaml:"kind"`
	} `yaml:"project"`
	Server struct {
		Addr      string `yaml:"addr"`
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"server"`
	Mail struct {
		From string `yaml:"from"`
		// Templates maps event keys to mail template ids. A matched rule
		// whose event key has no template here is skipped with a warning.
		Templates    map[string]string `yaml:"templates"`
		PollInterval string            `yaml:"poll_interval"`
	} `yaml:"mail"`
	Roles map[string]struct {
		Description string `yaml:"description"`
	} `yaml:"roles"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; create with sg config init", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Project.ID == "" {
		return fmt.Errorf("config.project.id is required")
	}
	if c.Project.Kind != "workpackage-tracker" {
		return fmt.Errorf("config.project.kind must be 'workpackage-tracker'")
	}
	if c.Mail.From == "" {
		return fmt.Errorf("config.mail.from is required")
	}
	if c.Mail.PollInterval != "" {
		if _, err := time.ParseDuration(c.Mail.PollInterval); err != nil {
			return fmt.Errorf("config.mail.poll_interval %q: %w", c.Mail.PollInterval, err)
		}
	}
	for key, tmpl := range c.Mail.Templates {
		if key == "" {
			return fmt.Errorf("config.mail.templates contains empty event key")
		}
		if tmpl == "" {
			return fmt.Errorf("config.mail.templates.%s is empty", key)
		}
	}
	for roleID := range c.Roles {
		if roleID == "" {
			return fmt.Errorf("config.roles contains empty role id")
		}
	}
	return nil
}

// TemplateFor returns the mail template id for an event key, if configured.
func (c *Config) TemplateFor(eventKey string) (string, bool) {
	tmpl, ok := c.Mail.Templates[eventKey]
	return tmpl, ok
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "stagegate.yml")
}

// GenerateDefault returns default config YAML.
func GenerateDefault(projectID string) string {
	return fmt.Sprintf(defaultTemplate, projectID)
}

// LoadOptional returns nil,nil if the config file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Default returns the default Config struct for a project.
func Default(projectID string) *Config {
	cfg, err := FromYAML([]byte(fmt.Sprintf(defaultTemplate, projectID)))
	if err != nil {
		panic(fmt.Sprintf("default config invalid: %v", err))
	}
	return cfg
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// FromFile reads YAML config from the given path.
func FromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return FromYAML(data)
}

const defaultTemplate = `project:
  id: %s
  kind: workpackage-tracker

server:
  addr: ":8080"
  jwt_secret: ""

mail:
  from: stagegate@localhost
  poll_interval: 10s
  templates:
    workpackage.created: tmpl-workpackage-created
    workpackage.stage_changed: tmpl-stage-changed
    workpackage.cancelled: tmpl-workpackage-cancelled
    feasibility.approved: tmpl-feasibility-approved
    feasibility.rejected: tmpl-feasibility-rejected
    scoping.submitted: tmpl-scoping-submitted
    scheduling.submitted_to_dcgg: tmpl-scheduling-submitted
    scheduling.scheduled: tmpl-scheduling-scheduled
    testing.uat_requested: tmpl-uat-requested
    testing.uat_accepted: tmpl-uat-accepted
    testing.uat_rejected: tmpl-uat-rejected
    testing.service_acceptance_requested: tmpl-service-acceptance-requested
    testing.submitted: tmpl-testing-submitted
    deployment.service_accepted: tmpl-deployment-service-accepted
    deployment.approved: tmpl-deployment-approved

roles:
  service-leads:
    description: "Service delivery leads"
  change-board:
    description: "Design and change governance group"
  testers:
    description: "UAT testers"
  admins:
    description: "Workflow administrators"
`
