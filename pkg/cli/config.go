package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"

	"github.com/goccy/go-yaml"
)

const (
	// DefaultBaseDir is the base configuration directory name
	DefaultBaseDir = ".medstudy"
	// DefaultConfigFile is the default configuration filename
	DefaultConfigFile = "config.yaml"
)

// Config is the on-disk CLI configuration.
type Config struct {
	// CurrentContext is the name of the currently active context
	CurrentContext string `yaml:"current_context,omitempty"`

	// Contexts is a map of context name to context configuration
	Contexts map[string]*Context `yaml:"contexts,omitempty"`

	configPath string
}

// Context is one named deployment of the registry.
type Context struct {
	Name string `yaml:"name"`

	// DB is the durable tier URL (badger://, sqlite:// or memory://).
	DB string `yaml:"db,omitempty"`

	// Rehydrate loads durable records into memory when the registry opens.
	Rehydrate bool `yaml:"rehydrate,omitempty"`

	// Export is the snapshot target (file:///dir or s3://bucket/prefix).
	Export string `yaml:"export,omitempty"`

	S3Region   string `yaml:"s3_region,omitempty"`
	S3Endpoint string `yaml:"s3_endpoint,omitempty"`
}

// ContextKeys lists the keys accepted by Context.Set.
var ContextKeys = []string{"db", "rehydrate", "export", "s3_region", "s3_endpoint"}

// LoadConfig loads the configuration at path, or at ~/.medstudy/config.yaml
// when path is empty. A missing file yields an empty config that is created
// on the first Save.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		p, err := NewPaths()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		path = p.ConfigFile()
	}

	cfg := &Config{
		Contexts:   make(map[string]*Context),
		configPath: path,
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Contexts == nil {
		cfg.Contexts = make(map[string]*Context)
	}
	cfg.configPath = path

	return cfg, nil
}

// Save writes the configuration to disk, creating its directory.
func (c *Config) Save() error {
	if err := os.MkdirAll(filepath.Dir(c.configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(c.configPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// Path returns the config file path
func (c *Config) Path() string {
	return c.configPath
}

// AddContext adds or replaces a context. The first context added becomes
// current.
func (c *Config) AddContext(name string, ctx *Context) error {
	ctx.Name = name
	c.Contexts[name] = ctx
	if c.CurrentContext == "" {
		c.CurrentContext = name
	}
	return c.Save()
}

// DeleteContext removes a context
func (c *Config) DeleteContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	delete(c.Contexts, name)
	if c.CurrentContext == name {
		c.CurrentContext = ""
	}
	return c.Save()
}

// UseContext sets the current context
func (c *Config) UseContext(name string) error {
	if _, ok := c.Contexts[name]; !ok {
		return fmt.Errorf("context %q not found", name)
	}
	c.CurrentContext = name
	return c.Save()
}

// GetContext returns a specific context
func (c *Config) GetContext(name string) (*Context, error) {
	ctx, ok := c.Contexts[name]
	if !ok {
		return nil, fmt.Errorf("context %q not found", name)
	}
	return ctx, nil
}

// ResolveContext returns the named context, the current context when name
// is empty, or an empty context when nothing is configured.
func (c *Config) ResolveContext(name string) (*Context, error) {
	if name != "" {
		return c.GetContext(name)
	}
	if c.CurrentContext == "" {
		return &Context{}, nil
	}
	return c.GetContext(c.CurrentContext)
}

// ListContexts returns all context names, sorted.
func (c *Config) ListContexts() []string {
	names := make([]string, 0, len(c.Contexts))
	for name := range c.Contexts {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Set assigns one of ContextKeys from its string form.
func (ctx *Context) Set(key, value string) error {
	switch key {
	case "db":
		ctx.DB = value
	case "rehydrate":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("rehydrate: %w", err)
		}
		ctx.Rehydrate = b
	case "export":
		ctx.Export = value
	case "s3_region":
		ctx.S3Region = value
	case "s3_endpoint":
		ctx.S3Endpoint = value
	default:
		return fmt.Errorf("unknown key %q (valid: %v)", key, ContextKeys)
	}
	return nil
}
