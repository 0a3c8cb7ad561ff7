package view

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// MQTTConfig holds MQTT connection settings.
type MQTTConfig struct {
	Broker        string `yaml:"broker" json:"broker"`
	SnapshotTopic string `yaml:"snapshotTopic" json:"snapshotTopic"`
	PublishPrefix string `yaml:"publishPrefix" json:"publishPrefix"`
	ClientID      string `yaml:"clientId" json:"clientId"`
	Username      string `yaml:"username,omitempty" json:"username,omitempty"`
	Password      string `yaml:"password,omitempty" json:"password,omitempty"`
}

// RenderConfig holds diagram and strip rendering settings.
type RenderConfig struct {
	Zoom        bool    `yaml:"zoom" json:"zoom"`
	ViewRadius  float64 `yaml:"viewRadius,omitempty" json:"viewRadius,omitempty"`   // world units around agents when zoomed
	FOVDistance float64 `yaml:"fovDistance,omitempty" json:"fovDistance,omitempty"` // outer wedge radius
	AgentRadius float64 `yaml:"agentRadius,omitempty" json:"agentRadius,omitempty"`
	Resolution  float64 `yaml:"resolution,omitempty" json:"resolution,omitempty"` // PNG DPI
	WidthMM     float64 `yaml:"widthMM,omitempty" json:"widthMM,omitempty"`
	StripScale  int     `yaml:"stripScale,omitempty" json:"stripScale,omitempty"`
}

// Config represents the full configuration file.
type Config struct {
	MQTT   MQTTConfig   `yaml:"mqtt" json:"mqtt"`
	Render RenderConfig `yaml:"render" json:"render"`
}

// DefaultRenderConfig returns the settings used when the file omits them.
func DefaultRenderConfig() RenderConfig {
	return RenderConfig{
		ViewRadius:  ViewRadius,
		FOVDistance: 1,
		AgentRadius: AgentRadius,
		Resolution:  150,
		WidthMM:     120,
		StripScale:  4,
	}
}

// Options converts the render settings into PlotCore options.
func (rc RenderConfig) Options() RenderOptions {
	opts := DefaultRenderOptions()
	opts.Zoom = rc.Zoom
	if rc.ViewRadius > 0 {
		opts.ViewRadius = rc.ViewRadius
	}
	if rc.FOVDistance > 0 {
		opts.FOVDistance = rc.FOVDistance
	}
	if rc.AgentRadius > 0 {
		opts.AgentRadius = rc.AgentRadius
	}
	return opts
}

// applyDefaults fills zero-valued render settings.
func (rc *RenderConfig) applyDefaults() {
	def := DefaultRenderConfig()
	if rc.ViewRadius == 0 {
		rc.ViewRadius = def.ViewRadius
	}
	if rc.FOVDistance == 0 {
		rc.FOVDistance = def.FOVDistance
	}
	if rc.AgentRadius == 0 {
		rc.AgentRadius = def.AgentRadius
	}
	if rc.Resolution == 0 {
		rc.Resolution = def.Resolution
	}
	if rc.WidthMM == 0 {
		rc.WidthMM = def.WidthMM
	}
	if rc.StripScale == 0 {
		rc.StripScale = def.StripScale
	}
}

// LoadConfig loads the configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	config.Render.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// Validate checks field ranges. MQTT settings are only required when a broker is set.
func (c *Config) Validate() error {
	if c.MQTT.Broker != "" && c.MQTT.SnapshotTopic == "" {
		return fmt.Errorf("mqtt.snapshotTopic is required when mqtt.broker is set")
	}
	if c.Render.ViewRadius < 0 {
		return fmt.Errorf("render.viewRadius must be positive, got %g", c.Render.ViewRadius)
	}
	if c.Render.FOVDistance < c.Render.AgentRadius {
		return fmt.Errorf("render.fovDistance (%g) must not be less than render.agentRadius (%g)",
			c.Render.FOVDistance, c.Render.AgentRadius)
	}
	if c.Render.Resolution < 0 || c.Render.WidthMM < 0 || c.Render.StripScale < 0 {
		return fmt.Errorf("render sizes must not be negative")
	}
	return nil
}

// SaveConfig saves the configuration to a YAML file.
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
