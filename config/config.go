package config

import (
	"fmt"
	"os"
	"time"

	"github.com/swoga/zyxel-webctl/device"
	"github.com/swoga/zyxel-webctl/model"
)

const (
	envUsername = "ZYXEL_USERNAME"
	envPassword = "ZYXEL_PASSWORD"
)

type Config struct {
	Listen      string             `yaml:"listen"`
	ProbePath   string             `yaml:"probe_path"`
	MetricsPath string             `yaml:"metrics_path"`
	Timeout     float64            `yaml:"timeout"`
	Devices     map[string]*Device `yaml:"devices"`
	Global      Global             `yaml:"global"`
}

func DefaultConfig() Config {
	return Config{
		Listen:      ":9778",
		ProbePath:   "/probe",
		MetricsPath: "/metrics",
		Timeout:     60,
		Global: Global{
			Options: DefaultOptions(),
		},
	}
}

func DefaultOptions() Options {
	return Options{
		ExportPorts:    true,
		ExportVLANs:    true,
		ExportPortVLAN: false,
	}
}

func (c *Config) UnmarshalYAML(unmarshal func(interface{}) error) error {
	*c = DefaultConfig()

	type plain Config
	if err := unmarshal((*plain)(c)); err != nil {
		return err
	}

	// credentials from the environment win over the file
	if v := os.Getenv(envUsername); v != "" {
		c.Global.Username = v
	}
	if v := os.Getenv(envPassword); v != "" {
		c.Global.Password = v
	}
	if _, err := model.ParseDialect(c.Global.Dialect); err != nil {
		return fmt.Errorf("global: %w", err)
	}

	for name, device := range c.Devices {
		if device == nil {
			return fmt.Errorf("device %s: empty definition", name)
		}
		if device.Address == "" {
			return fmt.Errorf("device %s: address missing", name)
		}
		if device.Username == nil {
			device.Username = &c.Global.Username
		}
		if device.Password == nil {
			device.Password = &c.Global.Password
		}
		if device.Dialect == "" {
			device.Dialect = c.Global.Dialect
		}
		if _, err := model.ParseDialect(device.Dialect); err != nil {
			return fmt.Errorf("device %s: %w", name, err)
		}
		if device.Options == nil {
			device.Options = &c.Global.Options
		}
	}

	return nil
}

type Global struct {
	Username string  `yaml:"username"`
	Password string  `yaml:"password"`
	Dialect  string  `yaml:"dialect"`
	Options  Options `yaml:"options"`
}

type Options struct {
	ExportPorts    bool `yaml:"export_ports"`
	ExportVLANs    bool `yaml:"export_vlans"`
	ExportPortVLAN bool `yaml:"export_port_vlan"`
}

func (o *Options) UnmarshalYAML(unmarshal func(interface{}) error) error {
	*o = DefaultOptions()

	type plain Options
	if err := unmarshal((*plain)(o)); err != nil {
		return err
	}

	return nil
}

type Device struct {
	Address  string   `yaml:"address"`
	Username *string  `yaml:"username"`
	Password *string  `yaml:"password"`
	Dialect  string   `yaml:"dialect"`
	Options  *Options `yaml:"options"`
}

// SessionOptions builds the options of a device session, the dialect was validated on load.
func (d *Device) SessionOptions(timeout time.Duration) device.Options {
	dialect, _ := model.ParseDialect(d.Dialect)
	return device.Options{
		Address:  d.Address,
		Username: *d.Username,
		Password: *d.Password,
		Dialect:  dialect,
		Timeout:  timeout,
	}
}
