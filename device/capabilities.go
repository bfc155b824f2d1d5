package device

import (
	"context"

	"github.com/swoga/zyxel-webctl/model"
)

type DeviceInfo struct {
	NetworkOS string `json:"network_os"`
	Platform  string `json:"network_os_platform"`
	Model     string `json:"model"`
}

type Capabilities struct {
	RPC              []string        `json:"rpc"`
	NetworkAPI       string          `json:"network_api"`
	DeviceInfo       DeviceInfo      `json:"device_info"`
	DeviceOperations map[string]bool `json:"device_operations"`
}

var deviceOperations = []string{
	"supports_commit",
	"supports_replace",
	"supports_rollback",
	"supports_defaults",
	"supports_onbox_diff",
	"supports_generate_diff",
	"supports_multiline_delimiter",
	"supports_diff_match",
	"supports_diff_ignore_lines",
	"supports_config_replace",
	"supports_admin",
	"supports_commit_comment",
}

// CapabilitiesFor describes a dialect. None of the advanced device operations exist on these switches.
func CapabilitiesFor(dialect model.Dialect) Capabilities {
	ops := make(map[string]bool, len(deviceOperations))
	for _, op := range deviceOperations {
		ops[op] = false
	}
	return Capabilities{
		RPC:        []string{"get_page", "post_form", "get_system_info", "get_ports_info", "get_vlans_info"},
		NetworkAPI: "httpapi",
		DeviceInfo: DeviceInfo{
			NetworkOS: "zyxel",
			Platform:  string(dialect),
			Model:     string(dialect),
		},
		DeviceOperations: ops,
	}
}

func (s *Session) Capabilities(ctx context.Context) Capabilities {
	return CapabilitiesFor(s.Dialect(ctx))
}
