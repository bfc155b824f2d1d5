package model

import "sort"

const (
	MinVLANID = 1
	MaxVLANID = 4094
)

type VLAN struct {
	ID            int      `json:"id"`
	Name          string   `json:"name"`
	Active        bool     `json:"active"`
	TaggedPorts   []string `json:"tagged_ports"`
	UntaggedPorts []string `json:"untagged_ports"`
}

// ValidVLANID reports whether id is inside the 802.1Q range usable on the switches.
func ValidVLANID(id int) bool {
	return id >= MinVLANID && id <= MaxVLANID
}

type FrameType string

const (
	FrameAll          FrameType = "all"
	FrameTaggedOnly   FrameType = "tagged_only"
	FrameUntaggedOnly FrameType = "untagged_only"
)

// PortVLANSetting is the per-port VLAN configuration, PVID defaults to 1.
type PortVLANSetting struct {
	Port                string    `json:"port"`
	PVID                int       `json:"pvid"`
	IngressFiltering    bool      `json:"ingress_filtering"`
	VLANTrunking        bool      `json:"vlan_trunking"`
	AcceptableFrameType FrameType `json:"acceptable_frame_type"`
}

// PortVLANConfig holds the requested VLAN changes for one port, nil fields are left unchanged.
type PortVLANConfig struct {
	PVID                *int       `json:"pvid,omitempty" yaml:"pvid,omitempty"`
	IngressFiltering    *bool      `json:"ingress_filtering,omitempty" yaml:"ingress_filtering,omitempty"`
	VLANTrunking        *bool      `json:"vlan_trunking,omitempty" yaml:"vlan_trunking,omitempty"`
	AcceptableFrameType *FrameType `json:"acceptable_frame_type,omitempty" yaml:"acceptable_frame_type,omitempty"`
}

type VLANConfig struct {
	ID            int      `json:"id" yaml:"id"`
	Name          string   `json:"name,omitempty" yaml:"name,omitempty"`
	TaggedPorts   []string `json:"tagged_ports,omitempty" yaml:"tagged_ports,omitempty"`
	UntaggedPorts []string `json:"untagged_ports,omitempty" yaml:"untagged_ports,omitempty"`
	// NumPorts is the number of ports on the switch, derived from the device when 0.
	NumPorts int `json:"num_ports,omitempty" yaml:"num_ports,omitempty"`
}

// NeedsUpdate reports whether the desired VLAN differs from current (nil means absent).
// An empty desired name leaves the name alone.
func (c VLANConfig) NeedsUpdate(current *VLAN) bool {
	if current == nil {
		return true
	}
	if c.Name != "" && c.Name != current.Name {
		return true
	}
	if !samePorts(c.TaggedPorts, current.TaggedPorts) {
		return true
	}
	return !samePorts(c.UntaggedPorts, current.UntaggedPorts)
}

func samePorts(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x := append([]string(nil), a...)
	y := append([]string(nil), b...)
	sort.Strings(x)
	sort.Strings(y)
	for i := range x {
		if x[i] != y[i] {
			return false
		}
	}
	return true
}

// LAGConfig describes one link aggregation group, nil fields are left unchanged.
type LAGConfig struct {
	Enabled  *bool    `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Members  []string `json:"members,omitempty" yaml:"members,omitempty"`
	Criteria *string  `json:"criteria,omitempty" yaml:"criteria,omitempty"`
}
