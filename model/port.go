package model

import (
	"sort"
	"strconv"
)

type LinkStatus string

const (
	LinkUp      LinkStatus = "up"
	LinkDown    LinkStatus = "down"
	LinkUnknown LinkStatus = "unknown"
)

// Speed is a port speed setting as understood by the port forms.
type Speed string

const (
	SpeedAuto     Speed = "auto"
	Speed10MHalf  Speed = "10m-half"
	Speed10MFull  Speed = "10m-full"
	Speed100MHalf Speed = "100m-half"
	Speed100MFull Speed = "100m-full"
	Speed1GFull   Speed = "1g-full"
)

type Port struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Enabled     bool       `json:"enabled"`
	LinkStatus  LinkStatus `json:"link_status"`
	Speed       Speed      `json:"speed"`
	Duplex      string     `json:"duplex,omitempty"`
	FlowControl bool       `json:"flow_control"`
}

// PortConfig holds the requested changes for one port, nil fields are left unchanged.
type PortConfig struct {
	Enabled *bool   `json:"enabled,omitempty" yaml:"enabled,omitempty"`
	Name    *string `json:"name,omitempty" yaml:"name,omitempty"`
	Speed   *Speed  `json:"speed,omitempty" yaml:"speed,omitempty"`
}

// PortNumber returns the numeric value of a port identifier, 0 if it is not numeric.
func PortNumber(id string) int {
	n, err := strconv.Atoi(id)
	if err != nil {
		return 0
	}
	return n
}

// SortPorts sorts port identifiers numerically in place.
func SortPorts(ids []string) {
	sort.Slice(ids, func(i, j int) bool {
		a, b := PortNumber(ids[i]), PortNumber(ids[j])
		if a != b {
			return a < b
		}
		return ids[i] < ids[j]
	})
}
