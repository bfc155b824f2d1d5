package device

import (
	"context"
	"sort"

	"github.com/swoga/zyxel-webctl/extract"
	"github.com/swoga/zyxel-webctl/model"
)

func (s *Session) SystemInfo(ctx context.Context) (*model.SystemInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	drv, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	return s.systemInfo(ctx, drv)
}

func (s *Session) systemInfo(ctx context.Context, drv driver) (*model.SystemInfo, error) {
	info, err := drv.systemInfo(ctx)
	if err != nil {
		return nil, err
	}
	if info.Firmware != "" {
		s.firmware = info.Firmware
	}
	return info, nil
}

// Ports returns the ports sorted by number.
func (s *Session) Ports(ctx context.Context) ([]model.Port, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	drv, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	return drv.ports(ctx)
}

func (s *Session) VLANPortSettings(ctx context.Context) ([]model.PortVLANSetting, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	drv, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	return drv.vlanPortSettings(ctx)
}

// VLANs returns all VLANs sorted by ID. Untagged membership is derived from
// the port PVIDs on every call.
func (s *Session) VLANs(ctx context.Context) ([]model.VLAN, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	drv, err := s.begin(ctx)
	if err != nil {
		return nil, err
	}
	return s.vlans(ctx, drv)
}

func (s *Session) vlans(ctx context.Context, drv driver) ([]model.VLAN, error) {
	rows, err := drv.vlanRows(ctx)
	if err != nil {
		return nil, err
	}
	settings, err := drv.vlanPortSettings(ctx)
	if err != nil {
		return nil, err
	}
	tagged, err := drv.taggedPorts(ctx)
	if err != nil {
		return nil, err
	}
	return joinVLANs(rows, settings, tagged), nil
}

// joinVLANs makes every VLAN's untagged ports exactly the ports whose PVID
// names it. Ports with a PVID of an unknown VLAN belong nowhere. A nil tagged
// map means tagged membership is unknown and leaves TaggedPorts nil.
func joinVLANs(rows []extract.TagRow, settings []model.PortVLANSetting, tagged map[int][]string) []model.VLAN {
	byID := map[int]*model.VLAN{}
	var ids []int
	for _, row := range rows {
		if _, ok := byID[row.VID]; ok {
			continue
		}
		byID[row.VID] = &model.VLAN{
			ID:            row.VID,
			Name:          row.Name,
			Active:        row.Active,
			UntaggedPorts: []string{},
		}
		ids = append(ids, row.VID)
	}

	untagged := map[int]map[string]bool{}
	for _, setting := range settings {
		if _, ok := byID[setting.PVID]; !ok {
			continue
		}
		if untagged[setting.PVID] == nil {
			untagged[setting.PVID] = map[string]bool{}
		}
		untagged[setting.PVID][setting.Port] = true
	}

	sort.Ints(ids)
	vlans := make([]model.VLAN, 0, len(ids))
	for _, id := range ids {
		v := byID[id]
		v.UntaggedPorts = setToPorts(untagged[id])
		if tagged != nil {
			v.TaggedPorts = setToPorts(portSet(tagged[id]))
		}
		vlans = append(vlans, *v)
	}
	return vlans
}

func findVLAN(vlans []model.VLAN, id int) *model.VLAN {
	for i := range vlans {
		if vlans[i].ID == id {
			return &vlans[i]
		}
	}
	return nil
}

func findRow(rows []extract.TagRow, id int) (extract.TagRow, bool) {
	for _, row := range rows {
		if row.VID == id {
			return row, true
		}
	}
	return extract.TagRow{}, false
}

func portSet(ports []string) map[string]bool {
	set := map[string]bool{}
	for _, p := range ports {
		set[p] = true
	}
	return set
}

func setToPorts(set map[string]bool) []string {
	ports := make([]string, 0, len(set))
	for p := range set {
		ports = append(ports, p)
	}
	model.SortPorts(ports)
	return ports
}

func addKeys[V any](set map[string]struct{}, m map[string]V) {
	for k := range m {
		set[k] = struct{}{}
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	model.SortPorts(keys)
	return keys
}
