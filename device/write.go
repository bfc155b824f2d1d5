package device

import (
	"context"
	"fmt"
	"strings"

	"github.com/swoga/zyxel-webctl/model"
	"go.uber.org/zap"
)

const (
	defaultPortCount = 28
	defaultVLAN      = 1
)

// ConfigurePort changes one port, nil fields of cfg keep their current value.
func (s *Session) ConfigurePort(ctx context.Context, port string, cfg model.PortConfig) (model.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	drv, err := s.begin(ctx)
	if err != nil {
		return model.Failed(err.Error()), err
	}
	return drv.configurePort(ctx, port, cfg)
}

func (s *Session) ConfigureSystem(ctx context.Context, cfg model.SystemConfig) (model.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	drv, err := s.begin(ctx)
	if err != nil {
		return model.Failed(err.Error()), err
	}
	return drv.configureSystem(ctx, cfg)
}

// SetPortVLAN changes PVID, ingress filtering, trunking and frame type of one port.
func (s *Session) SetPortVLAN(ctx context.Context, port string, cfg model.PortVLANConfig) (model.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	drv, err := s.begin(ctx)
	if err != nil {
		return model.Failed(err.Error()), err
	}
	return drv.setPortVLAN(ctx, []string{port}, cfg)
}

// CreateVLAN creates a VLAN, makes its untagged ports use it as PVID and
// verifies the result by reading the VLANs back.
func (s *Session) CreateVLAN(ctx context.Context, cfg model.VLANConfig) (model.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	drv, err := s.begin(ctx)
	if err != nil {
		return model.Failed(err.Error()), err
	}
	return s.createVLAN(ctx, drv, cfg)
}

// EnsureVLAN brings a VLAN to the desired membership, doing nothing when it
// already matches. Ports no longer untagged in the VLAN fall back to PVID 1.
func (s *Session) EnsureVLAN(ctx context.Context, cfg model.VLANConfig) (model.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	drv, err := s.begin(ctx)
	if err != nil {
		return model.Failed(err.Error()), err
	}

	vlans, err := s.vlans(ctx, drv)
	if err != nil {
		return model.Failed(err.Error()), err
	}
	current := findVLAN(vlans, cfg.ID)
	if !cfg.NeedsUpdate(current) {
		return model.Succeeded(fmt.Sprintf("VLAN %d already up to date", cfg.ID)), nil
	}

	if current != nil {
		if cfg.Name == "" {
			cfg.Name = current.Name
		}
		wanted := portSet(cfg.UntaggedPorts)
		var released []string
		for _, p := range current.UntaggedPorts {
			if !wanted[p] {
				released = append(released, p)
			}
		}
		if len(released) > 0 && cfg.ID != defaultVLAN {
			pvid := defaultVLAN
			res, err := drv.setPortVLAN(ctx, released, model.PortVLANConfig{PVID: &pvid})
			if err != nil || !res.Success {
				return res, err
			}
		}
	}
	return s.createVLAN(ctx, drv, cfg)
}

func (s *Session) createVLAN(ctx context.Context, drv driver, cfg model.VLANConfig) (model.Result, error) {
	cfg, err := normalizeVLAN(cfg)
	if err != nil {
		return model.Failed(err.Error()), err
	}
	if cfg.NumPorts == 0 {
		n, err := s.portCount(ctx, drv)
		if err != nil {
			return model.Failed(err.Error()), err
		}
		cfg.NumPorts = n
	}
	for _, p := range append(append([]string(nil), cfg.TaggedPorts...), cfg.UntaggedPorts...) {
		if n := model.PortNumber(p); n < 1 || n > cfg.NumPorts {
			err := fmt.Errorf("port %s outside of 1-%d", p, cfg.NumPorts)
			return model.Failed(err.Error()), err
		}
	}

	res, err := drv.createVLAN(ctx, cfg, cfg.NumPorts)
	if err != nil || !res.Success {
		return res, err
	}

	if len(cfg.UntaggedPorts) > 0 {
		pvid := cfg.ID
		r, err := drv.setPortVLAN(ctx, cfg.UntaggedPorts, model.PortVLANConfig{PVID: &pvid})
		if err != nil || !r.Success {
			return model.Failed(fmt.Sprintf("VLAN %d created, PVID assignment failed: %s", cfg.ID, r.Message)), err
		}
	}

	return s.verifyVLAN(ctx, drv, cfg)
}

// verifyVLAN reads the VLANs back and checks the VLAN carries the requested ports.
func (s *Session) verifyVLAN(ctx context.Context, drv driver, cfg model.VLANConfig) (model.Result, error) {
	vlans, err := s.vlans(ctx, drv)
	if err != nil {
		return model.Failed(err.Error()), err
	}
	v := findVLAN(vlans, cfg.ID)
	if v == nil {
		return model.Failed(fmt.Sprintf("VLAN %d not found after create", cfg.ID)), nil
	}
	if missing := missingPorts(cfg.UntaggedPorts, v.UntaggedPorts); len(missing) > 0 {
		return model.Failed(fmt.Sprintf("VLAN %d lacks untagged ports %s", cfg.ID, strings.Join(missing, ","))), nil
	}
	// nil tagged ports: the device did not report tagged membership
	if missing := missingPorts(cfg.TaggedPorts, v.TaggedPorts); v.TaggedPorts != nil && len(missing) > 0 {
		return model.Failed(fmt.Sprintf("VLAN %d lacks tagged ports %s", cfg.ID, strings.Join(missing, ","))), nil
	}
	return model.Succeeded(fmt.Sprintf("VLAN %d created", cfg.ID)), nil
}

// DeleteVLAN removes a VLAN. A VLAN that does not exist is not an error and
// causes no submission.
func (s *Session) DeleteVLAN(ctx context.Context, id int) (model.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !model.ValidVLANID(id) {
		err := fmt.Errorf("invalid VLAN ID %d", id)
		return model.Failed(err.Error()), err
	}
	drv, err := s.begin(ctx)
	if err != nil {
		return model.Failed(err.Error()), err
	}

	rows, err := drv.vlanRows(ctx)
	if err != nil {
		return model.Failed(err.Error()), err
	}
	row, ok := findRow(rows, id)
	if !ok {
		return model.Succeeded(fmt.Sprintf("VLAN %d does not exist", id)), nil
	}
	s.log.Debug("deleting VLAN", zap.Int("vid", id), zap.String("index", row.Index))

	res, err := drv.deleteVLAN(ctx, row)
	if err != nil || !res.Success {
		return res, err
	}

	rows, err = drv.vlanRows(ctx)
	if err != nil {
		return model.Failed(err.Error()), err
	}
	if _, ok := findRow(rows, id); ok {
		return model.Failed(fmt.Sprintf("failed to delete VLAN %d: still present", id)), nil
	}
	return res, nil
}

// ConfigureLAG changes one link aggregation group, "T1" and "1" name the same group.
func (s *Session) ConfigureLAG(ctx context.Context, group string, cfg model.LAGConfig) (model.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	drv, err := s.begin(ctx)
	if err != nil {
		return model.Failed(err.Error()), err
	}
	return drv.configureLAG(ctx, group, cfg)
}

func (s *Session) ConfigureSyslog(ctx context.Context, cfg model.SyslogConfig) (model.Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	drv, err := s.begin(ctx)
	if err != nil {
		return model.Failed(err.Error()), err
	}
	return drv.configureSyslog(ctx, cfg)
}

// portCount derives the number of ports from the VLAN port settings.
func (s *Session) portCount(ctx context.Context, drv driver) (int, error) {
	settings, err := drv.vlanPortSettings(ctx)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, setting := range settings {
		if n := model.PortNumber(setting.Port); n > count {
			count = n
		}
	}
	if count == 0 {
		return defaultPortCount, nil
	}
	return count, nil
}

// normalizeVLAN validates the VLAN ID and removes duplicate ports.
func normalizeVLAN(cfg model.VLANConfig) (model.VLANConfig, error) {
	if !model.ValidVLANID(cfg.ID) {
		return cfg, fmt.Errorf("invalid VLAN ID %d", cfg.ID)
	}
	cfg.TaggedPorts = setToPorts(portSet(cfg.TaggedPorts))
	cfg.UntaggedPorts = setToPorts(portSet(cfg.UntaggedPorts))

	tagged := portSet(cfg.TaggedPorts)
	for _, p := range cfg.UntaggedPorts {
		if tagged[p] {
			return cfg, fmt.Errorf("port %s cannot be tagged and untagged in VLAN %d", p, cfg.ID)
		}
	}
	return cfg, nil
}

func missingPorts(wanted, actual []string) []string {
	have := portSet(actual)
	var missing []string
	for _, p := range wanted {
		if !have[p] {
			missing = append(missing, p)
		}
	}
	return missing
}
