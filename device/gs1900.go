package device

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/swoga/zyxel-webctl/extract"
	"github.com/swoga/zyxel-webctl/form"
	"github.com/swoga/zyxel-webctl/model"
)

const (
	dispatcher = "/cgi-bin/dispatcher.cgi"
	tokenField = "XSSID"

	cmdSystem         = 512
	cmdPorts          = 768
	cmdVLANDelete     = 1282
	cmdVLANList       = 1283
	cmdVLANAdd        = 1284
	cmdVLANAddSubmit  = 1285
	cmdPortVLANList   = 1290
	cmdPortVLANEdit   = 1291
	cmdPortVLANSubmit = 1292

	portCheckbox      = "port"
	gs1900PortColumns = 7
	gs1900VLANColumns = 5
)

var numericPage = regexp.MustCompile(`^\d+$`)

func cmdPath(cmd int) string {
	return fmt.Sprintf("%s?cmd=%d", dispatcher, cmd)
}

type gs1900 struct {
	s *Session
}

func newGS1900(s *Session) driver {
	return &gs1900{s: s}
}

func (d *gs1900) login(ctx context.Context) error {
	fields := []form.Field{
		{Name: "username", Value: d.s.username},
		{Name: "password", Value: EncodePassword(d.s.password)},
		{Name: "login", Value: "true"},
	}
	status, body, err := d.s.client.Post(ctx, dispatcher, fields)
	if err != nil {
		return err
	}
	if status != 200 {
		return fmt.Errorf("%w: HTTP %d", ErrLoginFailed, status)
	}
	d.s.authID = strings.TrimSpace(body)

	verify := []form.Field{
		{Name: "authId", Value: d.s.authID},
		{Name: "login_chk", Value: "true"},
	}
	_, body, err = d.s.client.Post(ctx, dispatcher, verify)
	if err != nil {
		return err
	}
	if !strings.Contains(body, "OK") {
		return fmt.Errorf("%w: verification rejected", ErrLoginFailed)
	}
	return nil
}

// token renders the form of cmd and scrapes its single-use anti-replay token.
func (d *gs1900) token(ctx context.Context, cmd int) (string, string, error) {
	content, err := d.s.fetch(ctx, cmdPath(cmd))
	if err != nil {
		return "", "", err
	}
	token, ok := extract.Token(content, tokenField)
	if !ok {
		return "", content, fmt.Errorf("%w: cmd %d", ErrMissingToken, cmd)
	}
	return token, content, nil
}

// mutate scrapes the token of form and submits fields to the dispatcher as cmd.
func (d *gs1900) mutate(ctx context.Context, formCmd, cmd int, fields []form.Field) (bool, int, error) {
	token, _, err := d.token(ctx, formCmd)
	if err != nil {
		return false, 0, err
	}
	payload := append([]form.Field{
		{Name: "cmd", Value: strconv.Itoa(cmd)},
		{Name: tokenField, Value: token},
	}, fields...)
	return d.s.submit(ctx, dispatcher, payload)
}

func (d *gs1900) systemInfo(ctx context.Context) (*model.SystemInfo, error) {
	content, err := d.s.fetch(ctx, cmdPath(cmdSystem))
	if err != nil {
		return nil, err
	}
	return d.parseSystemInfo(content), nil
}

func (d *gs1900) parseSystemInfo(content string) *model.SystemInfo {
	info := &model.SystemInfo{
		Model:   string(model.DialectGS1900),
		Dialect: model.DialectGS1900,
	}
	if fields := extract.Inputs(content, "system_name"); len(fields) > 0 {
		info.Hostname = fields[0].Value
	}
	if v, ok := extract.LabelCell(content, "Firmware Version"); ok {
		info.Firmware = v
	}
	if v, ok := extract.LabelCell(content, "MAC Address"); ok {
		info.MACAddress = v
	}
	return info
}

func (d *gs1900) ports(ctx context.Context) ([]model.Port, error) {
	content, err := d.s.fetch(ctx, cmdPath(cmdPorts))
	if err != nil {
		return nil, err
	}
	return parseGS1900Ports(content), nil
}

// parseGS1900Ports reads rows of port, name, state, link, speed, duplex, flow control.
func parseGS1900Ports(content string) []model.Port {
	var ports []model.Port
	for _, row := range extract.CheckboxRows(content, portCheckbox, gs1900PortColumns) {
		c := row.Cells
		p := model.Port{
			ID:          row.Key,
			Name:        c[1],
			Enabled:     strings.EqualFold(c[2], "enable"),
			LinkStatus:  model.LinkUnknown,
			Speed:       model.Speed(strings.ToLower(c[4])),
			Duplex:      strings.ToLower(c[5]),
			FlowControl: strings.EqualFold(c[6], "enable"),
		}
		switch strings.ToLower(c[3]) {
		case "up":
			p.LinkStatus = model.LinkUp
		case "down":
			p.LinkStatus = model.LinkDown
		}
		ports = append(ports, p)
	}
	return ports
}

func (d *gs1900) vlanRows(ctx context.Context) ([]extract.TagRow, error) {
	content, err := d.s.fetch(ctx, cmdPath(cmdVLANList)+"&pageindex=1")
	if err != nil {
		return nil, err
	}
	return extract.TypedVLANRows(content), nil
}

func (d *gs1900) vlanPortSettings(ctx context.Context) ([]model.PortVLANSetting, error) {
	content, err := d.s.fetch(ctx, cmdPath(cmdPortVLANList))
	if err != nil {
		return nil, err
	}
	return parseGS1900PortVLAN(content), nil
}

// parseGS1900PortVLAN reads rows of port, PVID, frame type, ingress check, trunking.
func parseGS1900PortVLAN(content string) []model.PortVLANSetting {
	var settings []model.PortVLANSetting
	for _, row := range extract.CheckboxRows(content, portCheckbox, gs1900VLANColumns) {
		c := row.Cells
		s := model.PortVLANSetting{
			Port:                row.Key,
			PVID:                1,
			AcceptableFrameType: model.FrameAll,
			IngressFiltering:    strings.EqualFold(c[3], "enable"),
			VLANTrunking:        strings.EqualFold(c[4], "enable"),
		}
		if pvid, err := strconv.Atoi(c[1]); err == nil {
			s.PVID = pvid
		}
		if frame, ok := gs1900FrameLabels[strings.ToLower(c[2])]; ok {
			s.AcceptableFrameType = frame
		}
		settings = append(settings, s)
	}
	return settings
}

// taggedPorts is not available, the VLAN list only carries VID and name.
func (d *gs1900) taggedPorts(ctx context.Context) (map[int][]string, error) {
	return nil, nil
}

// configurePort submits the current record of the port with the changes applied.
func (d *gs1900) configurePort(ctx context.Context, port string, cfg model.PortConfig) (model.Result, error) {
	if cfg.Speed != nil {
		return unsupported(model.DialectGS1900, "port speed")
	}
	token, content, err := d.token(ctx, cmdPorts)
	if err != nil {
		return model.Failed(err.Error()), err
	}
	var current *model.Port
	for _, p := range parseGS1900Ports(content) {
		if p.ID == port {
			p := p
			current = &p
			break
		}
	}
	if current == nil {
		return model.Failed(fmt.Sprintf("port %s not found", port)), nil
	}

	enabled, name := current.Enabled, current.Name
	if cfg.Enabled != nil {
		enabled = *cfg.Enabled
	}
	if cfg.Name != nil {
		name = *cfg.Name
	}
	fields := []form.Field{
		{Name: "cmd", Value: strconv.Itoa(cmdPorts)},
		{Name: tokenField, Value: token},
		{Name: "port", Value: port},
		{Name: "state", Value: boolFlag(enabled)},
		{Name: "desc", Value: name},
	}

	ok, status, err := d.s.submit(ctx, dispatcher, fields)
	if err != nil {
		return model.Failed(err.Error()), err
	}
	if !ok {
		return rejection("configure port "+port, status), nil
	}
	return model.Succeeded(fmt.Sprintf("port %s configured", port)), nil
}

func (d *gs1900) configureSystem(ctx context.Context, cfg model.SystemConfig) (model.Result, error) {
	if cfg.NTPServers != nil {
		return unsupported(model.DialectGS1900, "NTP servers")
	}
	if cfg.Timezone != nil {
		return unsupported(model.DialectGS1900, "timezone")
	}

	token, content, err := d.token(ctx, cmdSystem)
	if err != nil {
		return model.Failed(err.Error()), err
	}
	values := map[string]string{}
	for _, f := range extract.Inputs(content, "system_(name|location|contact)") {
		values[f.Name] = f.Value
	}
	if cfg.Hostname != nil {
		values["system_name"] = *cfg.Hostname
	}
	if cfg.Location != nil {
		values["system_location"] = *cfg.Location
	}
	if cfg.Contact != nil {
		values["system_contact"] = *cfg.Contact
	}

	fields := []form.Field{
		{Name: "cmd", Value: strconv.Itoa(cmdSystem)},
		{Name: tokenField, Value: token},
	}
	for _, name := range []string{"system_name", "system_location", "system_contact"} {
		if v, ok := values[name]; ok {
			fields = append(fields, form.Field{Name: name, Value: v})
		}
	}
	fields = append(fields, form.Field{Name: "sysSubmit", Value: "Apply"})

	ok, status, err := d.s.submit(ctx, dispatcher, fields)
	if err != nil {
		return model.Failed(err.Error()), err
	}
	if !ok {
		return rejection("configure system", status), nil
	}
	return model.Succeeded("system configured"), nil
}

// setPortVLAN applies one submission per group of ports ending up with equal
// settings, since the edit form takes a port list with a single value set.
// Unset fields keep each port's current value.
func (d *gs1900) setPortVLAN(ctx context.Context, ports []string, cfg model.PortVLANConfig) (model.Result, error) {
	if cfg.PVID != nil && !model.ValidVLANID(*cfg.PVID) {
		err := fmt.Errorf("invalid PVID %d", *cfg.PVID)
		return model.Failed(err.Error()), err
	}
	current, err := d.vlanPortSettings(ctx)
	if err != nil {
		return model.Failed(err.Error()), err
	}
	byPort := map[string]model.PortVLANSetting{}
	for _, s := range current {
		byPort[s.Port] = s
	}

	groups := map[string][]string{}
	settings := map[string][]form.Field{}
	for _, p := range ports {
		s, ok := byPort[p]
		if !ok {
			return model.Failed(fmt.Sprintf("port %s not found", p)), nil
		}
		if cfg.PVID != nil {
			s.PVID = *cfg.PVID
		}
		if cfg.IngressFiltering != nil {
			s.IngressFiltering = *cfg.IngressFiltering
		}
		if cfg.VLANTrunking != nil {
			s.VLANTrunking = *cfg.VLANTrunking
		}
		if cfg.AcceptableFrameType != nil {
			s.AcceptableFrameType = *cfg.AcceptableFrameType
		}
		frame, err := frameCode(gs1900FrameCodes, s.AcceptableFrameType)
		if err != nil {
			return model.Failed(err.Error()), err
		}
		fields := []form.Field{
			{Name: "pvid", Value: strconv.Itoa(s.PVID)},
			{Name: "frametype", Value: frame},
			{Name: "vlan_igrfilter", Value: boolFlag(s.IngressFiltering)},
			{Name: "vlan_trunk", Value: boolFlag(s.VLANTrunking)},
		}
		key := form.Encode(fields)
		groups[key] = append(groups[key], p)
		settings[key] = fields
	}

	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		list := strings.Join(groups[k], ",")
		fields := append([]form.Field{{Name: "portlist", Value: list}}, settings[k]...)
		ok, status, err := d.mutate(ctx, cmdPortVLANEdit, cmdPortVLANSubmit, fields)
		if err != nil {
			return model.Failed(err.Error()), err
		}
		if !ok {
			return rejection("set VLAN settings of ports "+list, status), nil
		}
	}
	return model.Succeeded(fmt.Sprintf("VLAN settings of ports %s updated", strings.Join(ports, ","))), nil
}

// createVLAN only creates the VLAN, membership follows from the PVIDs.
func (d *gs1900) createVLAN(ctx context.Context, cfg model.VLANConfig, numPorts int) (model.Result, error) {
	if len(cfg.TaggedPorts) > 0 {
		return unsupported(model.DialectGS1900, "tagged VLAN membership")
	}
	fields := []form.Field{
		{Name: "vlanlist", Value: strconv.Itoa(cfg.ID)},
		{Name: "name", Value: vlanName(cfg)},
		{Name: "vlanAction", Value: "0"},
	}
	ok, status, err := d.mutate(ctx, cmdVLANAdd, cmdVLANAddSubmit, fields)
	if err != nil {
		return model.Failed(err.Error()), err
	}
	if !ok {
		return rejection(fmt.Sprintf("create VLAN %d", cfg.ID), status), nil
	}
	return model.Succeeded(fmt.Sprintf("VLAN %d created", cfg.ID)), nil
}

func (d *gs1900) deleteVLAN(ctx context.Context, row extract.TagRow) (model.Result, error) {
	fields := []form.Field{
		{Name: "vid", Value: strconv.Itoa(row.VID)},
		{Name: "action", Value: "delete"},
	}
	ok, status, err := d.mutate(ctx, cmdVLANDelete, cmdVLANDelete, fields)
	if err != nil {
		return model.Failed(err.Error()), err
	}
	if !ok {
		return rejection(fmt.Sprintf("delete VLAN %d", row.VID), status), nil
	}
	return model.Succeeded(fmt.Sprintf("VLAN %d deleted", row.VID)), nil
}

func (d *gs1900) configureLAG(ctx context.Context, group string, cfg model.LAGConfig) (model.Result, error) {
	return unsupported(model.DialectGS1900, "LAG configuration")
}

func (d *gs1900) configureSyslog(ctx context.Context, cfg model.SyslogConfig) (model.Result, error) {
	return unsupported(model.DialectGS1900, "syslog configuration")
}

func (d *gs1900) pagePath(page string) string {
	if numericPage.MatchString(page) {
		return dispatcher + "?cmd=" + page
	}
	if strings.HasPrefix(page, "/") {
		return page
	}
	return "/" + page
}

func (d *gs1900) formTarget(action string, fields []form.Field) (string, []form.Field) {
	snap := form.New(fields...)
	if _, ok := snap.Get("cmd"); !ok {
		cmd := "0"
		if numericPage.MatchString(action) {
			cmd = action
		}
		snap.Add("cmd", cmd)
	}
	return dispatcher, snap.Fields()
}

func boolFlag(b bool) string {
	if b {
		return "1"
	}
	return "0"
}
