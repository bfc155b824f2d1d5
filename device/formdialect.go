package device

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/swoga/zyxel-webctl/extract"
	"github.com/swoga/zyxel-webctl/form"
	"github.com/swoga/zyxel-webctl/model"
	"go.uber.org/zap"
)

// form pages shared by gs1915 and gs1920, named in gs1920 casing
const (
	pagePort     = "rpPort"
	pageVLANPort = "rpVlanport"
	pageGeneral  = "rpGeneral"
	loginAction  = "/Forms/login_1"
)

// formNames collects what differs between the two form based dialects.
type formNames struct {
	dialect   model.Dialect
	conv      extract.Convention
	userField string
	passField string
	// applyName completes the hidden apply button, rpPort_HidBtn_NumID vs rpport_HidBtnNum
	applyName   string
	sysinfoPage string
	statusPage  string
	tagPage     string
	tagLayout   extract.TagLayout
}

// formDialect implements everything gs1915 and gs1920 do alike.
type formDialect struct {
	s *Session
	formNames
}

func (d *formDialect) page(name string) string {
	return "/" + d.conv.Page(name) + ".html"
}

func (d *formDialect) action(name string) string {
	return "/Forms/" + d.conv.Page(name) + "_1"
}

func (d *formDialect) field(page, kind, name string) string {
	return d.conv.Field(page, kind, name)
}

func (d *formDialect) marker(page string) string {
	return d.conv.Field(page, "HidBtn", d.applyName)
}

func (d *formDialect) login(ctx context.Context) error {
	fields := []form.Field{
		{Name: d.userField, Value: d.s.username},
		{Name: d.passField, Value: d.s.password},
	}
	status, _, err := d.s.client.Post(ctx, loginAction, fields)
	if err != nil {
		return err
	}
	switch status {
	case 200, 302, 303:
		return nil
	}
	return fmt.Errorf("%w: HTTP %d", ErrLoginFailed, status)
}

// snapshot fetches a form page and captures every control belonging to it.
func (d *formDialect) snapshot(ctx context.Context, page string) (*form.Snapshot, string, error) {
	content, err := d.s.fetch(ctx, d.page(page))
	if err != nil {
		return nil, "", err
	}
	return extract.Snapshot(content, regexp.QuoteMeta(d.conv.Page(page))+`_.*`), content, nil
}

// apply submits a complete snapshot with the page's apply marker set.
func (d *formDialect) apply(ctx context.Context, page string, snap *form.Snapshot) (bool, int, error) {
	snap.Set(d.marker(page), "1")
	return d.s.submit(ctx, d.action(page), snap)
}

func (d *formDialect) systemInfo(ctx context.Context) (*model.SystemInfo, error) {
	content, err := d.s.fetch(ctx, d.sysinfoPage)
	if err != nil {
		return nil, err
	}
	info := &model.SystemInfo{
		Model:   string(d.dialect),
		Dialect: d.dialect,
	}
	if v, ok := extract.LabelCell(content, "System Name"); ok {
		info.Hostname = v
	}
	if v, ok := extract.LabelCell(content, "Product Model"); ok {
		info.Model = v
	}
	if v, ok := extract.LabelCell(content, "F/W Version"); ok {
		info.Firmware = v
	}
	if v, ok := extract.LabelCell(content, "Ethernet Address"); ok {
		info.MACAddress = v
	}
	return info, nil
}

func (d *formDialect) ports(ctx context.Context) ([]model.Port, error) {
	content, err := d.s.fetch(ctx, d.page(pagePort))
	if err != nil {
		return nil, err
	}
	names := extract.IndexedInputs(content, d.field(pagePort, "Ipt", "PortName"))
	active := extract.IndexedCheckboxes(content, d.field(pagePort, "Chk", "PortActive"))
	speeds := extract.IndexedSelects(content, d.field(pagePort, "Slt", "Speed"))

	ids := map[string]struct{}{}
	addKeys(ids, names)
	addKeys(ids, active)
	addKeys(ids, speeds)

	var ports []model.Port
	for _, id := range sortedKeys(ids) {
		p := model.Port{
			ID:         id,
			Name:       names[id],
			Enabled:    active[id],
			LinkStatus: model.LinkUnknown,
			Speed:      model.SpeedAuto,
		}
		if opt, ok := speeds[id]; ok {
			p.Speed = speedFromCode(opt.Value, opt.Label)
		}
		ports = append(ports, p)
	}
	return ports, nil
}

func (d *formDialect) vlanPortSettings(ctx context.Context) ([]model.PortVLANSetting, error) {
	content, err := d.s.fetch(ctx, d.page(pageVLANPort))
	if err != nil {
		return nil, err
	}
	pvids := extract.IndexedInputs(content, d.field(pageVLANPort, "Ipt", "PVID"))
	ingress := extract.IndexedCheckboxes(content, d.field(pageVLANPort, "Chk", "Ingress"))
	trunking := extract.IndexedCheckboxes(content, d.field(pageVLANPort, "Chk", "VLANTrunking"))
	frames := extract.IndexedSelects(content, d.field(pageVLANPort, "Slt", "AcceptableFrame"))

	ids := map[string]struct{}{}
	addKeys(ids, pvids)
	addKeys(ids, ingress)
	addKeys(ids, trunking)
	addKeys(ids, frames)

	var settings []model.PortVLANSetting
	for _, id := range sortedKeys(ids) {
		setting := model.PortVLANSetting{
			Port:                id,
			PVID:                1,
			IngressFiltering:    ingress[id],
			VLANTrunking:        trunking[id],
			AcceptableFrameType: model.FrameAll,
		}
		if pvid, err := strconv.Atoi(strings.TrimSpace(pvids[id])); err == nil {
			setting.PVID = pvid
		}
		if opt, ok := frames[id]; ok {
			setting.AcceptableFrameType = frameFromCode(frameCodes, opt.Value)
		}
		settings = append(settings, setting)
	}
	return settings, nil
}

func (d *formDialect) vlanRows(ctx context.Context) ([]extract.TagRow, error) {
	content, err := d.s.fetch(ctx, d.tagPage)
	if err != nil {
		return nil, err
	}
	return extract.TagRows(content, d.tagLayout), nil
}

func (d *formDialect) taggedPorts(ctx context.Context) (map[int][]string, error) {
	status, content, err := d.s.client.Get(ctx, d.statusPage)
	if err != nil {
		return nil, err
	}
	if status != 200 {
		d.s.log.Warn("VLAN status page unavailable, tagged membership unknown", zap.Int("status", status))
		return nil, nil
	}
	tagged := map[int][]string{}
	for _, row := range extract.StatusRows(content) {
		tagged[row.VID] = row.Tagged
	}
	return tagged, nil
}

func (d *formDialect) configurePort(ctx context.Context, port string, cfg model.PortConfig) (model.Result, error) {
	snap, content, err := d.snapshot(ctx, pagePort)
	if err != nil {
		return model.Failed(err.Error()), err
	}
	nameField := d.field(pagePort, "Ipt", "PortName")
	activeField := d.field(pagePort, "Chk", "PortActive")
	speedField := d.field(pagePort, "Slt", "Speed")

	_, named := extract.IndexedInputs(content, nameField)[port]
	_, toggled := extract.IndexedCheckboxes(content, activeField)[port]
	if !named && !toggled {
		return model.Failed(fmt.Sprintf("port %s not found", port)), nil
	}

	if cfg.Enabled != nil {
		snap.SetChecked(activeField, extract.IndexValue(port), *cfg.Enabled)
	}
	if cfg.Name != nil {
		snap.Set(extract.Indexed(nameField, port), *cfg.Name)
	}
	if cfg.Speed != nil {
		code, err := speedCode(*cfg.Speed)
		if err != nil {
			return model.Failed(err.Error()), err
		}
		snap.Set(extract.Indexed(speedField, port), code)
	}

	ok, status, err := d.apply(ctx, pagePort, snap)
	if err != nil {
		return model.Failed(err.Error()), err
	}
	if !ok {
		return rejection("configure port "+port, status), nil
	}
	return model.Succeeded(fmt.Sprintf("port %s configured", port)), nil
}

func (d *formDialect) setPortVLAN(ctx context.Context, ports []string, cfg model.PortVLANConfig) (model.Result, error) {
	if cfg.PVID != nil && !model.ValidVLANID(*cfg.PVID) {
		err := fmt.Errorf("invalid PVID %d", *cfg.PVID)
		return model.Failed(err.Error()), err
	}
	var frame string
	if cfg.AcceptableFrameType != nil {
		code, err := frameCode(frameCodes, *cfg.AcceptableFrameType)
		if err != nil {
			return model.Failed(err.Error()), err
		}
		frame = code
	}

	snap, content, err := d.snapshot(ctx, pageVLANPort)
	if err != nil {
		return model.Failed(err.Error()), err
	}
	pvidField := d.field(pageVLANPort, "Ipt", "PVID")
	ingressField := d.field(pageVLANPort, "Chk", "Ingress")
	trunkField := d.field(pageVLANPort, "Chk", "VLANTrunking")
	frameField := d.field(pageVLANPort, "Slt", "AcceptableFrame")

	known := extract.IndexedInputs(content, pvidField)
	for _, p := range ports {
		if _, ok := known[p]; !ok {
			return model.Failed(fmt.Sprintf("port %s not found", p)), nil
		}
	}

	for _, p := range ports {
		if cfg.PVID != nil {
			snap.Set(extract.Indexed(pvidField, p), strconv.Itoa(*cfg.PVID))
		}
		if cfg.IngressFiltering != nil {
			snap.SetChecked(ingressField, extract.IndexValue(p), *cfg.IngressFiltering)
		}
		if cfg.VLANTrunking != nil {
			snap.SetChecked(trunkField, extract.IndexValue(p), *cfg.VLANTrunking)
		}
		if frame != "" {
			snap.Set(extract.Indexed(frameField, p), frame)
		}
	}

	list := strings.Join(ports, ",")
	ok, status, err := d.apply(ctx, pageVLANPort, snap)
	if err != nil {
		return model.Failed(err.Error()), err
	}
	if !ok {
		return rejection("set VLAN settings of ports "+list, status), nil
	}
	return model.Succeeded(fmt.Sprintf("VLAN settings of ports %s updated", list)), nil
}

// overlaySystem sets the identity fields both form dialects share.
func (d *formDialect) overlaySystem(snap *form.Snapshot, cfg model.SystemConfig) {
	if cfg.Hostname != nil {
		snap.Set(d.field(pageGeneral, "Ipt", "SystemName"), *cfg.Hostname)
	}
	if cfg.Location != nil {
		snap.Set(d.field(pageGeneral, "Ipt", "Location"), *cfg.Location)
	}
	if cfg.Contact != nil {
		snap.Set(d.field(pageGeneral, "Ipt", "ContactName"), *cfg.Contact)
	}
}

func (d *formDialect) submitSystem(ctx context.Context, snap *form.Snapshot) (model.Result, error) {
	ok, status, err := d.apply(ctx, pageGeneral, snap)
	if err != nil {
		return model.Failed(err.Error()), err
	}
	if !ok {
		return rejection("configure system", status), nil
	}
	return model.Succeeded("system configured"), nil
}

func (d *formDialect) pagePath(page string) string {
	if strings.HasPrefix(page, "/") {
		return page
	}
	return "/" + page
}

func (d *formDialect) formTarget(action string, fields []form.Field) (string, []form.Field) {
	return d.pagePath(action), fields
}

func rejection(action string, status int) model.Result {
	if status == 200 {
		return model.Failed(fmt.Sprintf("failed to %s: device reported an error", action))
	}
	return model.Failed(fmt.Sprintf("failed to %s: HTTP %d", action, status))
}

func unsupported(dialect model.Dialect, feature string) (model.Result, error) {
	err := fmt.Errorf("%s on %s: %w", feature, dialect, ErrUnsupported)
	return model.Failed(err.Error()), err
}
