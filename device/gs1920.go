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

const (
	pageVLANTag = "rpVlantag"
	pageLACP    = "rpLacpsetting"
	pageSyslog  = "rpSyslog"

	maxNTPServers     = 3
	defaultSyslogPort = 514
)

// gs1920 tag table:
//
//	<td><INPUT TYPE="CHECKBOX" NAME="rpVlantag_Chk_TabDel" VALUE="?1"></td>
//	<td>1   </td>
//	<td><span class="status-on">ON</span></td>
//	<td style="text-align:left" class="word-break">CORE</td>
var gs1920TagLayout = extract.TagLayout{
	IndexField:  "rpVlantag_Chk_TabDel",
	VID:         regexp.MustCompile(`(?is)<td[^>]*>\s*(\d+)\s*</td>`),
	Active:      regexp.MustCompile(`(?is)<td[^>]*>\s*(?:<span[^>]*>)?\s*(ON|OFF)\b`),
	ActiveValue: "ON",
	Name:        regexp.MustCompile(`(?is)<td[^>]*>\s*([^<]*?)\s*</td>`),
}

type gs1920 struct {
	formDialect
}

func newGS1920(s *Session) driver {
	return &gs1920{formDialect{s: s, formNames: formNames{
		dialect:     model.DialectGS1920,
		conv:        extract.Underscored,
		userField:   "rpAuthForm_Ipt_UserName",
		passField:   "rpAuthForm_Ipt_Password",
		applyName:   "NumID",
		sysinfoPage: "/rpSysinfo.html",
		statusPage:  "/rpVlanstatusStatistics.html",
		tagPage:     "/rpVlantag.html",
		tagLayout:   gs1920TagLayout,
	}}}
}

func (d *gs1920) configureSystem(ctx context.Context, cfg model.SystemConfig) (model.Result, error) {
	if len(cfg.NTPServers) > maxNTPServers {
		err := fmt.Errorf("at most %d NTP servers supported, got %d", maxNTPServers, len(cfg.NTPServers))
		return model.Failed(err.Error()), err
	}
	snap, _, err := d.snapshot(ctx, pageGeneral)
	if err != nil {
		return model.Failed(err.Error()), err
	}
	d.overlaySystem(snap, cfg)

	if cfg.NTPServers != nil {
		serverField := d.field(pageGeneral, "Ipt", "TimeSvrIP")
		for i := 1; i <= maxNTPServers; i++ {
			name := extract.Indexed(serverField, strconv.Itoa(i))
			if i <= len(cfg.NTPServers) {
				snap.Set(name, cfg.NTPServers[i-1])
			} else if _, ok := snap.Get(name); ok {
				snap.Set(name, "")
			}
		}
	}
	if cfg.Timezone != nil {
		snap.Set(d.field(pageGeneral, "Slt", "TimeZone"), timezoneCode(*cfg.Timezone))
	}
	return d.submitSystem(ctx, snap)
}

func (d *gs1920) vlanForm(name string) string {
	return d.field(pageVLANTag, "HidBtn", name)
}

// createVLAN opens the add dialog, then submits the new VLAN with the
// membership of every port.
func (d *gs1920) createVLAN(ctx context.Context, cfg model.VLANConfig, numPorts int) (model.Result, error) {
	action := d.action(pageVLANTag)

	priming := []form.Field{
		{Name: d.vlanForm("IndexID"), Value: "0"},
		{Name: d.vlanForm("NumID"), Value: "2"},
	}
	ok, status, err := d.s.submit(ctx, action, priming)
	if err != nil {
		return model.Failed(err.Error()), err
	}
	if !ok {
		return rejection("open VLAN dialog", status), nil
	}

	fields := []form.Field{
		{Name: "rpVlantag_Toggle_Chk_Active", Value: "on"},
		{Name: "rpVlantag_Toggle_Ipt_Name", Value: vlanName(cfg)},
		{Name: "rpVlantag_Toggle_Ipt_VlanGroupID", Value: strconv.Itoa(cfg.ID)},
		{Name: d.vlanForm("IndexID"), Value: "0"},
		{Name: d.vlanForm("NumID"), Value: "5"},
	}
	fields = append(fields, membershipFields(cfg, numPorts, "rpVlantag_Toggle_Rdo_Control", "rpVlantag_Toggle_Chk_Tagging")...)

	ok, status, err = d.s.submit(ctx, action, fields)
	if err != nil {
		return model.Failed(err.Error()), err
	}
	if !ok {
		return rejection(fmt.Sprintf("create VLAN %d", cfg.ID), status), nil
	}
	return model.Succeeded(fmt.Sprintf("VLAN %d created", cfg.ID)), nil
}

// deleteVLAN marks the row for deletion and confirms it. Only the
// confirmation decides the outcome.
func (d *gs1920) deleteVLAN(ctx context.Context, row extract.TagRow) (model.Result, error) {
	action := d.action(pageVLANTag)
	phase := func(num string) []form.Field {
		return []form.Field{
			{Name: gs1920TagLayout.IndexField, Value: extract.IndexValue(row.Index)},
			{Name: d.vlanForm("IndexID"), Value: row.Index},
			{Name: d.vlanForm("NumID"), Value: num},
		}
	}

	ok, status, err := d.s.submit(ctx, action, phase("4"))
	if err != nil || !ok {
		d.s.log.Warn("marking VLAN for deletion failed", zap.Int("vid", row.VID), zap.Int("status", status), zap.Error(err))
	}

	ok, status, err = d.s.submit(ctx, action, phase("7"))
	if err != nil {
		return model.Failed(err.Error()), err
	}
	if !ok {
		return rejection(fmt.Sprintf("delete VLAN %d", row.VID), status), nil
	}
	return model.Succeeded(fmt.Sprintf("VLAN %d deleted", row.VID)), nil
}

// configureLAG resolves the group on the LACP page and adds members to it.
// Ports already in the group stay members.
func (d *gs1920) configureLAG(ctx context.Context, group string, cfg model.LAGConfig) (model.Result, error) {
	snap, content, err := d.snapshot(ctx, pageLACP)
	if err != nil {
		return model.Failed(err.Error()), err
	}

	activeField := d.field(pageLACP, "Chk", "GroupActive")
	index := strings.TrimPrefix(strings.TrimPrefix(group, "T"), "t")
	if _, ok := extract.IndexedCheckboxes(content, activeField)[index]; !ok {
		return model.Failed(fmt.Sprintf("LAG group %s not found", group)), nil
	}

	if cfg.Enabled != nil {
		snap.SetChecked(activeField, extract.IndexValue(index), *cfg.Enabled)
	}
	if cfg.Criteria != nil {
		snap.Set(extract.Indexed(d.field(pageLACP, "Slt", "Criteria"), index+",1"), *cfg.Criteria)
	}
	groupField := d.field(pageLACP, "Slt", "Group")
	for _, port := range cfg.Members {
		snap.Set(extract.Indexed(groupField, port), "T"+index)
	}

	ok, status, err := d.apply(ctx, pageLACP, snap)
	if err != nil {
		return model.Failed(err.Error()), err
	}
	if !ok {
		return rejection("configure LAG group T"+index, status), nil
	}
	return model.Succeeded(fmt.Sprintf("LAG group T%s configured", index)), nil
}

// configureSyslog sets the global switch, then adds servers one by one
// through the server dialog.
func (d *gs1920) configureSyslog(ctx context.Context, cfg model.SyslogConfig) (model.Result, error) {
	snap, _, err := d.snapshot(ctx, pageSyslog)
	if err != nil {
		return model.Failed(err.Error()), err
	}
	if cfg.Enabled != nil {
		globalField := d.field(pageSyslog, "Chk", "GlobalActive")
		snap.Remove(globalField)
		if *cfg.Enabled {
			snap.Add(globalField, "on")
		}
	}

	ok, status, err := d.apply(ctx, pageSyslog, snap)
	if err != nil {
		return model.Failed(err.Error()), err
	}
	if !ok {
		return rejection("configure syslog", status), nil
	}

	serverAction := "/Forms/" + pageSyslog + "_2"
	for _, server := range cfg.Servers {
		port := server.Port
		if port == 0 {
			port = defaultSyslogPort
		}
		fields := []form.Field{
			{Name: "rpSyslog_Toggle_Ipt_ServerAddr", Value: server.Address},
			{Name: "rpSyslog_Toggle_Ipt_UdpPort", Value: strconv.Itoa(port)},
			{Name: d.field(pageSyslog, "HidBtn", "ServerNumID"), Value: "1"},
			{Name: d.field(pageSyslog, "HidBtn", "ServerIndexID"), Value: "0"},
		}
		ok, status, err := d.s.submit(ctx, serverAction, fields)
		if err != nil {
			return model.Failed(err.Error()), err
		}
		if !ok {
			return rejection("add syslog server "+server.Address, status), nil
		}
	}
	return model.Succeeded("syslog configured"), nil
}

// membershipFields builds the per port control of the VLAN add forms:
// 1 for members, 0 otherwise, plus the tagging checkbox of tagged ports.
func membershipFields(cfg model.VLANConfig, numPorts int, controlField, taggingField string) []form.Field {
	tagged := portSet(cfg.TaggedPorts)
	untagged := portSet(cfg.UntaggedPorts)

	var fields []form.Field
	for port := 1; port <= numPorts; port++ {
		id := strconv.Itoa(port)
		switch {
		case tagged[id]:
			fields = append(fields,
				form.Field{Name: extract.Indexed(controlField, id), Value: "1"},
				form.Field{Name: taggingField, Value: extract.IndexValue(id)},
			)
		case untagged[id]:
			fields = append(fields, form.Field{Name: extract.Indexed(controlField, id), Value: "1"})
		default:
			fields = append(fields, form.Field{Name: extract.Indexed(controlField, id), Value: "0"})
		}
	}
	return fields
}

func vlanName(cfg model.VLANConfig) string {
	if cfg.Name != "" {
		return cfg.Name
	}
	return fmt.Sprintf("VLAN%d", cfg.ID)
}
