package device

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/swoga/zyxel-webctl/extract"
	"github.com/swoga/zyxel-webctl/form"
	"github.com/swoga/zyxel-webctl/model"
)

// gs1915 tag table, the add form lists every VLAN:
//
//	<INPUT TYPE="CHECKBOX" NAME="rpvlantag_ChkDel" VALUE="?1,13">
//	<a href="javascript:GetIndexID(121);">121</a>
//	<div align=center>Yes</div>
//	<div align=center>VOV</div>
var gs1915TagLayout = extract.TagLayout{
	IndexField:  "rpvlantag_ChkDel",
	VID:         regexp.MustCompile(`GetIndexID\((\d+)\)`),
	Active:      regexp.MustCompile(`(?is)<div align=center>\s*(Yes|No)\s*</div>`),
	ActiveValue: "Yes",
	Name:        regexp.MustCompile(`(?is)<div align=center>\s*([^<]*?)\s*</div>`),
}

const gs1915TagPage = "/rpvlantag.html?1,1"

type gs1915 struct {
	formDialect
}

func newGS1915(s *Session) driver {
	return &gs1915{formDialect{s: s, formNames: formNames{
		dialect:     model.DialectGS1915,
		conv:        extract.Lowercase,
		userField:   "rpAuthForm_IptTextUsername",
		passField:   "rpAuthForm_IptTextPassword",
		applyName:   "Num",
		sysinfoPage: "/rpsysinfo.html",
		statusPage:  "/rpvlanstatusStatistics.html",
		tagPage:     gs1915TagPage,
		tagLayout:   gs1915TagLayout,
	}}}
}

func (d *gs1915) configureSystem(ctx context.Context, cfg model.SystemConfig) (model.Result, error) {
	if cfg.NTPServers != nil {
		return unsupported(d.dialect, "NTP servers")
	}
	if cfg.Timezone != nil {
		return unsupported(d.dialect, "timezone")
	}
	snap, _, err := d.snapshot(ctx, pageGeneral)
	if err != nil {
		return model.Failed(err.Error()), err
	}
	d.overlaySystem(snap, cfg)
	return d.submitSystem(ctx, snap)
}

// tagFields are the hidden controls of the tag form, HidBtnID selects the action.
func (d *gs1915) tagFields(button string) []form.Field {
	return []form.Field{
		{Name: "rpvlantag_HidBtnID", Value: button},
		{Name: "rpvlantag_HidEditMode", Value: "0"},
		{Name: "rpvlantag_HidSelectedIndex", Value: "0"},
		{Name: "rpvlantag_HidBtnNum", Value: "0"},
		{Name: "rpvlantag_HidOldSlot", Value: "0"},
	}
}

func (d *gs1915) createVLAN(ctx context.Context, cfg model.VLANConfig, numPorts int) (model.Result, error) {
	// the add form has to be rendered before a submission is accepted
	if _, err := d.s.fetch(ctx, gs1915TagPage); err != nil {
		return model.Failed(err.Error()), err
	}

	fields := []form.Field{
		{Name: "rpvlantag_ChkActive", Value: "on"},
		{Name: "rpvlantag_IptName", Value: vlanName(cfg)},
		{Name: "rpvlantag_IptGroupID", Value: strconv.Itoa(cfg.ID)},
	}
	fields = append(fields, d.tagFields("1")...)
	fields = append(fields, membershipFields(cfg, numPorts, "rpvlantag_RpgControl", "rpvlantag_ChkTagging")...)

	ok, status, err := d.s.submit(ctx, d.action(pageVLANTag), fields)
	if err != nil {
		return model.Failed(err.Error()), err
	}
	if !ok {
		return rejection(fmt.Sprintf("create VLAN %d", cfg.ID), status), nil
	}
	return model.Succeeded(fmt.Sprintf("VLAN %d created", cfg.ID)), nil
}

func (d *gs1915) deleteVLAN(ctx context.Context, row extract.TagRow) (model.Result, error) {
	fields := []form.Field{{Name: gs1915TagLayout.IndexField, Value: extract.IndexValue(row.Index)}}
	fields = append(fields, d.tagFields("2")...)

	ok, status, err := d.s.submit(ctx, d.action(pageVLANTag), fields)
	if err != nil {
		return model.Failed(err.Error()), err
	}
	if !ok {
		return rejection(fmt.Sprintf("delete VLAN %d", row.VID), status), nil
	}
	return model.Succeeded(fmt.Sprintf("VLAN %d deleted", row.VID)), nil
}

func (d *gs1915) configureLAG(ctx context.Context, group string, cfg model.LAGConfig) (model.Result, error) {
	return unsupported(d.dialect, "LAG configuration")
}

func (d *gs1915) configureSyslog(ctx context.Context, cfg model.SyslogConfig) (model.Result, error) {
	return unsupported(d.dialect, "syslog configuration")
}
