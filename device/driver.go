package device

import (
	"context"

	"github.com/swoga/zyxel-webctl/extract"
	"github.com/swoga/zyxel-webctl/form"
	"github.com/swoga/zyxel-webctl/model"
)

// driver is implemented once per dialect. Readers return what the pages
// show, the Session joins and verifies on top.
type driver interface {
	login(ctx context.Context) error

	systemInfo(ctx context.Context) (*model.SystemInfo, error)
	ports(ctx context.Context) ([]model.Port, error)
	// vlanRows lists the VLAN table with the row index used to address a VLAN.
	vlanRows(ctx context.Context) ([]extract.TagRow, error)
	vlanPortSettings(ctx context.Context) ([]model.PortVLANSetting, error)
	// taggedPorts maps VLAN ID to tagged ports, nil when the dialect does not expose them.
	taggedPorts(ctx context.Context) (map[int][]string, error)

	configurePort(ctx context.Context, port string, cfg model.PortConfig) (model.Result, error)
	configureSystem(ctx context.Context, cfg model.SystemConfig) (model.Result, error)
	// setPortVLAN applies cfg to all ports in one submission where the dialect allows.
	setPortVLAN(ctx context.Context, ports []string, cfg model.PortVLANConfig) (model.Result, error)
	createVLAN(ctx context.Context, cfg model.VLANConfig, numPorts int) (model.Result, error)
	deleteVLAN(ctx context.Context, row extract.TagRow) (model.Result, error)
	configureLAG(ctx context.Context, group string, cfg model.LAGConfig) (model.Result, error)
	configureSyslog(ctx context.Context, cfg model.SyslogConfig) (model.Result, error)

	pagePath(page string) string
	formTarget(action string, fields []form.Field) (string, []form.Field)
}

var drivers = map[model.Dialect]func(*Session) driver{
	model.DialectGS1900: newGS1900,
	model.DialectGS1915: newGS1915,
	model.DialectGS1920: newGS1920,
}
