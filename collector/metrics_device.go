package collector

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/swoga/zyxel-webctl/model"
)

func AddMetricsDevice(registry prometheus.Registerer, info *model.SystemInfo) {
	deviceInfoGaugeVec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "device_info",
		Help: "Switch model, hostname, firmware and web UI dialect.",
	}, []string{"model", "hostname", "firmware", "mac_address", "dialect"})
	registry.MustRegister(deviceInfoGaugeVec)

	deviceInfoGaugeVec.WithLabelValues(labelValue(info.Model), labelValue(info.Hostname), labelValue(info.Firmware), labelValue(info.MACAddress), info.Dialect.String()).Set(1)
}

func AddMetricsPorts(registry prometheus.Registerer, ports []model.Port) {
	portEnabledGaugeVec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "port_enabled",
		Help: "Whether the port is administratively enabled.",
	}, []string{"port", "name"})
	registry.MustRegister(portEnabledGaugeVec)
	portUpGaugeVec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "port_up",
		Help: "Link state of the port, only reported by dialects listing it.",
	}, []string{"port", "name"})
	registry.MustRegister(portUpGaugeVec)

	for _, port := range ports {
		id, name := labelValue(port.ID), labelValue(port.Name)
		portEnabledGaugeVec.WithLabelValues(id, name).Set(boolValue(port.Enabled))

		// form dialects do not show the link state on the port page
		if port.LinkStatus == model.LinkUnknown {
			continue
		}
		portUpGaugeVec.WithLabelValues(id, name).Set(boolValue(port.LinkStatus == model.LinkUp))
	}
}

// labelValue replaces invalid UTF-8 from pages in a legacy charset, label values must be UTF-8.
func labelValue(s string) string {
	return strings.ToValidUTF8(s, "\uFFFD")
}

func boolValue(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
