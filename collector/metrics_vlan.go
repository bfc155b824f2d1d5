package collector

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/swoga/zyxel-webctl/model"
)

const (
	modeTagged   = "tagged"
	modeUntagged = "untagged"
)

func AddMetricsVLANs(registry prometheus.Registerer, vlans []model.VLAN) {
	vlanInfoGaugeVec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vlan_info",
		Help: "Configured VLANs, 1 if the VLAN is active.",
	}, []string{"vlan", "name"})
	registry.MustRegister(vlanInfoGaugeVec)
	vlanPortMemberGaugeVec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vlan_port_member",
		Help: "VLAN membership of a port, untagged membership follows the PVID.",
	}, []string{"vlan", "port", "mode"})
	registry.MustRegister(vlanPortMemberGaugeVec)

	for _, vlan := range vlans {
		id := strconv.Itoa(vlan.ID)
		vlanInfoGaugeVec.WithLabelValues(id, labelValue(vlan.Name)).Set(boolValue(vlan.Active))

		for _, port := range vlan.UntaggedPorts {
			vlanPortMemberGaugeVec.WithLabelValues(id, labelValue(port), modeUntagged).Set(1)
		}
		for _, port := range vlan.TaggedPorts {
			vlanPortMemberGaugeVec.WithLabelValues(id, labelValue(port), modeTagged).Set(1)
		}
	}
}

func AddMetricsPortVLAN(registry prometheus.Registerer, settings []model.PortVLANSetting) {
	portPVIDGaugeVec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "port_pvid",
		Help: "Port VLAN ID assigned to untagged ingress traffic.",
	}, []string{"port"})
	registry.MustRegister(portPVIDGaugeVec)
	portIngressFilteringGaugeVec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "port_ingress_filtering",
		Help: "Whether ingress filtering is enabled on the port.",
	}, []string{"port"})
	registry.MustRegister(portIngressFilteringGaugeVec)
	portFrameTypeGaugeVec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "port_acceptable_frame_type",
		Help: "Acceptable frame type of the port.",
	}, []string{"port", "frame_type"})
	registry.MustRegister(portFrameTypeGaugeVec)

	for _, s := range settings {
		port := labelValue(s.Port)
		portPVIDGaugeVec.WithLabelValues(port).Set(float64(s.PVID))
		portIngressFilteringGaugeVec.WithLabelValues(port).Set(boolValue(s.IngressFiltering))
		portFrameTypeGaugeVec.WithLabelValues(port, string(s.AcceptableFrameType)).Set(1)
	}
}
