package adapter

import (
	"net"
	"slices"
	"strings"
)

// virtualPrefixes name container and bridge interfaces whose subnets are
// never worth scanning
var virtualPrefixes = []string{"veth", "docker", "br-", "cni", "flannel", "virbr"}

// LocalSubnets lists the RFC 1918 IPv4 networks attached to up, non-loopback
// interfaces of this host, as CIDR strings.
func LocalSubnets() ([]string, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}

	var subnets []string
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || iface.Flags&net.FlagUp == 0 {
			continue
		}
		if isVirtual(iface.Name) {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		subnets = append(subnets, privateSubnets(addrs)...)
	}
	slices.Sort(subnets)
	return slices.Compact(subnets), nil
}

func isVirtual(name string) bool {
	for _, p := range virtualPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

func privateSubnets(addrs []net.Addr) []string {
	var out []string
	for _, addr := range addrs {
		ipnet, ok := addr.(*net.IPNet)
		if !ok || ipnet.IP.To4() == nil || !ipnet.IP.IsPrivate() {
			continue
		}
		ones, _ := ipnet.Mask.Size()
		// wider than a /16 is too slow to sweep
		if ones < 16 {
			continue
		}
		network := &net.IPNet{IP: ipnet.IP.Mask(ipnet.Mask), Mask: ipnet.Mask}
		out = append(out, network.String())
	}
	return out
}
