package ipmanager

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// LastOctet extracts the final octet of a dotted IPv4 address.
func LastOctet(ip string) (int, error) {
	if net.ParseIP(ip) == nil {
		return 0, fmt.Errorf("invalid IP address %q", ip)
	}
	parts := strings.Split(ip, ".")
	if len(parts) != 4 {
		return 0, fmt.Errorf("not an IPv4 address: %q", ip)
	}
	return strconv.Atoi(parts[3])
}
