package util

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// IsValidIPv4 checks if a string is a valid IPv4 address
func IsValidIPv4(ipStr string) bool {
	ip := net.ParseIP(ipStr)
	return ip != nil && ip.To4() != nil
}

// IsValidIPv6 checks if a string is a valid IPv6 address (without prefix)
func IsValidIPv6(ipStr string) bool {
	ip := net.ParseIP(ipStr)
	return ip != nil && ip.To4() == nil
}

// MaskToPrefixLen converts a dotted-quad netmask (255.255.255.0) to its
// prefix length (24). Non-contiguous masks are rejected.
func MaskToPrefixLen(mask string) (int, error) {
	ip := net.ParseIP(mask)
	if ip == nil || ip.To4() == nil {
		return 0, fmt.Errorf("invalid subnet mask: %q", mask)
	}
	ones, bits := net.IPMask(ip.To4()).Size()
	if bits == 0 {
		return 0, fmt.Errorf("non-contiguous subnet mask: %q", mask)
	}
	return ones, nil
}

// PrefixLenToMask converts an IPv4 prefix length to a dotted-quad netmask.
func PrefixLenToMask(prefixLen int) (string, error) {
	if prefixLen < 0 || prefixLen > 32 {
		return "", fmt.Errorf("IPv4 prefix length must be between 0 and 32, got %d", prefixLen)
	}
	return net.IP(net.CIDRMask(prefixLen, 32)).String(), nil
}

// IsValidIPv4Mask reports whether mask is a contiguous dotted-quad netmask.
func IsValidIPv4Mask(mask string) bool {
	_, err := MaskToPrefixLen(mask)
	return err == nil
}

// SplitIPMask splits a CIDR notation into IP and mask length
// Returns the IP (without mask) and mask length
func SplitIPMask(cidr string) (string, int) {
	parts := strings.Split(cidr, "/")
	if len(parts) != 2 {
		return cidr, 0 // Return as-is if no mask
	}
	maskLen, err := strconv.Atoi(parts[1])
	if err != nil {
		return parts[0], 0
	}
	return parts[0], maskLen
}

// ValidateMTU checks if MTU is within valid range
func ValidateMTU(mtu int) error {
	if mtu < 68 || mtu > 9216 {
		return fmt.Errorf("MTU must be between 68 and 9216, got %d", mtu)
	}
	return nil
}
