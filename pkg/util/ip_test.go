package util

import "testing"

func TestMaskToPrefixLen(t *testing.T) {
	tests := []struct {
		mask    string
		want    int
		wantErr bool
	}{
		{"255.255.255.0", 24, false},
		{"255.255.255.252", 30, false},
		{"255.255.255.255", 32, false},
		{"0.0.0.0", 0, false},
		{"255.0.255.0", 0, true},
		{"not-a-mask", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.mask, func(t *testing.T) {
			got, err := MaskToPrefixLen(tt.mask)
			if (err != nil) != tt.wantErr {
				t.Fatalf("MaskToPrefixLen(%q) error = %v, wantErr %v", tt.mask, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("MaskToPrefixLen(%q) = %d, want %d", tt.mask, got, tt.want)
			}
		})
	}
}

func TestPrefixLenToMask(t *testing.T) {
	tests := []struct {
		prefix  int
		want    string
		wantErr bool
	}{
		{24, "255.255.255.0", false},
		{31, "255.255.255.254", false},
		{0, "0.0.0.0", false},
		{33, "", true},
		{-1, "", true},
	}

	for _, tt := range tests {
		got, err := PrefixLenToMask(tt.prefix)
		if (err != nil) != tt.wantErr {
			t.Fatalf("PrefixLenToMask(%d) error = %v, wantErr %v", tt.prefix, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("PrefixLenToMask(%d) = %q, want %q", tt.prefix, got, tt.want)
		}
	}
}

func TestIsValidIPv4AndIPv6(t *testing.T) {
	if !IsValidIPv4("10.0.0.1") {
		t.Error("10.0.0.1 should be valid IPv4")
	}
	if IsValidIPv4("2001:db8::1") {
		t.Error("2001:db8::1 should not be valid IPv4")
	}
	if !IsValidIPv6("2001:db8::1") {
		t.Error("2001:db8::1 should be valid IPv6")
	}
	if IsValidIPv6("10.0.0.1") {
		t.Error("10.0.0.1 should not be valid IPv6")
	}
	if !IsValidIPv4Mask("255.255.0.0") || IsValidIPv4Mask("255.0.255.0") {
		t.Error("IsValidIPv4Mask misclassified a mask")
	}
}

func TestSplitIPMask(t *testing.T) {
	tests := []struct {
		cidr     string
		wantIP   string
		wantMask int
	}{
		{"10.1.1.1/30", "10.1.1.1", 30},
		{"10.1.1.1", "10.1.1.1", 0},
		{"2001:db8::1/64", "2001:db8::1", 64},
		{"10.1.1.1/x", "10.1.1.1", 0},
	}
	for _, tt := range tests {
		ip, mask := SplitIPMask(tt.cidr)
		if ip != tt.wantIP || mask != tt.wantMask {
			t.Errorf("SplitIPMask(%q) = (%q, %d), want (%q, %d)", tt.cidr, ip, mask, tt.wantIP, tt.wantMask)
		}
	}
}

func TestValidateMTU(t *testing.T) {
	for _, mtu := range []int{68, 1500, 9100, 9216} {
		if err := ValidateMTU(mtu); err != nil {
			t.Errorf("ValidateMTU(%d) unexpected error: %v", mtu, err)
		}
	}
	for _, mtu := range []int{0, 67, 9217} {
		if err := ValidateMTU(mtu); err == nil {
			t.Errorf("ValidateMTU(%d) expected error", mtu)
		}
	}
}
