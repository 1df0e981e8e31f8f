package reconcile

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/newtron-network/netconsole/pkg/util"
)

func strPtr(s string) *string { return &s }

func TestEdit_Apply(t *testing.T) {
	o := baseObserved()
	o.IPv4Address = "10.0.0.1"
	o.SubnetMask = "255.255.255.0"
	o.OSPF = &OSPFMembership{ProcessID: 1, Area: 0}

	d := NewDesiredState(o)
	down := AdminDown
	e := &Edit{
		AdminStatus:   &down,
		Description:   strPtr("  uplink  "),
		MTU:           intPtr(1500),
		OSPFProcessID: strPtr(""),
		OSPFArea:      strPtr(""),
	}
	if err := e.Apply(d); err != nil {
		t.Fatalf("Apply: %v", err)
	}

	if d.AdminStatus != AdminDown || d.Description != "uplink" || *d.MTU != 1500 {
		t.Errorf("edited fields = %q %q %d", d.AdminStatus, d.Description, *d.MTU)
	}
	if d.IPv4Address != "10.0.0.1" || d.SubnetMask != "255.255.255.0" {
		t.Errorf("unset fields must keep observed values, got %s/%s", d.IPv4Address, d.SubnetMask)
	}
	if d.OSPFProcessID != "" || d.OSPFArea != "" {
		t.Errorf("explicit empty OSPF should clear, got (%q, %q)", d.OSPFProcessID, d.OSPFArea)
	}

	intents, err := Plan("leaf1", o, d)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{IntentDisable, IntentSetDescription, IntentSetMTU, IntentOSPFRemove}
	if got := intentNames(intents); !equalStrings(got, want) {
		t.Errorf("intents = %v, want %v", got, want)
	}
}

func TestEdit_ApplyInvalidAdminStatus(t *testing.T) {
	bad := AdminStatus("sideways")
	err := (&Edit{AdminStatus: &bad}).Apply(NewDesiredState(baseObserved()))
	if !errors.Is(err, util.ErrValidationFailed) {
		t.Errorf("err = %v, want ErrValidationFailed", err)
	}
}

func TestEdit_IsEmpty(t *testing.T) {
	if !(&Edit{}).IsEmpty() {
		t.Error("zero Edit should be empty")
	}
	if (&Edit{MTU: intPtr(9000)}).IsEmpty() {
		t.Error("Edit with MTU should not be empty")
	}
}

func TestEdit_SetIPv4CIDR(t *testing.T) {
	tests := []struct {
		in       string
		wantIP   string
		wantMask string
		wantErr  bool
	}{
		{"10.1.0.0/31", "10.1.0.0", "255.255.255.254", false},
		{"192.168.1.1/24", "192.168.1.1", "255.255.255.0", false},
		{"192.168.1.1", "", "", true},
		{"192.168.1.1/33", "", "", true},
		{"192.168.1.1/x", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var e Edit
			err := e.SetIPv4CIDR(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if *e.IPv4Address != tt.wantIP || *e.SubnetMask != tt.wantMask {
				t.Errorf("got %s %s", *e.IPv4Address, *e.SubnetMask)
			}
		})
	}
}

func TestEdit_DecodeJSON(t *testing.T) {
	var e Edit
	body := `{"admin_status":"UP","ipv6_address":"2001:db8::1/64","ospf_area":""}`
	if err := json.Unmarshal([]byte(body), &e); err != nil {
		t.Fatal(err)
	}
	if e.AdminStatus == nil || *e.AdminStatus != AdminUp {
		t.Errorf("AdminStatus = %v", e.AdminStatus)
	}
	if e.OSPFArea == nil || *e.OSPFArea != "" {
		t.Error("present empty field should decode to an empty pointer")
	}
	if e.Description != nil {
		t.Error("absent field should stay nil")
	}
}
