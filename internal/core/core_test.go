package core

import (
	"errors"
	"fmt"
	"net/netip"
	"testing"
)

// Test zero values of core structs
func TestStructZeroValues(t *testing.T) {
	t.Run("EthernetHeader", func(t *testing.T) {
		var eth EthernetHeader
		if eth.EtherType != 0 {
			t.Errorf("expected EtherType=0, got %d", eth.EtherType)
		}
		if !eth.SrcMAC.IsZero() || !eth.DstMAC.IsZero() {
			t.Errorf("expected zero MACs, got %s %s", eth.SrcMAC, eth.DstMAC)
		}
	})

	t.Run("IPHeader", func(t *testing.T) {
		var ip IPHeader
		if ip.SrcIP.IsValid() || ip.DstIP.IsValid() {
			t.Errorf("expected invalid addresses, got %v %v", ip.SrcIP, ip.DstIP)
		}
		if ip.ChecksumOK {
			t.Error("expected ChecksumOK=false")
		}
	})

	t.Run("SendResult", func(t *testing.T) {
		var res SendResult
		if res.OK() {
			t.Error("zero SendResult must not report success")
		}
	})
}

func TestMAC(t *testing.T) {
	t.Run("Parse", func(t *testing.T) {
		m, err := ParseMAC("00:11:22:33:44:55")
		if err != nil {
			t.Fatalf("ParseMAC failed: %v", err)
		}
		if m != (MAC{0x00, 0x11, 0x22, 0x33, 0x44, 0x55}) {
			t.Errorf("unexpected MAC %v", m)
		}
		if m.String() != "00:11:22:33:44:55" {
			t.Errorf("unexpected string %q", m.String())
		}
	})

	t.Run("RejectEUI64", func(t *testing.T) {
		_, err := ParseMAC("00:11:22:33:44:55:66:77")
		if !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("FromSliceLength", func(t *testing.T) {
		for _, n := range []int{0, 5, 7} {
			if _, err := MACFromSlice(make([]byte, n)); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("len %d: expected ErrInvalidArgument, got %v", n, err)
			}
		}
	})
}

func TestEndpointString(t *testing.T) {
	e := Endpoint{
		MAC:  MAC{0x66, 0x77, 0x88, 0x99, 0xaa, 0xbb},
		IP:   netip.MustParseAddr("192.168.1.2"),
		Port: 5678,
	}
	if got := e.String(); got != "66:77:88:99:aa:bb/192.168.1.2:5678" {
		t.Errorf("unexpected endpoint string %q", got)
	}
}

func TestSendResult(t *testing.T) {
	tests := []struct {
		name string
		res  SendResult
		ok   bool
	}{
		{"complete", SendResult{Requested: 4, FrameLen: 46, Accepted: 46}, true},
		{"short", SendResult{Requested: 4, FrameLen: 46, Accepted: 20, Err: ErrShortWrite}, false},
		{"short without error", SendResult{Requested: 4, FrameLen: 46, Accepted: 20}, false},
		{"failed", SendResult{Requested: 4, FrameLen: 46, Err: ErrSendFailed}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.res.OK() != tt.ok {
				t.Errorf("OK() = %v, expected %v", tt.res.OK(), tt.ok)
			}
		})
	}
}

// Test sentinel errors
func TestSentinelErrors(t *testing.T) {
	t.Run("ErrorMessages", func(t *testing.T) {
		tests := []struct {
			err     error
			message string
		}{
			{ErrInvalidArgument, "pulse: invalid argument"},
			{ErrBufferTooSmall, "pulse: invalid argument: frame buffer too small"},
			{ErrSendFailed, "pulse: send failed"},
			{ErrShortWrite, "pulse: short write"},
			{ErrPacketTooShort, "pulse: packet too short"},
			{ErrConfigInvalid, "pulse: invalid configuration"},
		}

		for _, tt := range tests {
			if tt.err.Error() != tt.message {
				t.Errorf("expected error message %q, got %q", tt.message, tt.err.Error())
			}
		}
	})

	t.Run("BufferTooSmallIsInvalidArgument", func(t *testing.T) {
		if !errors.Is(ErrBufferTooSmall, ErrInvalidArgument) {
			t.Error("ErrBufferTooSmall should match ErrInvalidArgument")
		}
	})

	t.Run("ErrorWrapping", func(t *testing.T) {
		wrapped := fmt.Errorf("sendto eth0: %w", ErrShortWrite)
		if !errors.Is(wrapped, ErrShortWrite) {
			t.Error("errors.Is failed for wrapped error")
		}
	})
}
