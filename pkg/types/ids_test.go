package types

import (
	"testing"
	"time"
)

func TestNodeID(t *testing.T) {
	t.Run("String", func(t *testing.T) {
		tests := []struct {
			id   NodeID
			want string
		}{
			{0, "0"},
			{42, "42"},
			{NoNode, "none"},
		}
		for _, tt := range tests {
			if got := tt.id.String(); got != tt.want {
				t.Errorf("NodeID(%d).String() = %q, want %q", int(tt.id), got, tt.want)
			}
		}
	})

	t.Run("Valid", func(t *testing.T) {
		if !NodeID(0).Valid() {
			t.Error("NodeID(0) should be valid")
		}
		if NoNode.Valid() {
			t.Error("NoNode should not be valid")
		}
	})
}

func TestBlockID_String(t *testing.T) {
	if got := BlockID(7).String(); got != "7" {
		t.Errorf("BlockID(7).String() = %q, want %q", got, "7")
	}
}

func TestTick(t *testing.T) {
	t.Run("Duration", func(t *testing.T) {
		if got := Tick(1500).Duration(); got != 1500*time.Millisecond {
			t.Errorf("Tick(1500).Duration() = %v", got)
		}
	})

	t.Run("FromDuration", func(t *testing.T) {
		// 不足一毫秒的部分向下取整
		if got := TicksFromDuration(2*time.Second + 999*time.Microsecond); got != 2*TicksPerSecond {
			t.Errorf("TicksFromDuration() = %d, want %d", got, 2*TicksPerSecond)
		}
	})

	t.Run("String", func(t *testing.T) {
		if got := Tick(30).String(); got != "30ms" {
			t.Errorf("Tick(30).String() = %q, want %q", got, "30ms")
		}
	})
}
