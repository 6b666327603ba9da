package device

import "testing"

func TestFlashCycle(t *testing.T) {
	f := FlashOff
	want := []FlashMode{FlashOn, FlashAuto, FlashOff, FlashOn}
	for i, w := range want {
		f = f.Next()
		if f != w {
			t.Fatalf("step %d: got %s, want %s", i, f, w)
		}
	}
}

func TestFocusToggle(t *testing.T) {
	if FocusOn.Toggle() != FocusOff || FocusOff.Toggle() != FocusOn {
		t.Error("Focus should toggle on ⇄ off")
	}
}

func TestFacingFlip(t *testing.T) {
	if FacingBack.Flip() != FacingFront || FacingFront.Flip() != FacingBack {
		t.Error("Facing should flip back ⇄ front")
	}
}

func TestApplyClampsZoom(t *testing.T) {
	ios := Capabilities{MinZoom: 0, MaxZoom: 0.035}
	o := DefaultOptions(KindPhoto)

	tests := []struct {
		in   float64
		want float64
	}{
		{0.02, 0.02},
		{0.5, 0.035},
		{-1, 0},
	}
	for _, tt := range tests {
		z := tt.in
		got := o.Apply(Partial{Zoom: &z}, ios)
		if got.Zoom != tt.want {
			t.Errorf("Apply(zoom=%v) = %v, want %v", tt.in, got.Zoom, tt.want)
		}
	}
}

func TestApplyLeavesNilFields(t *testing.T) {
	o := DefaultOptions(KindVideo)
	flash := FlashAuto
	got := o.Apply(Partial{Flash: &flash}, Capabilities{MaxZoom: 1})

	if got.Flash != FlashAuto {
		t.Errorf("Expected flash auto, got %s", got.Flash)
	}
	if got.Facing != o.Facing || got.Focus != o.Focus || got.Zoom != o.Zoom || got.Kind != KindVideo {
		t.Errorf("Unexpected changes: %+v", got)
	}
}
