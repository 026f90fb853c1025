package layout

import "testing"

func TestRectEmpty(t *testing.T) {
	if !(Rect{}).Empty() {
		t.Error("zero Rect should be empty")
	}
	if (Rect{Width: 10, Height: 1}).Empty() {
		t.Error("10x1 Rect should not be empty")
	}
	if !(Rect{Width: 10, Height: -1}).Empty() {
		t.Error("negative-height Rect should be empty")
	}
}

func TestRectIntersect(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	b := Rect{X: 5, Y: 5, Width: 10, Height: 10}
	got := a.Intersect(b)
	want := Rect{X: 5, Y: 5, Width: 5, Height: 5}
	if got != want {
		t.Errorf("Intersect = %+v, want %+v", got, want)
	}

	c := Rect{X: 20, Y: 20, Width: 5, Height: 5}
	if got := a.Intersect(c); !got.Empty() {
		t.Errorf("disjoint Intersect = %+v, want empty", got)
	}
}

func TestRectUnion(t *testing.T) {
	a := Rect{X: 0, Y: 0, Width: 10, Height: 10}
	b := Rect{X: 20, Y: 5, Width: 10, Height: 10}
	got := a.Union(b)
	want := Rect{X: 0, Y: 0, Width: 30, Height: 15}
	if got != want {
		t.Errorf("Union = %+v, want %+v", got, want)
	}
	if got := (Rect{}).Union(b); got != b {
		t.Errorf("Union with empty = %+v, want %+v", got, b)
	}
}

func TestRectContains(t *testing.T) {
	r := Rect{X: 2, Y: 3, Width: 4, Height: 5}
	if !r.Contains(2, 3) {
		t.Error("top-left corner should be contained")
	}
	if r.Contains(6, 8) {
		t.Error("bottom-right edge is exclusive")
	}
}

func TestInsets(t *testing.T) {
	in := Insets{Left: 1, Right: 2, Top: 3, Bottom: 4}
	if got := in.Horizontal(); got != 3 {
		t.Errorf("Horizontal() = %d, want 3", got)
	}
	if got := in.Vertical(); got != 7 {
		t.Errorf("Vertical() = %d, want 7", got)
	}
	if got := Uniform(5); got != (Insets{5, 5, 5, 5}) {
		t.Errorf("Uniform(5) = %+v", got)
	}
}

func TestAlignOffset(t *testing.T) {
	tests := []struct {
		align   Align
		extent  int
		content int
		want    int
	}{
		{AlignStart, 100, 20, 0},
		{AlignCenter, 100, 20, 40},
		{AlignEnd, 100, 20, 80},
		{AlignCenter, 100, 25, 37},
		{AlignEnd, 10, 20, 0}, // content overflows: clamp to start
	}
	for _, tt := range tests {
		if got := tt.align.Offset(tt.extent, tt.content); got != tt.want {
			t.Errorf("Align(%d).Offset(%d, %d) = %d, want %d",
				tt.align, tt.extent, tt.content, got, tt.want)
		}
	}
}
