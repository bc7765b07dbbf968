package geometry

import "testing"

func TestFromDegrees(t *testing.T) {
	tests := []struct {
		deg     int
		want    Rotation
		wantErr bool
	}{
		{0, Normal, false},
		{90, Rotation90, false},
		{180, Rotation180, false},
		{270, Rotation270, false},
		{360, Normal, false},
		{450, Rotation90, false},
		{-90, Rotation270, false},
		{-180, Rotation180, false},
		{45, Normal, true},
		{91, Normal, true},
	}

	for _, tt := range tests {
		got, err := FromDegrees(tt.deg)
		if (err != nil) != tt.wantErr {
			t.Errorf("FromDegrees(%d) error = %v, wantErr %v", tt.deg, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("FromDegrees(%d) = %v, want %v", tt.deg, got, tt.want)
		}
	}
}

func TestRotationAdd(t *testing.T) {
	if got := Rotation270.Add(90); got != Normal {
		t.Errorf("270 + 90 = %v, want 0", got)
	}
	if got := Normal.Add(-90); got != Rotation270 {
		t.Errorf("0 - 90 = %v, want 270", got)
	}
	if got := Rotation90.Add(45); got != Rotation90 {
		t.Errorf("90 + 45 = %v, want unchanged 90", got)
	}
}

func TestRotate90MatchesTables(t *testing.T) {
	for _, r := range []Rotation{Normal, Rotation90, Rotation180, Rotation270} {
		got := Rotate90(TextureCoords(r, false, false))
		want := TextureCoords(r.Add(90), false, false)
		if got != want {
			t.Errorf("Rotate90(%v) = %v, want %v", r, got, want)
		}
	}
}

func TestRotate90FourTimesIsIdentity(t *testing.T) {
	for _, r := range []Rotation{Normal, Rotation90, Rotation180, Rotation270} {
		for _, fh := range []bool{false, true} {
			for _, fv := range []bool{false, true} {
				q := TextureCoords(r, fh, fv)
				got := Rotate90(Rotate90(Rotate90(Rotate90(q))))
				if got != q {
					t.Errorf("4x Rotate90(%v, %v, %v) = %v, want %v", r, fh, fv, got, q)
				}
			}
		}
	}
}

func TestSwapsAxes(t *testing.T) {
	want := map[Rotation]bool{Normal: false, Rotation90: true, Rotation180: false, Rotation270: true}
	for r, w := range want {
		if got := r.SwapsAxes(); got != w {
			t.Errorf("%v.SwapsAxes() = %v, want %v", r, got, w)
		}
	}
}

func TestParseScaleType(t *testing.T) {
	tests := []struct {
		in      string
		want    ScaleType
		wantErr bool
	}{
		{"fit", Fit, false},
		{"FIT", Fit, false},
		{"center_crop", CenterCrop, false},
		{" crop ", CenterCrop, false},
		{"centercrop", CenterCrop, false},
		{"stretch", CenterCrop, true},
	}
	for _, tt := range tests {
		got, err := ParseScaleType(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseScaleType(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseScaleType(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
	if Fit.String() != "fit" || CenterCrop.String() != "center_crop" {
		t.Errorf("String() = %q/%q", Fit.String(), CenterCrop.String())
	}
}
