package availability

import "testing"

func TestParseWindow(t *testing.T) {
	tests := []struct {
		in      string
		want    Window
		wantErr bool
	}{
		{"9-18", Window{9, 18}, false},
		{" 22 - 6 ", Window{22, 6}, false},
		{"0-24", Window{0, 24}, false},
		{"9", Window{}, true},
		{"a-18", Window{}, true},
		{"9-b", Window{}, true},
		{"9-25", Window{9, 25}, true},
		{"-1-5", Window{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseWindow(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseWindow(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParseWindow(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestWindowContains(t *testing.T) {
	tests := []struct {
		w    Window
		in   []int
		out  []int
		name string
	}{
		{Window{9, 18}, []int{9, 12, 17}, []int{8, 18, 23}, "day"},
		{Window{22, 6}, []int{22, 23, 0, 5}, []int{6, 12, 21}, "night"},
		{Window{7, 7}, nil, []int{0, 7, 23}, "empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, h := range tt.in {
				if !tt.w.Contains(h) {
					t.Errorf("%v should contain %d", tt.w, h)
				}
			}
			for _, h := range tt.out {
				if tt.w.Contains(h) {
					t.Errorf("%v should not contain %d", tt.w, h)
				}
			}
		})
	}
}

func TestParseFilter(t *testing.T) {
	for in, want := range map[string]Filter{"workday": FilterWorkday, "WEEKEND": FilterWeekend, " holiday ": FilterHoliday, "": FilterWorkday} {
		got, err := ParseFilter(in)
		if err != nil || got != want {
			t.Errorf("ParseFilter(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := ParseFilter("vacation"); err == nil {
		t.Error("ParseFilter(vacation) should fail")
	}
}
