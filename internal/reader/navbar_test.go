package reader

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNavbar_Step(t *testing.T) {
	tests := []struct {
		name    string
		samples []int
		want    []NavbarState
	}{
		{
			name:    "hide past dead zone then show on scroll up",
			samples: []int{0, 120, 90},
			want:    []NavbarState{NavbarVisible, NavbarHidden, NavbarVisible},
		},
		{
			name:    "scrolling down inside dead zone holds",
			samples: []int{60, 80, 100},
			want:    []NavbarState{NavbarVisible, NavbarVisible, NavbarVisible},
		},
		{
			name:    "no movement holds hidden",
			samples: []int{200, 200},
			want:    []NavbarState{NavbarHidden, NavbarHidden},
		},
		{
			name:    "near top overrides direction",
			samples: []int{300, 40, 45},
			want:    []NavbarState{NavbarHidden, NavbarVisible, NavbarVisible},
		},
		{
			name:    "last position updates without transition",
			samples: []int{150, 90, 95, 101},
			want:    []NavbarState{NavbarHidden, NavbarVisible, NavbarVisible, NavbarHidden},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n := NewNavbar(DefaultNavbarOptions())
			assert.Equal(t, NavbarVisible, n.State())
			var got []NavbarState
			for _, y := range tt.samples {
				got = append(got, n.Step(y))
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNavbarState_String(t *testing.T) {
	assert.Equal(t, "visible", NavbarVisible.String())
	assert.Equal(t, "hidden", NavbarHidden.String())
}
