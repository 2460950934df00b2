package reader

type NavbarState int

const (
	NavbarVisible NavbarState = iota
	NavbarHidden
)

func (s NavbarState) String() string {
	if s == NavbarHidden {
		return "hidden"
	}
	return "visible"
}

const (
	ShowTopThreshold = 50
	HideDeadZone     = 100
)

type NavbarOptions struct {
	ShowTopThreshold int
	HideDeadZone     int
}

func DefaultNavbarOptions() NavbarOptions {
	return NavbarOptions{ShowTopThreshold: ShowTopThreshold, HideDeadZone: HideDeadZone}
}

// Navbar shows the navigation bar when scrolling up or near the top and
// hides it when scrolling down past the dead zone. Any other movement keeps
// the current state.
type Navbar struct {
	opts  NavbarOptions
	state NavbarState
	lastY int
}

func NewNavbar(opts NavbarOptions) *Navbar {
	return &Navbar{opts: opts, state: NavbarVisible}
}

func (n *Navbar) Step(y int) NavbarState {
	switch {
	case y < n.lastY || y < n.opts.ShowTopThreshold:
		n.state = NavbarVisible
	case y > n.lastY && y > n.opts.HideDeadZone:
		n.state = NavbarHidden
	}
	n.lastY = y
	return n.state
}

func (n *Navbar) State() NavbarState { return n.state }
