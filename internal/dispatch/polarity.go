package dispatch

// Edge is an echo line transition.
type Edge int

const (
	EdgeRising Edge = iota
	EdgeFalling
)

func (e Edge) String() string {
	if e == EdgeFalling {
		return "FALLING"
	}
	return "RISING"
}

// Polarity tracks which echo edge the next level-change interrupt reports.
// The zero value arms the rising edge.
type Polarity struct {
	armed Edge
}

// Armed returns the edge expected next.
func (p *Polarity) Armed() Edge {
	return p.armed
}

// Arm sets the edge expected next.
func (p *Polarity) Arm(e Edge) {
	p.armed = e
}

// Toggle flips the armed edge and returns the edge that was armed before.
func (p *Polarity) Toggle() Edge {
	prev := p.armed
	if prev == EdgeRising {
		p.armed = EdgeFalling
	} else {
		p.armed = EdgeRising
	}
	return prev
}
