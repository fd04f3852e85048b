package dispatch

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestPolarityZeroValueArmsRising(t *testing.T) {
	c := qt.New(t)
	var p Polarity
	c.Assert(p.Armed(), qt.Equals, EdgeRising)
}

func TestPolarityToggle(t *testing.T) {
	c := qt.New(t)
	var p Polarity

	c.Assert(p.Toggle(), qt.Equals, EdgeRising)
	c.Assert(p.Armed(), qt.Equals, EdgeFalling)
	c.Assert(p.Toggle(), qt.Equals, EdgeFalling)
	c.Assert(p.Armed(), qt.Equals, EdgeRising)
}

func TestPolarityArm(t *testing.T) {
	c := qt.New(t)
	var p Polarity
	p.Arm(EdgeFalling)
	c.Assert(p.Armed(), qt.Equals, EdgeFalling)
	c.Assert(p.Toggle(), qt.Equals, EdgeFalling)
}

func TestEdgeString(t *testing.T) {
	c := qt.New(t)
	c.Assert(EdgeRising.String(), qt.Equals, "RISING")
	c.Assert(EdgeFalling.String(), qt.Equals, "FALLING")
}
