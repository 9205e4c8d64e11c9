package align_test

import (
	"errors"
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/jemmacfen/pangraph/align"
)

func TestParseCigarRoundTrips(t *testing.T) {
	cases := []string{"8M", "4M5D3M", "4I4M4D4M", ""}
	for _, s := range cases {
		c, err := align.ParseCigar(s)
		qt.Assert(t, qt.IsNil(err))
		qt.Assert(t, qt.Equals(c.String(), s))
	}
}

func TestParseCigarRejectsUnsupportedOp(t *testing.T) {
	_, err := align.ParseCigar("8M4S")
	qt.Assert(t, qt.IsNotNil(err))
	var opErr *align.UnsupportedOpError
	qt.Assert(t, qt.IsTrue(errors.As(err, &opErr)))
	qt.Assert(t, qt.Equals(opErr.Op, byte('S')))
}

func TestParseCigarRejectsMalformedInput(t *testing.T) {
	_, err := align.ParseCigar("M8")
	qt.Assert(t, qt.IsNotNil(err))

	_, err = align.ParseCigar("8")
	qt.Assert(t, qt.IsNotNil(err))
}

func TestAcceptRejectsShortAlignments(t *testing.T) {
	a := align.Alignment{Length: 50, Matches: 50}
	qt.Assert(t, qt.IsFalse(align.Accept(a)))
}

func TestAcceptAndEnergyOnCleanFullLengthAlignment(t *testing.T) {
	a := align.Alignment{
		Qry:     align.Hit{Len: 1000, Start: 0, Stop: 1000},
		Ref:     align.Hit{Len: 1000, Start: 0, Stop: 1000},
		Length:  1000,
		Matches: 1000,
	}
	qt.Assert(t, qt.Equals(align.Energy(a), -1000.0))
	qt.Assert(t, qt.IsTrue(align.Accept(a)))
}

func TestEnergyPenalizesClipsAndMismatches(t *testing.T) {
	a := align.Alignment{
		Qry:     align.Hit{Len: 1000, Start: 100, Stop: 900},
		Ref:     align.Hit{Len: 500, Start: 0, Stop: 500},
		Length:  500,
		Matches: 490,
	}
	// clipped ends: qry start>0, qry stop<len -> 2 clips; ref flush on
	// both ends -> 0. mismatches = 500-490 = 10.
	want := -500.0 + 100*2 + 20*10
	qt.Assert(t, qt.Equals(align.Energy(a), want))
}
