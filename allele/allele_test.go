package allele_test

import (
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/jemmacfen/pangraph/allele"
)

func TestWalkOrdersDeletionBeforeInsertion(t *testing.T) {
	subs := allele.SNPMap[string]{"n": {}}
	ins := allele.InsertMap[string]{"n": {{Pos: 4, Offset: 0}: []byte("AC")}}
	dels := allele.DeleteMap[string]{"n": {4: 2}}

	events := allele.Walk(subs, ins, dels, "n")
	qt.Assert(t, qt.Equals(len(events), 2))
	qt.Assert(t, qt.Equals(events[0].Kind, allele.KindDel))
	qt.Assert(t, qt.Equals(events[1].Kind, allele.KindIns))
}

func TestShift(t *testing.T) {
	subs := allele.SNPMap[string]{"n": {5: 'G'}}
	ins := allele.InsertMap[string]{"n": {{Pos: 3, Offset: 0}: []byte("T")}}
	dels := allele.DeleteMap[string]{"n": {7: 2}}

	s2, i2, d2 := allele.Shift(subs, ins, dels, 10)
	qt.Assert(t, qt.Equals(s2["n"][15], byte('G')))
	qt.Assert(t, qt.Equals(string(i2["n"][allele.GapKey{Pos: 13, Offset: 0}]), "T"))
	qt.Assert(t, qt.Equals(d2["n"][17], 2))
}

func TestRestrictClipsDeletion(t *testing.T) {
	dels := allele.DeleteMap[string]{"n": {4: 6}} // covers [4,10)
	_, _, d2 := allele.Restrict[string](nil, nil, dels, 0, 8)
	qt.Assert(t, qt.Equals(d2["n"][4], 4)) // clipped to [4,8)
}

func TestRestrictKeepsLeadingSentinelWhenLoIsZero(t *testing.T) {
	ins := allele.InsertMap[string]{"n": {{Pos: -1, Offset: 0}: []byte("G")}}
	_, i2, _ := allele.Restrict[string](nil, ins, nil, 0, 4)
	qt.Assert(t, qt.Equals(string(i2["n"][allele.GapKey{Pos: -1, Offset: 0}]), "G"))
}

func TestRestrictDropsLeadingSentinelWhenLoNonZero(t *testing.T) {
	ins := allele.InsertMap[string]{"n": {{Pos: -1, Offset: 0}: []byte("G")}}
	_, i2, _ := allele.Restrict[string](nil, ins, nil, 2, 6)
	_, ok := i2["n"][allele.GapKey{Pos: -1, Offset: 0}]
	qt.Assert(t, qt.IsFalse(ok))
}
