// Package plan partitions a set of registers into the minimal ordered
// list of contiguous read requests. Fewer requests means less load on the
// device, which is the whole point.
package plan

import (
	"sort"

	"github.com/TacoronteRiveroCristian/ModbusController/catalog"
)

// Group is one wire read request: a contiguous run of registers sharing
// one function code. Geometry plus the registers that decode out of it.
type Group struct {
	FC       uint8
	Start    uint16
	Quantity uint16

	Registers []catalog.Register
}

// End returns the first address past the group's span.
func (g Group) End() uint16 {
	return g.Start + g.Quantity
}

// Build sorts the registers by (function code, address) and scans them
// into groups. A register joins the current group only when its address
// continues the group's span exactly and the widened span still fits in
// maxWords. Registers wider than maxWords are never split: they get a
// group of their own and are not eligible for merging.
func Build(regs []catalog.Register, maxWords uint16) []Group {
	if len(regs) == 0 {
		return nil
	}

	sorted := make([]catalog.Register, len(regs))
	copy(sorted, regs)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].FunctionCode != sorted[j].FunctionCode {
			return sorted[i].FunctionCode < sorted[j].FunctionCode
		}
		return sorted[i].Address < sorted[j].Address
	})

	var groups []Group
	cur := newGroup(sorted[0])

	for _, r := range sorted[1:] {
		if fits(cur, r, maxWords) {
			cur.Quantity = r.Address + r.Words() - cur.Start
			cur.Registers = append(cur.Registers, r)
			continue
		}
		groups = append(groups, cur)
		cur = newGroup(r)
	}
	return append(groups, cur)
}

func newGroup(r catalog.Register) Group {
	return Group{
		FC:        r.FunctionCode,
		Start:     r.Address,
		Quantity:  r.Words(),
		Registers: []catalog.Register{r},
	}
}

// fits reports whether r extends g without a gap, an overlap, or a span
// wider than maxWords. Registers at identical addresses (a catalog
// misconfiguration the caller chose to keep) never merge; each reads on
// its own.
func fits(g Group, r catalog.Register, maxWords uint16) bool {
	if r.FunctionCode != g.FC {
		return false
	}
	if r.Address != g.End() {
		return false
	}
	if r.Words() > maxWords {
		return false
	}
	span := uint32(r.Address) + uint32(r.Words()) - uint32(g.Start)
	return span <= uint32(maxWords)
}
