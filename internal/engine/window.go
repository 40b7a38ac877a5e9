package engine

import (
	"eventsds/internal/model"
)

// Geometry is the window layout in Tu units:
// OW = [t0, t0+OW), a lead gap of LT, then PW = [t0+OW+LT, t0+OW+LT+PW).
type Geometry struct {
	Tu int64
	OW int64
	LT int64
	PW int64
}

func (g Geometry) Validate() error {
	if g.Tu <= 0 {
		return model.ConfigErrorf("tu must be > 0, got %d", g.Tu)
	}
	if g.OW <= 0 {
		return model.ConfigErrorf("ow must be > 0, got %d", g.OW)
	}
	if g.PW <= 0 {
		return model.ConfigErrorf("pw must be > 0, got %d", g.PW)
	}
	if g.LT < 0 {
		return model.ConfigErrorf("lt must be >= 0, got %d", g.LT)
	}
	return nil
}

// Span is the total window length in seconds.
func (g Geometry) Span() int64 {
	return (g.OW + g.LT + g.PW) * g.Tu
}

func (g Geometry) owEnd(t0 int64) int64   { return t0 + g.OW*g.Tu }
func (g Geometry) pwStart(t0 int64) int64 { return t0 + (g.OW+g.LT)*g.Tu }
func (g Geometry) pwEnd(t0 int64) int64   { return t0 + g.Span() }

// Window is one candidate resolved to half-open row ranges of the stream.
// PWHead is the end of the first Tu of the prediction window.
type Window struct {
	T0     int64
	OW0    int
	OW1    int
	PW0    int
	PW1    int
	PWHead int
}

// cursor is a forward-only lower-bound search over sorted times. Seeking to
// non-decreasing targets costs O(N) in total across all calls.
type cursor struct {
	times []int64
	pos   int
}

func (c *cursor) seek(t int64) int {
	for c.pos < len(c.times) && c.times[c.pos] < t {
		c.pos++
	}
	return c.pos
}

// locator resolves monotonic window starts to row ranges.
type locator struct {
	geom    Geometry
	owStart cursor
	owEnd   cursor
	pwStart cursor
	pwHead  cursor
	pwEnd   cursor
}

func newLocator(times []int64, geom Geometry) *locator {
	return &locator{
		geom:    geom,
		owStart: cursor{times: times},
		owEnd:   cursor{times: times},
		pwStart: cursor{times: times},
		pwHead:  cursor{times: times},
		pwEnd:   cursor{times: times},
	}
}

func (l *locator) locate(t0 int64) Window {
	g := l.geom
	pw0 := g.pwStart(t0)
	return Window{
		T0:     t0,
		OW0:    l.owStart.seek(t0),
		OW1:    l.owEnd.seek(g.owEnd(t0)),
		PW0:    l.pwStart.seek(pw0),
		PW1:    l.pwEnd.seek(g.pwEnd(t0)),
		PWHead: l.pwHead.seek(pw0 + g.Tu),
	}
}

// nanIndex answers "does [i0, i1) contain a row with a NaN sentinel" in O(1)
// from a prefix count over the whole stream.
type nanIndex struct {
	prefix []int
}

func newNaNIndex(s *model.EventStream, nanCodes []int32) *nanIndex {
	sentinel := make(map[int32]struct{}, len(nanCodes))
	for _, c := range nanCodes {
		sentinel[c] = struct{}{}
	}
	prefix := make([]int, s.Len()+1)
	for i := 0; i < s.Len(); i++ {
		hit := 0
		for _, code := range s.Row(i) {
			if _, ok := sentinel[code]; ok {
				hit = 1
				break
			}
		}
		prefix[i+1] = prefix[i] + hit
	}
	return &nanIndex{prefix: prefix}
}

func (n *nanIndex) contains(i0, i1 int) bool {
	if i0 >= i1 {
		return false
	}
	return n.prefix[i1]-n.prefix[i0] > 0
}
