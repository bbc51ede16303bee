package graph

// nextColor hands out the least used color, lowest index on ties. Colors are
// numbered from one.
func (r *Renderer) nextColor() uint8 {
	best := 0
	for i, n := range r.colorRefs {
		if n < r.colorRefs[best] {
			best = i
		}
	}
	r.colorRefs[best]++
	return uint8(best + 1)
}

func (r *Renderer) releaseColor(c uint8) {
	if c == 0 || int(c) > len(r.colorRefs) {
		return
	}
	if r.colorRefs[c-1] > 0 {
		r.colorRefs[c-1]--
	}
}

// ColorUse returns how many columns currently hold each color.
func (r *Renderer) ColorUse() []int {
	out := make([]int, len(r.colorRefs))
	copy(out, r.colorRefs)
	return out
}
