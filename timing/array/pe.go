package array

// Token is the control pair that travels alongside the data it gates. Valid
// marks a live compute cycle; Clear is sampled only on valid cycles and marks
// the first token of a new accumulation.
type Token struct {
	Valid bool
	Clear bool
}

// alignReg is one register of the stage-3 align chain: a product and its
// control token, one cycle further along.
type alignReg struct {
	prod int64
	tok  Token
}

// pe is one output-stationary processing element: a PipeLatency-deep MAC
// pipeline in front of a persistent accumulator.
//
// Stage 1 captures the west/north operands and the control token; the
// captured values double as the east/south forwarding registers, giving the
// one-cycle neighbor hop. Stage 2 multiplies, stage 3 is the align chain,
// stage 4 accumulates. Stages shift every cycle unconditionally; only the
// accumulator update is gated by the token.
type pe struct {
	// stage 1 latches, read by the east/south neighbors next cycle
	west  int32
	north int32
	tok   Token

	// stage 2 product register
	prod    int64
	prodTok Token

	// stage 3 align chain, PipeLatency-2 registers
	align []alignReg

	acc int64
}

// peInput is the per-cycle input bundle gathered for one PE from the
// previous-cycle snapshot of its west/north neighbors (or the skewed grid
// edge).
type peInput struct {
	west  int32
	north int32
	tok   Token
}

// step advances all four stages by one cycle.
func (p *pe) step(in peInput, clrLoadFirst bool) {
	// Stage 4: accumulate.
	tail := alignReg{prod: p.prod, tok: p.prodTok}
	if n := len(p.align); n > 0 {
		tail = p.align[n-1]
	}
	if tail.tok.Valid {
		switch {
		case tail.tok.Clear && clrLoadFirst:
			p.acc = tail.prod
		case tail.tok.Clear:
			p.acc = 0
		default:
			p.acc += tail.prod
		}
	}

	// Stage 3: align chain shift.
	for i := len(p.align) - 1; i > 0; i-- {
		p.align[i] = p.align[i-1]
	}
	if len(p.align) > 0 {
		p.align[0] = alignReg{prod: p.prod, tok: p.prodTok}
	}

	// Stage 2: multiply, gated to zero on invalid tokens.
	if p.tok.Valid {
		p.prod = int64(p.west) * int64(p.north)
	} else {
		p.prod = 0
	}
	p.prodTok = p.tok

	// Stage 1: capture and forward.
	p.west = in.west
	p.north = in.north
	p.tok = in.tok
}

// reset forces every register to zero.
func (p *pe) reset() {
	for i := range p.align {
		p.align[i] = alignReg{}
	}
	p.west, p.north, p.tok = 0, 0, Token{}
	p.prod, p.prodTok = 0, Token{}
	p.acc = 0
}
