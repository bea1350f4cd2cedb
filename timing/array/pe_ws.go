package array

// wsAlignReg is one register of the weight-stationary align chain. The
// incoming partial sum rides the pipeline next to the product so that both
// reach the accumulate stage on the same cycle.
type wsAlignReg struct {
	prod int64
	psum int64
	tok  Token
}

// wsPE is one weight-stationary processing element. The weight is held in a
// persistent register loaded during the weight-load phase; partial sums enter
// from the north, pick up west*weight, and leave south one full pipeline pass
// later. The stage-4 result register doubles as the southbound partial-sum
// output.
type wsPE struct {
	// stage 1 latches; west/tok forwarded east, wtop forwarded south
	west int32
	tok  Token
	psum int64
	wtop int32

	// stationary weight
	weight int32

	// stage 2 registers
	prod     int64
	prodPsum int64
	prodTok  Token

	// stage 3 align chain, PipeLatency-2 registers
	align []wsAlignReg

	// stage-4 result; also the partial sum the south neighbor reads
	acc int64
}

// wsInput is the per-cycle input bundle for one WS PE: the west operand and
// token, the partial sum from the north neighbor's stage-4 output (or the
// skewed injection edge for row 0), the downward weight-shift data, and the
// column's shift enable. The enable reaches every row of a column on the
// same cycle; only the weight data rides the latch chain, so each load
// cycle moves the whole column down by exactly one row.
type wsInput struct {
	west int32
	tok  Token
	psum int64
	wtop int32
	load bool
}

// step advances all four stages by one cycle.
func (p *wsPE) step(in wsInput) {
	// Stage 4: add the product to the pipelined partial sum. A clear-tagged
	// token seeds a fresh sum from the product alone.
	tail := wsAlignReg{prod: p.prod, psum: p.prodPsum, tok: p.prodTok}
	if n := len(p.align); n > 0 {
		tail = p.align[n-1]
	}
	if tail.tok.Valid {
		if tail.tok.Clear {
			p.acc = tail.prod
		} else {
			p.acc = tail.psum + tail.prod
		}
	}

	// Stage 3: align chain shift.
	for i := len(p.align) - 1; i > 0; i-- {
		p.align[i] = p.align[i-1]
	}
	if len(p.align) > 0 {
		p.align[0] = wsAlignReg{prod: p.prod, psum: p.prodPsum, tok: p.prodTok}
	}

	// Stage 2: multiply against the stationary weight.
	if p.tok.Valid {
		p.prod = int64(p.west) * int64(p.weight)
	} else {
		p.prod = 0
	}
	p.prodPsum = p.psum
	p.prodTok = p.tok

	// Stage 1: capture and forward. On a shift-enabled cycle the top path is
	// additionally latched into the stationary-weight register.
	p.west = in.west
	p.tok = in.tok
	p.psum = in.psum
	p.wtop = in.wtop
	if in.load {
		p.weight = in.wtop
	}
}

// reset forces every register to zero, including the stationary weight.
func (p *wsPE) reset() {
	for i := range p.align {
		p.align[i] = wsAlignReg{}
	}
	p.west, p.tok, p.psum = 0, Token{}, 0
	p.wtop, p.weight = 0, 0
	p.prod, p.prodPsum, p.prodTok = 0, 0, Token{}
	p.acc = 0
}
