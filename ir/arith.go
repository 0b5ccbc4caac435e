package ir

import "math/big"

// Whitespace arithmetic uses floored division: the quotient rounds toward
// negative infinity and the remainder takes the divisor's sign. Callers
// must reject a zero divisor first.

// FloorDiv returns x divided by y, rounded toward negative infinity.
func FloorDiv(x, y *big.Int) *big.Int {
	q, r := new(big.Int).QuoRem(x, y, new(big.Int))
	if r.Sign() != 0 && (x.Sign() < 0) != (y.Sign() < 0) {
		q.Sub(q, big.NewInt(1))
	}
	return q
}

// FloorMod returns x modulo y with the divisor's sign.
func FloorMod(x, y *big.Int) *big.Int {
	r := new(big.Int).Rem(x, y)
	if r.Sign() != 0 && (x.Sign() < 0) != (y.Sign() < 0) {
		r.Add(r, y)
	}
	return r
}
