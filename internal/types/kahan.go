package types

// KahanSum is a compensated float64 accumulator. Sums of many small
// durations stay within 1e-6 of the exact value regardless of order.
type KahanSum struct {
	sum float64
	c   float64
}

func (k *KahanSum) Add(x float64) {
	y := x - k.c
	t := k.sum + y
	k.c = (t - k.sum) - y
	k.sum = t
}

func (k *KahanSum) Value() float64 { return k.sum }
