package config

import (
	"fmt"
	"strconv"
	"strings"
)

// ParamRange is the exponent range of the tuning sweep: alpha = 2^i for i in
// [AlphaStart, AlphaEnd], beta = 2^j for j in [BetaStart, BetaEnd].
type ParamRange struct {
	AlphaStart, AlphaEnd int
	BetaStart, BetaEnd   int

	set bool
}

func (r *ParamRange) String() string {
	if r == nil {
		return ""
	}
	return fmt.Sprintf("%d:%d:%d:%d", r.AlphaStart, r.AlphaEnd, r.BetaStart, r.BetaEnd)
}

// Set parses "As:Ae:Bs:Be".
func (r *ParamRange) Set(s string) error {
	parts := strings.Split(s, ":")
	if len(parts) != 4 {
		return fmt.Errorf("expected As:Ae:Bs:Be, got %q", s)
	}
	var v [4]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return fmt.Errorf("bad range %q: %w", s, err)
		}
		v[i] = n
	}
	*r = ParamRange{AlphaStart: v[0], AlphaEnd: v[1], BetaStart: v[2], BetaEnd: v[3], set: true}
	return nil
}

// Decode reads the PARAMRANGE variable.
func (r *ParamRange) Decode(value string) error { return r.Set(value) }

func (r *ParamRange) UnmarshalText(text []byte) error { return r.Set(string(text)) }

func (r ParamRange) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

func (r *ParamRange) check() error {
	if r.AlphaStart < 0 || r.BetaStart < 0 || r.AlphaEnd > 62 || r.BetaEnd > 62 {
		return fmt.Errorf("parameter range %s outside [0, 62]", r)
	}
	if r.AlphaStart > r.AlphaEnd || r.BetaStart > r.BetaEnd {
		return fmt.Errorf("empty parameter range %s", r)
	}
	return nil
}

// Pairs lists every (alpha, beta) of the sweep, alpha major.
func (r *ParamRange) Pairs() (out [][2]int64) {
	for i := r.AlphaStart; i <= r.AlphaEnd; i++ {
		for j := r.BetaStart; j <= r.BetaEnd; j++ {
			out = append(out, [2]int64{int64(1) << i, int64(1) << j})
		}
	}
	return out
}
