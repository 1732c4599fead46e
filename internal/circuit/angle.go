package circuit

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Largest k for which formatAngle writes pi/2^k. The inverse QFT on 23
// counting qubits needs pi/2^22.
const maxPiPower = 30

var errEmptyAngle = errors.New("empty angle")

// parseAngle reads a cu1 angle: a plain number, or an optional sign, an
// optional coefficient ("3" or "3*"), "pi" and an optional "/d" divisor.
func parseAngle(s string) (float64, error) {
	s = strings.ToLower(strings.Join(strings.Fields(s), ""))
	if s == "" {
		return 0, errEmptyAngle
	}
	if v, err := strconv.ParseFloat(s, 64); err == nil {
		return v, nil
	}

	sign := 1.0
	body := s
	if rest, ok := strings.CutPrefix(body, "-"); ok {
		sign, body = -1, rest
	}

	num, den, hasDen := strings.Cut(body, "/")
	coeffText, ok := strings.CutSuffix(num, "pi")
	if !ok {
		return 0, fmt.Errorf("angle %q is not a number or a multiple of pi", s)
	}
	coeff := 1.0
	if coeffText = strings.TrimSuffix(coeffText, "*"); coeffText != "" {
		c, err := strconv.ParseFloat(coeffText, 64)
		if err != nil {
			return 0, fmt.Errorf("angle %q: bad coefficient", s)
		}
		coeff = c
	}
	divisor := 1.0
	if hasDen {
		d, err := strconv.ParseFloat(den, 64)
		if err != nil || d == 0 {
			return 0, fmt.Errorf("angle %q: bad divisor", s)
		}
		divisor = d
	}
	return sign * coeff * math.Pi / divisor, nil
}

// symbolic holds the angles formatAngle writes in pi notation: pi, 2*pi and
// every pi/2^k.
var symbolic = func() map[string]float64 {
	m := map[string]float64{"pi": math.Pi, "2*pi": 2 * math.Pi}
	for k := 1; k <= maxPiPower; k++ {
		m[fmt.Sprintf("pi/%d", 1<<k)] = math.Ldexp(math.Pi, -k)
	}
	return m
}()

// formatAngle writes theta as pi notation when it is ±pi·2^-k, which covers
// every inverse QFT rotation, and as a shortest round-trip float otherwise.
func formatAngle(theta float64) string {
	mag, sign := math.Abs(theta), ""
	if theta < 0 {
		sign = "-"
	}
	for text, v := range symbolic {
		if math.Abs(mag-v) < 1e-12*math.Max(1, v) && mag > 0 {
			return sign + text
		}
	}
	return strconv.FormatFloat(theta, 'g', -1, 64)
}
