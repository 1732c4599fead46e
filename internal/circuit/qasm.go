package circuit

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"qtermpi/internal/quantum"
)

// Pre-compiled regexps for QASM parsing.
var (
	singleGateRegex    = regexp.MustCompile(`^(\w+)\s+q\[(\d+)\];?$`)
	twoQubitRegex      = regexp.MustCompile(`^(\w+)\s+q\[(\d+)\],\s*q\[(\d+)\];?$`)
	twoQubitParamRegex = regexp.MustCompile(`^(\w+)\s*\(([^)]*)\)\s+q\[(\d+)\],\s*q\[(\d+)\];?$`)
	measureRegex       = regexp.MustCompile(`^measure\s+q\[(\d+)\]\s*->\s*\w+\[(\d+)\];?$`)
	qregRegex          = regexp.MustCompile(`^qreg\s+\w+\[(\d+)\];?$`)
)

// ToQASM renders the circuit as OpenQASM 2.0, one gate per line, with
// measurements of the declared qubits into a classical register of the
// same size.
func (c *Circuit) ToQASM() string {
	numCbits := max(len(c.Measured), 1)

	var sb strings.Builder
	sb.WriteString("OPENQASM 2.0;\n")
	sb.WriteString("include \"qelib1.inc\";\n\n")
	fmt.Fprintf(&sb, "qreg q[%d];\n", c.NumQubits)
	fmt.Fprintf(&sb, "creg c[%d];\n\n", numCbits)

	for _, gate := range c.Gates {
		switch gate.Kind {
		case quantum.KindSwap:
			fmt.Fprintf(&sb, "swap q[%d], q[%d];\n", gate.Control, gate.Target)
		case quantum.KindCU1:
			fmt.Fprintf(&sb, "cu1(%s) q[%d], q[%d];\n", formatAngle(gate.Theta), gate.Control, gate.Target)
		default:
			fmt.Fprintf(&sb, "%s q[%d];\n", strings.ToLower(string(gate.Kind)), gate.Target)
		}
	}

	for cbit, q := range c.Measured {
		fmt.Fprintf(&sb, "measure q[%d] -> c[%d];\n", q, cbit)
	}

	return sb.String()
}

// ParseQASM reads back the subset of OpenQASM 2.0 that ToQASM writes:
// h, x, swap, cu1 and measure over a single qreg. Anything else is an error.
func ParseQASM(qasm string) (*Circuit, error) {
	c := &Circuit{}
	haveQreg := false

	for lineNo, line := range strings.Split(qasm, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		if strings.HasPrefix(line, "OPENQASM") ||
			strings.HasPrefix(line, "include") ||
			strings.HasPrefix(line, "creg") ||
			strings.HasPrefix(line, "barrier") {
			continue
		}

		if matches := qregRegex.FindStringSubmatch(line); matches != nil {
			n, _ := strconv.Atoi(matches[1])
			c.NumQubits = n
			haveQreg = true
			continue
		}

		gate, measured, err := parseGateLine(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo+1, err)
		}
		if measured >= 0 {
			c.Measure(measured)
			continue
		}
		c.Add(gate)
	}

	if !haveQreg {
		return nil, fmt.Errorf("%w: missing qreg declaration", quantum.ErrInvalidConfiguration)
	}
	for i, g := range c.Gates {
		for _, q := range g.Qubits() {
			if q >= c.NumQubits {
				return nil, fmt.Errorf("%w: gate %d (%s) on a %d-qubit register", quantum.ErrInvalidQubitIndex, i, g, c.NumQubits)
			}
		}
	}
	for cbit, q := range c.Measured {
		if q >= c.NumQubits {
			return nil, fmt.Errorf("%w: measurement %d of q[%d] on a %d-qubit register", quantum.ErrInvalidQubitIndex, cbit, q, c.NumQubits)
		}
	}
	return c, nil
}

// parseGateLine parses one gate or measure statement. For a measurement it
// returns the measured qubit; otherwise measured is -1.
func parseGateLine(line string) (gate quantum.Gate, measured int, err error) {
	if matches := measureRegex.FindStringSubmatch(line); matches != nil {
		q, _ := strconv.Atoi(matches[1])
		return quantum.Gate{}, q, nil
	}

	if matches := twoQubitParamRegex.FindStringSubmatch(line); matches != nil {
		name := strings.ToUpper(matches[1])
		if name != "CU1" && name != "CP" {
			return quantum.Gate{}, -1, fmt.Errorf("unsupported gate %q", matches[1])
		}
		theta, err := parseAngle(matches[2])
		if err != nil {
			return quantum.Gate{}, -1, err
		}
		control, _ := strconv.Atoi(matches[3])
		target, _ := strconv.Atoi(matches[4])
		return quantum.ControlledPhase(theta, control, target), -1, nil
	}

	if matches := twoQubitRegex.FindStringSubmatch(line); matches != nil {
		if strings.ToUpper(matches[1]) != "SWAP" {
			return quantum.Gate{}, -1, fmt.Errorf("unsupported gate %q", matches[1])
		}
		q1, _ := strconv.Atoi(matches[2])
		q2, _ := strconv.Atoi(matches[3])
		return quantum.Swap(q1, q2), -1, nil
	}

	if matches := singleGateRegex.FindStringSubmatch(line); matches != nil {
		target, _ := strconv.Atoi(matches[2])
		switch strings.ToUpper(matches[1]) {
		case "H":
			return quantum.Hadamard(target), -1, nil
		case "X":
			return quantum.PauliX(target), -1, nil
		}
		return quantum.Gate{}, -1, fmt.Errorf("unsupported gate %q", matches[1])
	}

	return quantum.Gate{}, -1, fmt.Errorf("cannot parse %q", line)
}
