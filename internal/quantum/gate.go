package quantum

import "fmt"

// GateKind names a gate variant. The values match the lowercase OpenQASM
// mnemonics once lowered.
type GateKind string

const (
	KindH    GateKind = "H"
	KindX    GateKind = "X"
	KindSwap GateKind = "SWAP"
	KindCU1  GateKind = "CU1"
)

// Gate is a single unitary operation. Target is always set; Control is the
// second operand for SWAP and the control qubit for CU1, and -1 otherwise.
type Gate struct {
	Kind    GateKind
	Target  int
	Control int
	Theta   float64
}

// Hadamard returns H on qubit q.
func Hadamard(q int) Gate {
	return Gate{Kind: KindH, Target: q, Control: -1}
}

// PauliX returns X on qubit q.
func PauliX(q int) Gate {
	return Gate{Kind: KindX, Target: q, Control: -1}
}

// Swap exchanges qubits q1 and q2.
func Swap(q1, q2 int) Gate {
	return Gate{Kind: KindSwap, Target: q2, Control: q1}
}

// ControlledPhase returns CU1(theta) with the given control and target.
func ControlledPhase(theta float64, control, target int) Gate {
	return Gate{Kind: KindCU1, Target: target, Control: control, Theta: theta}
}

// Qubits lists the qubit operands of the gate, control first.
func (g Gate) Qubits() []int {
	if g.Control >= 0 {
		return []int{g.Control, g.Target}
	}
	return []int{g.Target}
}

// References reports whether the gate touches the given qubit.
func (g Gate) References(qubit int) bool {
	return g.Target == qubit || g.Control == qubit
}

func (g Gate) String() string {
	switch g.Kind {
	case KindSwap:
		return fmt.Sprintf("SWAP(q%d, q%d)", g.Control, g.Target)
	case KindCU1:
		return fmt.Sprintf("CU1(%g; q%d -> q%d)", g.Theta, g.Control, g.Target)
	default:
		return fmt.Sprintf("%s(q%d)", g.Kind, g.Target)
	}
}
