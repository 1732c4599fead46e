package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"gopkg.in/yaml.v3"

	"qtermpi/internal/estimator"
)

// ValidFormats lists the accepted --format values.
var ValidFormats = []string{"text", "json", "yaml"}

// Report is the structured result of one sweep.
type Report struct {
	RunID     string                `json:"run_id" yaml:"run_id"`
	Version   string                `json:"version" yaml:"version"`
	Sampler   string                `json:"sampler" yaml:"sampler"`
	Shots     int                   `json:"shots" yaml:"shots"`
	Seed      uint64                `json:"seed" yaml:"seed"`
	Estimates []estimator.Estimate `json:"estimates" yaml:"estimates"`
}

// Response wraps a Report for json and yaml output.
type Response struct {
	Status string  `json:"status" yaml:"status"`
	Data   *Report `json:"data,omitempty" yaml:"data,omitempty"`
}

// writeReport prints r in the given format. Text output is one line per
// qubit count.
func writeReport(w io.Writer, format string, r *Report) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(Response{Status: "ok", Data: r})
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(Response{Status: "ok", Data: r}); err != nil {
			return err
		}
		return enc.Close()
	case "text", "":
		st := newStyles(w)
		for _, est := range r.Estimates {
			if _, err := fmt.Fprintln(w, estimateLine(st, est)); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("unknown format %q, want one of %s", format, strings.Join(ValidFormats, ", "))
}

func estimateLine(st styles, est estimator.Estimate) string {
	label := st.qubitLabel.Render(fmt.Sprintf("%d qubits", est.Qubits))
	if est.Degenerate {
		return label + ", pi ≈ " + st.degenerate.Render("undefined (all-zero outcome ") +
			st.bitstring.Render(est.Bitstring) + st.degenerate.Render(")")
	}
	return label + ", pi ≈ " + st.value.Render(formatValue(est.Value))
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// printer groups digits in counts shown to people, e.g. 10,000 shots.
var printer = message.NewPrinter(language.English)

func formatCount(n int) string {
	return printer.Sprintf("%d", n)
}
