package filter

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/bpf"
)

// ParseDecimal reads a program in the format printed by tcpdump -ddd: a line
// holding the instruction count, then one "code jt jf k" line per
// instruction. Blank lines and lines starting with # are skipped.
func ParseDecimal(r io.Reader) ([]bpf.RawInstruction, error) {
	sc := bufio.NewScanner(r)
	var (
		prog  []bpf.RawInstruction
		count = -1
		line  int
	)
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		fields := strings.Fields(text)

		if count < 0 {
			if len(fields) != 1 {
				return nil, fmt.Errorf("filter: line %d: expected instruction count, got %q", line, text)
			}
			n, err := strconv.Atoi(fields[0])
			if err != nil || n <= 0 {
				return nil, fmt.Errorf("filter: line %d: invalid instruction count %q", line, fields[0])
			}
			count = n
			prog = make([]bpf.RawInstruction, 0, n)
			continue
		}

		if len(fields) != 4 {
			return nil, fmt.Errorf("filter: line %d: expected 4 fields, got %d", line, len(fields))
		}
		var vals [4]uint64
		bits := [4]int{16, 8, 8, 32}
		for i, f := range fields {
			v, err := strconv.ParseUint(f, 10, bits[i])
			if err != nil {
				return nil, fmt.Errorf("filter: line %d: field %d: %w", line, i+1, err)
			}
			vals[i] = v
		}
		prog = append(prog, bpf.RawInstruction{
			Op: uint16(vals[0]),
			Jt: uint8(vals[1]),
			Jf: uint8(vals[2]),
			K:  uint32(vals[3]),
		})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("filter: read program: %w", err)
	}
	if count < 0 {
		return nil, fmt.Errorf("filter: empty program")
	}
	if len(prog) != count {
		return nil, fmt.Errorf("filter: header declares %d instructions, found %d", count, len(prog))
	}
	return prog, nil
}
