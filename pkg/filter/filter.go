package filter

import (
	"fmt"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"golang.org/x/net/bpf"

	"github.com/bft-labs/capframe/pkg/batch"
)

// Filter keeps the rows whose data column a BPF program accepts.
// A Filter is not safe for concurrent use.
type Filter struct {
	vm   *bpf.VM
	mem  memory.Allocator
	prog []bpf.Instruction

	seen uint64
	kept uint64
}

// New assembles raw into a Filter.
func New(raw []bpf.RawInstruction) (*Filter, error) {
	prog, ok := bpf.Disassemble(raw)
	if !ok {
		return nil, fmt.Errorf("filter: program contains instructions the VM cannot run")
	}
	return NewFromInstructions(prog)
}

// NewFromInstructions builds a Filter from an already decoded program.
func NewFromInstructions(prog []bpf.Instruction) (*Filter, error) {
	vm, err := bpf.NewVM(prog)
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	return &Filter{vm: vm, mem: memory.DefaultAllocator, prog: prog}, nil
}

// WithAllocator sets the allocator for filtered records and returns f.
func (f *Filter) WithAllocator(mem memory.Allocator) *Filter {
	if mem != nil {
		f.mem = mem
	}
	return f
}

// Match runs the program over one packet.
func (f *Filter) Match(data []byte) (bool, error) {
	n, err := f.vm.Run(data)
	if err != nil {
		return false, err
	}
	return n != 0, nil
}

// Apply returns a new record holding the rows of rec that match, in order and
// with their packet numbers unchanged. The result may have zero rows. rec is
// not released.
func (f *Filter) Apply(rec arrow.Record) (arrow.Record, error) {
	p, err := batch.PrecisionOf(rec.Schema())
	if err != nil {
		return nil, err
	}
	v, err := batch.NewView(rec)
	if err != nil {
		return nil, err
	}

	b := batch.NewBuilder(f.mem, p, 0)
	defer b.Release()

	for i := 0; i < v.Len(); i++ {
		row := v.Row(i)
		ok, err := f.Match(row.Data)
		if err != nil {
			b.Discard()
			return nil, fmt.Errorf("filter: packet %d: %w", row.PacketNumber, err)
		}
		f.seen++
		if ok {
			b.AppendRow(row)
			f.kept++
		}
	}
	return b.Finish(), nil
}

// Seen returns the number of rows evaluated.
func (f *Filter) Seen() uint64 { return f.seen }

// Kept returns the number of rows that matched.
func (f *Filter) Kept() uint64 { return f.kept }

// Len returns the number of instructions in the program.
func (f *Filter) Len() int { return len(f.prog) }
