// Package filter drops rows from packet batches with a classic BPF program.
//
// Filtering runs on finished batches, after the Source has produced them.
// Programs are usually compiled by tcpdump:
//
//	tcpdump -ddd -y EN10MB 'tcp port 443' > https.bpf
//
// and loaded with [ParseDecimal]:
//
//	raw, err := filter.ParseDecimal(f)
//	flt, err := filter.New(raw)
//	out, err := flt.Apply(rec)
//
// # Version
//
// Current version: 1.0.0
// Minimum compatible version: 1.0.0
package filter
