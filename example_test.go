package capframe_test

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/bft-labs/capframe"
	"github.com/bft-labs/capframe/internal/pcaptest"
)

func ExampleNew() {
	capture := pcaptest.Capture(pcaptest.DefaultOptions(), pcaptest.Payloads(5, 60)...)

	src, err := capframe.New(bytes.NewReader(capture), capframe.WithBatchSize(2))
	if err != nil {
		fmt.Println(err)
		return
	}
	defer src.Close()

	for {
		rec, err := src.Next()
		if errors.Is(err, capframe.ErrNoMoreData) {
			break
		}
		if err != nil {
			fmt.Println(err)
			return
		}
		fmt.Println("rows:", rec.NumRows())
		rec.Release()
	}
	fmt.Println("columns:", src.Schema().NumFields())

	// Output:
	// rows: 2
	// rows: 2
	// rows: 1
	// columns: 5
}

func ExampleNew_notACapture() {
	_, err := capframe.New(bytes.NewReader(make([]byte, 24)))
	var fe *capframe.FormatError
	fmt.Println(errors.As(err, &fe), errors.Is(err, capframe.ErrFormat))

	// Output: true true
}
