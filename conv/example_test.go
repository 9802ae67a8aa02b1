package conv_test

import (
	"fmt"

	"github.com/jancona/convsim/conv"
)

func ExampleEncode() {
	syms, err := conv.Encode([]conv.Bit{1, 0, 1, 1, 0, 0})
	if err != nil {
		panic(err)
	}
	fmt.Println(syms)
	// Output: [11 10 00 01 01 11]
}

func ExampleDecodeHardDP() {
	// 11 10 00 01 01 11 with the second coded bit of the third symbol flipped.
	rx := []conv.Symbol{conv.SymbolII, conv.SymbolIO, conv.SymbolOI, conv.SymbolOI, conv.SymbolOI, conv.SymbolII}
	bits, err := conv.DecodeHardDP(rx, len(rx), nil)
	if err != nil {
		panic(err)
	}
	fmt.Println(bits)
	// Output: [1 0 1 1 0 0]
}
