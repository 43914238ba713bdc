// postal-inspect compares libpostal's parse of a raw address with the
// built-in normalizer, side by side. Useful when a batch produces
// unexpected unresolved records: libpostal's labels show which tokens the
// normalizer misread. Kept as a separate binary because libpostal links
// against a native library.
package main

import (
	"flag"
	"fmt"
	"os"

	expand "github.com/openvenues/gopostal/expand"
	postal "github.com/openvenues/gopostal/parser"

	"github.com/pricebot-pl/internal/normalize"
)

func main() {
	var (
		address    = flag.String("address", "", "Raw address to inspect")
		expansions = flag.Bool("expand", false, "Also print libpostal expansions")
	)
	flag.Parse()

	if *address == "" {
		fmt.Println("Usage: postal-inspect -address \"ul. Kwiatowa 5, Warszawa\" [-expand]")
		os.Exit(1)
	}

	fmt.Printf("Input: %s\n\n", *address)

	fmt.Println("libpostal components:")
	for _, component := range postal.ParseAddress(*address) {
		fmt.Printf("   %-15s: %s\n", component.Label, component.Value)
	}

	if *expansions {
		fmt.Println("\nlibpostal expansions:")
		for _, e := range expand.ExpandAddress(*address) {
			fmt.Printf("   %s\n", e)
		}
	}

	addr := normalize.Normalize(*address)
	fmt.Println("\nBuilt-in normalizer:")
	fmt.Printf("   %-15s: %s\n", "locality", addr.Locality)
	fmt.Printf("   %-15s: %s\n", "street", addr.Street)
	fmt.Printf("   %-15s: %s\n", "number", addr.Number)
	fmt.Printf("   %-15s: %s\n", "key", addr.Key)
}
