// Command fastcat decodes a stream of FAST messages using a template
// definition and prints each message in the chosen output format.
package main

import "os"

func main() {
	os.Exit(run(ParseFlags(os.Args[1:])))
}
