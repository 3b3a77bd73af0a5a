// asabin unpacks, repacks and patches the kernel command line of ASA
// firmware images (asaXXX.bin).
package main

import (
	"log"
	"os"
)

func main() {
	log.SetFlags(0)

	err := mainWithError()
	if err != nil {
		log.Fatalln("fatal:", err)
	}
}

func mainWithError() error {
	return newRootCommand(log.New(os.Stderr, "[bin] ", 0)).Execute()
}
