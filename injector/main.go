// injector installs a debug shell into the lina executable of an ASA
// firmware and, for virtual appliances, disables the signature check
// done by lina_monitor.
package main

import (
	"log"
	"os"
)

const (
	dbEnv      = "ASAFW_DB"
	cbHostEnv  = "ASAFW_CBHOST"
	cbPortEnv  = "ASAFW_CBPORT"
	verboseEnv = "ASAFW_VERBOSE"

	defaultCBHost = "192.168.210.78"
	defaultCBPort = 4444
)

func main() {
	log.SetFlags(0)

	err := mainWithError()
	if err != nil {
		log.Fatalln("fatal:", err)
	}
}

func mainWithError() error {
	return newRootCommand(log.New(os.Stderr, "[lina] ", 0), os.Stdout).Execute()
}
