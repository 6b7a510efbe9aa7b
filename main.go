package main

import (
	"os"

	"github.com/hicommonwealth/ethrelay/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
