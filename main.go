package main

import (
	"os"

	"github.com/mensylisir/xmdeploy/cmd"
)

func main() {
	os.Exit(cmd.Execute())
}
