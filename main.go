package main

import (
	"os"

	"github.com/scan-web/cspaudit/cmd"
)

func main() {
	code := cmd.Execute()
	os.Exit(code)
}
