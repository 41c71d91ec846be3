package main

import (
	"tokend/cmd"
)

func main() {
	cmd.Execute()
}
