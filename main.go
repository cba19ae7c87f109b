package main

import (
	"github.com/rsharma-dev/order-settlement/cmd"
)

func main() {
	cmd.Execute()
}
