package main

import (
	"fmt"
	"os"

	"github.com/rony4d/go-token-layer/cmd/tokend/launcher"
)

func main() {
	if err := launcher.Launch(os.Args); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}
