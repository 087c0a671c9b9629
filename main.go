package main

import (
	"fmt"
	"os"

	"github.com/authgate/authgate/app"
)

func main() {
	if err := app.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
