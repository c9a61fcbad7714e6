package main

import (
	"os"

	askdoccmder "github.com/askdocco/askdoc/cmd/askdoc"
)

func main() {
	cmd := askdoccmder.NewAskdocCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
