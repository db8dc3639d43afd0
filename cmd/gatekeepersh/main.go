package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/dbsentinel/pggatekeeper/pkg/policy"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		var d *policy.Denial
		if errors.As(err, &d) {
			fmt.Fprintf(os.Stderr, "DENIED: %s\n", d.Error())
		} else {
			fmt.Fprintf(os.Stderr, "error: %s\n", err.Error())
		}
		os.Exit(1)
	}
}
