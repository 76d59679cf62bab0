package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rixian/drive-go/pkg/drive"
)

func main() {
	if err := execute(context.Background(), newRootCmd()); err != nil {
		exitOnError(err)
	}
}

// exitOnError prints a user-friendly error message to stderr and exits.
// API failures print the service's structured error body.
func exitOnError(err error) {
	var apiErr *drive.APIError
	if errors.As(err, &apiErr) {
		fmt.Fprintf(os.Stderr, "Error: %s\n", apiErr.Message)
	} else {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}

	os.Exit(1)
}
