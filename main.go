// Package main is the entry point for the file management deployment
// bootstrap service.
package main

import (
	"context"
	"fmt"
	"os"

	"filemanager/bootstrap"
	"filemanager/cmd"
)

// run executes the startup sequence and supervises the result.
func run() (int, error) {
	ctx := context.Background()

	app, err := bootstrap.NewApp(ctx)
	if err != nil {
		return 1, fmt.Errorf("failed to initialize application: %w", err)
	}

	if err := app.Start(ctx); err != nil {
		app.Shutdown()
		return 1, fmt.Errorf("failed to start application: %w", err)
	}

	code := app.WaitForShutdown()
	app.Shutdown()
	return code, nil
}

func main() {
	// CLI mode: post-deploy verification checks.
	if len(os.Args) > 1 && os.Args[1] == "verify" {
		os.Args = append([]string{os.Args[0]}, os.Args[2:]...)

		verifyCmd := cmd.NewVerifyCmd()
		if err := verifyCmd.Execute(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	os.Exit(code)
}
