// Package cli provides the command-line interface for inspecting and
// updating PDF files.
package cli

import (
	"fmt"
	"os"
)

// Version information
var (
	Version   = "dev"
	BuildTime = "unknown"
)

// osExit is a variable for os.Exit to allow testing
var osExit = os.Exit

// Run executes the CLI with the given arguments.
// This is the main entry point for the CLI.
func Run(args []string) {
	if len(args) < 2 {
		Usage()
		return
	}

	command := args[1]

	switch command {
	case "inspect":
		InspectCommand(args)
	case "update":
		UpdateCommand(args)
	case "version":
		VersionCommand()
	case "help", "-h", "--help":
		Usage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", command)
		Usage()
		osExit(1)
	}
}

// Usage prints the CLI usage information.
func Usage() {
	fmt.Printf("pdflex - PDF inspection and update tool\n\n")
	fmt.Printf("Usage: %s <command> [options] <args>\n\n", os.Args[0])
	fmt.Println("Commands:")
	fmt.Println("  inspect  Show the structure of a PDF file")
	fmt.Println("  update   Append an incremental update to a PDF file")
	fmt.Println("  version  Show version information")
	fmt.Println("  help     Show this help message")
	fmt.Println("")
	fmt.Printf("Use '%s <command> -h' for command-specific help\n", os.Args[0])
	fmt.Println("")
	fmt.Println("Examples:")
	fmt.Printf("  %s inspect document.pdf\n", os.Args[0])
	fmt.Printf("  %s inspect -json -repair damaged.pdf\n", os.Args[0])
	fmt.Printf("  %s update -config meta.yaml input.pdf output.pdf\n", os.Args[0])
}

// VersionCommand prints version information.
func VersionCommand() {
	fmt.Printf("pdflex version %s\n", Version)
	fmt.Printf("Build time: %s\n", BuildTime)
}
