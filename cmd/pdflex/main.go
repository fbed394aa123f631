// Command pdflex is a CLI tool for inspecting and updating PDF files.
//
// Usage:
//
//	pdflex <command> [options] <args>
//
// Commands:
//
//	inspect  Show the structure of a PDF file
//	update   Append an incremental update to a PDF file
//	version  Show version information
//	help     Show help message
//
// Examples:
//
//	# Show the structure of a document
//	pdflex inspect document.pdf
//
//	# Inspect a damaged document, rebuilding the xref table
//	pdflex inspect -repair damaged.pdf
//
//	# Set document information entries from a config file
//	pdflex update -config meta.yaml input.pdf output.pdf
package main

import (
	"os"

	"github.com/pdflex/pdflex/cli"
)

// These variables are set at build time using ldflags:
//
//	go build -ldflags "-X main.version=1.0.0 -X main.buildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)" ./cmd/pdflex
var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	cli.Version = version
	cli.BuildTime = buildTime

	cli.Run(os.Args)
}
