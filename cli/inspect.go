package cli

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/pdflex/pdflex/pdf/generic"
	"github.com/pdflex/pdflex/pdf/reader"
)

// InspectOptions contains options for the inspect command.
type InspectOptions struct {
	Repair bool
	JSON   bool
}

// InspectOutput is the structural summary of a PDF file.
type InspectOutput struct {
	File      string `json:"file"`
	Version   string `json:"version"`
	Pages     int    `json:"pages"`
	Encrypted bool   `json:"encrypted"`
	Repaired  bool   `json:"repaired,omitempty"`

	Objects           int `json:"objects"`
	FreeObjects       int `json:"free_objects"`
	CompressedObjects int `json:"compressed_objects"`

	DocumentID string            `json:"document_id,omitempty"`
	Info       map[string]string `json:"info,omitempty"`

	XRefSections []XRefSectionSummary `json:"xref_sections"`
	Signatures   []SignatureSummary   `json:"signatures,omitempty"`
}

// XRefSectionSummary describes one revision's cross-reference section.
type XRefSectionSummary struct {
	Format  string `json:"format"`
	Offset  int64  `json:"offset"`
	Entries int    `json:"entries"`
}

// SignatureSummary describes one embedded signature.
type SignatureSummary struct {
	Field        string `json:"field,omitempty"`
	SubFilter    string `json:"sub_filter,omitempty"`
	SigningTime  string `json:"signing_time,omitempty"`
	Reason       string `json:"reason,omitempty"`
	CoveredBytes int64  `json:"covered_bytes"`
}

// InspectCommand implements the 'inspect' command.
func InspectCommand(args []string) {
	inspectFlags := flag.NewFlagSet("inspect", flag.ExitOnError)

	var opts InspectOptions
	inspectFlags.BoolVar(&opts.Repair, "repair", false, "Rebuild the cross-reference table if the file is damaged")
	inspectFlags.BoolVar(&opts.JSON, "json", false, "Output results in JSON format")

	inspectFlags.Usage = func() {
		fmt.Printf("Usage: %s inspect [options] <input.pdf>\n\n", os.Args[0])
		fmt.Println("Show the structure of a PDF file.")
		fmt.Println("")
		fmt.Println("Arguments:")
		fmt.Println("  input.pdf  PDF file to inspect")
		fmt.Println("")
		fmt.Println("Options:")
		inspectFlags.PrintDefaults()
		fmt.Println("")
		fmt.Println("Examples:")
		fmt.Printf("  %s inspect document.pdf\n", os.Args[0])
		fmt.Printf("  %s inspect -json document.pdf\n", os.Args[0])
		fmt.Printf("  %s inspect -repair damaged.pdf\n", os.Args[0])
	}

	if err := inspectFlags.Parse(args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		osExit(1)
	}

	if len(inspectFlags.Args()) < 1 {
		inspectFlags.Usage()
		osExit(1)
	}

	output, err := inspectPDF(inspectFlags.Arg(0), &opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		osExit(1)
		return
	}

	if opts.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(output); err != nil {
			fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
			osExit(1)
		}
		return
	}
	printInspectOutput(output)
}

// inspectPDF opens a file and collects its structural summary.
func inspectPDF(inputPath string, opts *InspectOptions) (*InspectOutput, error) {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}

	var r *reader.PdfFileReader
	if opts.Repair {
		r, err = reader.NewPdfFileReaderFromBytesWithRepair(data)
	} else {
		r, err = reader.NewPdfFileReaderFromBytes(data)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}

	output := &InspectOutput{
		File:      inputPath,
		Version:   r.Version,
		Pages:     r.GetPageCount(),
		Encrypted: r.Encrypted,
		Repaired:  r.Repaired,
	}

	for _, entry := range r.XRef.Entries {
		switch entry.Type {
		case reader.XRefFree:
			output.FreeObjects++
		case reader.XRefInObjStream:
			output.CompressedObjects++
			output.Objects++
		default:
			output.Objects++
		}
	}

	for _, section := range r.XRef.Sections {
		summary := XRefSectionSummary{
			Format:  "table",
			Offset:  section.Offset,
			Entries: len(section.Entries),
		}
		if section.Format == reader.XRefSectionStream {
			summary.Format = "stream"
		}
		output.XRefSections = append(output.XRefSections, summary)
	}

	if id1, _ := r.DocumentID(); id1 != nil {
		output.DocumentID = hex.EncodeToString(id1)
	}

	if r.Info != nil {
		output.Info = make(map[string]string)
		for _, key := range r.Info.Keys() {
			if s, ok := r.Info.Get(key).(*generic.StringObject); ok {
				output.Info[key] = s.Text()
			}
		}
	}

	sigs, err := r.GetEmbeddedSignatures()
	if err != nil {
		return nil, err
	}
	for _, sig := range sigs {
		output.Signatures = append(output.Signatures, SignatureSummary{
			Field:        fieldName(sig.Field),
			SubFilter:    sig.SubFilter(),
			SigningTime:  sig.SigningTime(),
			Reason:       sig.Reason(),
			CoveredBytes: sig.ByteRange[1] + sig.ByteRange[3],
		})
	}

	return output, nil
}

func fieldName(field *generic.DictionaryObject) string {
	if t, ok := field.Get("T").(*generic.StringObject); ok {
		return t.Text()
	}
	return ""
}

func printInspectOutput(output *InspectOutput) {
	fmt.Printf("File:      %s\n", output.File)
	fmt.Printf("Version:   %s\n", output.Version)
	fmt.Printf("Pages:     %d\n", output.Pages)
	fmt.Printf("Encrypted: %v\n", output.Encrypted)
	if output.Repaired {
		fmt.Println("Repaired:  true (cross-reference table was rebuilt)")
	}
	fmt.Printf("Objects:   %d (%d compressed, %d free)\n",
		output.Objects, output.CompressedObjects, output.FreeObjects)
	if output.DocumentID != "" {
		fmt.Printf("ID:        %s\n", output.DocumentID)
	}

	if len(output.Info) > 0 {
		fmt.Println("\nDocument information:")
		for _, key := range sortedKeys(output.Info) {
			fmt.Printf("  %-12s %s\n", key+":", output.Info[key])
		}
	}

	fmt.Println("\nCross-reference sections (newest first):")
	for i, section := range output.XRefSections {
		fmt.Printf("  #%d  %-6s  offset %-10d  %d entries\n",
			i, section.Format, section.Offset, section.Entries)
	}

	if len(output.Signatures) > 0 {
		fmt.Println("\nSignatures:")
		for _, sig := range output.Signatures {
			fmt.Printf("  %s (%s)\n", sig.Field, sig.SubFilter)
			if sig.SigningTime != "" {
				fmt.Printf("    Signed:  %s\n", sig.SigningTime)
			}
			if sig.Reason != "" {
				fmt.Printf("    Reason:  %s\n", sig.Reason)
			}
			fmt.Printf("    Covers:  %d bytes\n", sig.CoveredBytes)
		}
	}
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
