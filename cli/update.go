package cli

import (
	"flag"
	"fmt"
	"os"

	"github.com/pdflex/pdflex/config"
	"github.com/pdflex/pdflex/pdf/generic"
	"github.com/pdflex/pdflex/pdf/reader"
	"github.com/pdflex/pdflex/pdf/writer"
)

// UpdateOptions contains options for the update command.
type UpdateOptions struct {
	ConfigFile string
	Output     string
	ForceWrite bool
	Repair     bool
	MinVersion string
}

// UpdateCommand implements the 'update' command.
func UpdateCommand(args []string) {
	updateFlags := flag.NewFlagSet("update", flag.ExitOnError)

	var opts UpdateOptions
	updateFlags.StringVar(&opts.ConfigFile, "config", "", "YAML configuration file with document information entries")
	updateFlags.StringVar(&opts.Output, "output", "", "Output file (defaults to the second positional argument)")
	updateFlags.BoolVar(&opts.ForceWrite, "force", false, "Append an update section even when nothing changed")
	updateFlags.BoolVar(&opts.Repair, "repair", false, "Rebuild the cross-reference table if the input is damaged")
	updateFlags.StringVar(&opts.MinVersion, "min-version", "", "Raise the document version, e.g. 1.7")

	updateFlags.Usage = func() {
		fmt.Printf("Usage: %s update [options] <input.pdf> [output.pdf]\n\n", os.Args[0])
		fmt.Println("Append an incremental update to a PDF file. The original bytes are")
		fmt.Println("preserved, so existing signatures stay valid.")
		fmt.Println("")
		fmt.Println("Arguments:")
		fmt.Println("  input.pdf   PDF file to update")
		fmt.Println("  output.pdf  Where to write the updated file")
		fmt.Println("")
		fmt.Println("Options:")
		updateFlags.PrintDefaults()
		fmt.Println("")
		fmt.Println("Examples:")
		fmt.Printf("  %s update -config meta.yaml input.pdf output.pdf\n", os.Args[0])
		fmt.Printf("  %s update -min-version 1.7 -force input.pdf output.pdf\n", os.Args[0])
	}

	if err := updateFlags.Parse(args[2:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing flags: %v\n", err)
		osExit(1)
	}

	if len(updateFlags.Args()) < 1 {
		updateFlags.Usage()
		osExit(1)
		return
	}

	inputPath := updateFlags.Arg(0)

	var cfg *config.ToolConfig
	if opts.ConfigFile != "" {
		var err error
		cfg, err = config.LoadConfig(opts.ConfigFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			osExit(1)
			return
		}
	}

	outputPath := opts.Output
	if outputPath == "" && len(updateFlags.Args()) > 1 {
		outputPath = updateFlags.Arg(1)
	}
	if outputPath == "" && cfg != nil {
		outputPath = cfg.Output
	}
	if outputPath == "" {
		fmt.Fprintln(os.Stderr, "Error: no output file given")
		osExit(1)
		return
	}

	if err := updatePDF(inputPath, outputPath, cfg, &opts); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		osExit(1)
		return
	}
	fmt.Printf("Updated PDF written to: %s\n", outputPath)
}

// updatePDF appends one incremental update section to inputPath and writes
// the result to outputPath.
func updatePDF(inputPath, outputPath string, cfg *config.ToolConfig, opts *UpdateOptions) error {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	repair := opts.Repair
	forceWrite := opts.ForceWrite
	minVersion := opts.MinVersion
	var infoEntries map[string]string
	if cfg != nil {
		repair = repair || cfg.Repair
		if cfg.Update != nil {
			forceWrite = forceWrite || cfg.Update.ForceWrite
			if minVersion == "" {
				minVersion = cfg.Update.MinVersion
			}
			infoEntries = cfg.Update.Info
		}
	}

	var r *reader.PdfFileReader
	if repair {
		r, err = reader.NewPdfFileReaderFromBytesWithRepair(data)
	} else {
		r, err = reader.NewPdfFileReaderFromBytes(data)
	}
	if err != nil {
		return fmt.Errorf("failed to open PDF: %w", err)
	}

	w, err := writer.NewIncrementalPdfFileWriter(r)
	if err != nil {
		return err
	}

	if len(infoEntries) > 0 {
		var info *generic.DictionaryObject
		if r.Info != nil {
			info = r.Info.Clone().(*generic.DictionaryObject)
		} else {
			info = generic.NewDictionary()
		}
		for key, value := range infoEntries {
			info.Set(key, generic.NewTextString(value))
		}
		w.SetInfo(info)
	}

	if minVersion != "" {
		if err := w.EnsureOutputVersion(writer.ParseVersion(minVersion)); err != nil {
			return err
		}
	}

	w.SetForceWrite(forceWrite)

	out, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()

	if err := w.Write(out); err != nil {
		return fmt.Errorf("failed to write updated PDF: %w", err)
	}
	return out.Close()
}
