package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/openso2/camctl/internal/report"
	"github.com/openso2/camctl/internal/settings"
)

var settingsYAML bool

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage the plume-processing settings file",
	Long: `Inspect and edit the flat key=value settings file consumed by the
plume-processing software.`,
}

var settingsValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate the settings file against the processing schema",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := settingsPath(args)

		doc, err := settings.ParseFile(path)
		if err != nil {
			fatal("Failed to parse %s: %v", path, err)
		}

		schema := settings.DefaultProcessSchema()
		for _, key := range schema.UnknownKeys(doc) {
			fmt.Fprintf(os.Stderr, "warning: unknown key %q\n", key)
		}

		if errors := schema.Validate(doc); len(errors) > 0 {
			fmt.Fprintf(os.Stderr, "%s: %d problems\n", path, len(errors))
			for _, e := range errors {
				fmt.Fprintf(os.Stderr, "  - %v\n", e)
			}
			os.Exit(1)
		}

		fmt.Printf("%s: valid (%d keys)\n", path, doc.Len())
	},
}

var settingsShowCmd = &cobra.Command{
	Use:   "show [file]",
	Short: "Show settings keys with their decoded values",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := settingsPath(args)

		doc, err := settings.ParseFile(path)
		if err != nil {
			fatal("Failed to parse %s: %v", path, err)
		}

		r := report.FromSettings(path, doc, time.Now())
		if settingsYAML {
			if err := r.WriteYAML(os.Stdout); err != nil {
				fatal("Failed to write report: %v", err)
			}
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "KEY\tKIND\tVALUE")
		for _, entry := range r.Keys {
			fmt.Fprintf(w, "%s\t%s\t%v\n", entry.Key, entry.Kind, entry.Value)
		}
		w.Flush()
	},
}

var settingsGetCmd = &cobra.Command{
	Use:   "get <key> [file]",
	Short: "Print the decoded value of one settings key",
	Args:  cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		key := args[0]
		path := settingsPath(args[1:])

		doc, err := settings.ParseFile(path)
		if err != nil {
			fatal("Failed to parse %s: %v", path, err)
		}

		v, ok := doc.Lookup(key)
		if !ok {
			fatal("%s: no key %q", path, key)
		}
		fmt.Printf("%v\n", v.Interface())
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value> [file]",
	Short: "Set a settings key and rewrite the file",
	Long: `Set a settings key to the given literal value. The value is checked
against the processing schema before the file is rewritten; comments and key
order are preserved.`,
	Args: cobra.RangeArgs(2, 3),
	Run: func(cmd *cobra.Command, args []string) {
		key, value := args[0], args[1]
		path := settingsPath(args[2:])

		doc, err := settings.ParseFile(path)
		if err != nil {
			fatal("Failed to parse %s: %v", path, err)
		}

		if err := doc.SetRaw(key, value); err != nil {
			fatal("Invalid value for %s: %v", key, err)
		}

		// Only reject problems introduced by this change; a file with
		// unrelated pre-existing problems can still be edited.
		if err := settings.DefaultProcessSchema().ValidateKey(doc, key); err != nil {
			fatal("Invalid value for %s: %v", key, err)
		}

		if err := doc.WriteFile(path); err != nil {
			fatal("Failed to write %s: %v", path, err)
		}

		fmt.Printf("%s: %s=%s\n", path, key, value)
	},
}

// settingsPath resolves the settings file from an optional argument, falling
// back to the configured path.
func settingsPath(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	cfg, err := loadConfig()
	if err != nil {
		fatal("Failed to load configuration: %v", err)
	}
	return cfg.Paths.ProcessSettings
}

func init() {
	settingsShowCmd.Flags().BoolVar(&settingsYAML, "yaml", false, "Output as YAML")

	settingsCmd.AddCommand(settingsValidateCmd)
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsGetCmd)
	settingsCmd.AddCommand(settingsSetCmd)
}
