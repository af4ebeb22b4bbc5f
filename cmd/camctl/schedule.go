package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/openso2/camctl/internal/crontab"
	"github.com/openso2/camctl/internal/report"
)

var scheduleYAML bool

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Manage the instrument schedule file",
	Long: `Inspect and edit the crontab schedule file that starts and stops the
instrument and runs its supervisory scripts.`,
}

var scheduleValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate the schedule file",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := schedulePath(args)

		f, err := crontab.ParseFile(path)
		if err != nil {
			fatal("Failed to parse %s: %v", path, err)
		}

		if errors := f.Validate(); len(errors) > 0 {
			fmt.Fprintf(os.Stderr, "%s: %d problems\n", path, len(errors))
			for _, e := range errors {
				fmt.Fprintf(os.Stderr, "  - %v\n", e)
			}
			os.Exit(1)
		}

		fmt.Printf("%s: valid (%d entries)\n", path, len(f.Entries))
	},
}

var scheduleListCmd = &cobra.Command{
	Use:   "list [file]",
	Short: "List schedule entries with their next activation",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := schedulePath(args)

		f, err := crontab.ParseFile(path)
		if err != nil {
			fatal("Failed to parse %s: %v", path, err)
		}

		r := report.FromCrontab(path, f, time.Now())
		if scheduleYAML {
			if err := r.WriteYAML(os.Stdout); err != nil {
				fatal("Failed to write report: %v", err)
			}
			return
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "SCHEDULE\tNEXT\tCOMMAND")
		for _, e := range r.Entries {
			next := "-"
			if !e.Next.IsZero() {
				next = e.Next.Format("2006-01-02 15:04")
			}
			command := e.Command
			if e.Disabled {
				command = "(disabled) " + command
			}
			fmt.Fprintf(w, "%s\t%s\t%s\n", e.Spec, next, command)
		}
		w.Flush()
	},
}

var scheduleSetTimeCmd = &cobra.Command{
	Use:   "set-time <command> <HH:MM> [file]",
	Short: "Set the daily run time of a scheduled command",
	Long: `Set the daily run time of the entry whose command contains the given
string. The entry is appended if no existing one matches.`,
	Args: cobra.RangeArgs(2, 3),
	Run: func(cmd *cobra.Command, args []string) {
		command := args[0]
		at, err := time.Parse("15:04", args[1])
		if err != nil {
			fatal("Invalid time %q, expected HH:MM", args[1])
		}
		path := schedulePath(args[2:])

		f, err := crontab.ParseFile(path)
		if err != nil {
			fatal("Failed to parse %s: %v", path, err)
		}

		f.SetTime(command, at)
		if err := f.WriteFile(path); err != nil {
			fatal("Failed to write %s: %v", path, err)
		}

		fmt.Printf("%s: %s scheduled daily at %s\n", path, command, args[1])
	},
}

// defaultSchedule is the instrument schedule written by "schedule write".
var defaultSchedule = []struct {
	spec    string
	command string
}{
	{"0 9 * * *", "python3 /home/pi/pycam/scripts/start_instrument.py"},
	{"30 17 * * *", "python3 /home/pi/pycam/scripts/stop_instrument.py"},
	{"*/30 * * * *", "python3 /home/pi/pycam/scripts/check_run.py"},
	{"0 * * * *", "python3 /home/pi/pycam/scripts/check_disk_space.py"},
	{"15 3 * * *", "python3 /home/pi/pycam/scripts/sync_time.py"},
}

var scheduleWriteCmd = &cobra.Command{
	Use:   "write [file]",
	Short: "Write a fresh schedule file with the default entries",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := schedulePath(args)

		f := crontab.New()
		for _, entry := range defaultSchedule {
			if err := f.SetSpec(entry.command, entry.spec); err != nil {
				fatal("Failed to build schedule: %v", err)
			}
		}

		if err := f.WriteFile(path); err != nil {
			fatal("Failed to write %s: %v", path, err)
		}

		fmt.Printf("%s: wrote %d entries\n", path, len(f.Entries))
	},
}

// schedulePath resolves the schedule file from an optional argument,
// falling back to the configured path.
func schedulePath(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	cfg, err := loadConfig()
	if err != nil {
		fatal("Failed to load configuration: %v", err)
	}
	return cfg.Paths.Crontab
}

func init() {
	scheduleListCmd.Flags().BoolVar(&scheduleYAML, "yaml", false, "Output as YAML")

	scheduleCmd.AddCommand(scheduleValidateCmd)
	scheduleCmd.AddCommand(scheduleListCmd)
	scheduleCmd.AddCommand(scheduleSetTimeCmd)
	scheduleCmd.AddCommand(scheduleWriteCmd)
}
