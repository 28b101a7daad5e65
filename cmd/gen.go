package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/jaffee/commandeer"
	"github.com/pilosa/musiclake/fake"
	"github.com/spf13/cobra"
)

// GenMain is wrapped by NewGenCommand and only exported for testing purposes.
var GenMain *fake.Main

// NewGenCommand returns a new cobra command wrapping GenMain.
func NewGenCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	GenMain = fake.NewMain()
	genCommand := &cobra.Command{
		Use:   "gen",
		Short: "Generate a sample song catalog and event log.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			start := time.Now()
			d, err := GenMain.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "wrote %d songs and %d events to %s in %v\n", len(d.Songs), len(d.Events), GenMain.Root, time.Since(start))
			return nil
		},
	}
	flags := genCommand.Flags()
	err := commandeer.Flags(flags, GenMain)
	if err != nil {
		panic(err)
	}
	return genCommand
}

func init() {
	subcommandFns["gen"] = NewGenCommand
}
