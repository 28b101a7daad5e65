// Copyright 2017 Pilosa Corp.
//
// Redistribution and use in source and binary forms, with or without
// modification, are permitted provided that the following conditions
// are met:
//
// 1. Redistributions of source code must retain the above copyright
// notice, this list of conditions and the following disclaimer.
//
// 2. Redistributions in binary form must reproduce the above copyright
// notice, this list of conditions and the following disclaimer in the
// documentation and/or other materials provided with the distribution.
//
// 3. Neither the name of the copyright holder nor the names of its
// contributors may be used to endorse or promote products derived
// from this software without specific prior written permission.
//
// THIS SOFTWARE IS PROVIDED BY THE COPYRIGHT HOLDERS AND
// CONTRIBUTORS "AS IS" AND ANY EXPRESS OR IMPLIED WARRANTIES,
// INCLUDING, BUT NOT LIMITED TO, THE IMPLIED WARRANTIES OF
// MERCHANTABILITY AND FITNESS FOR A PARTICULAR PURPOSE ARE
// DISCLAIMED. IN NO EVENT SHALL THE COPYRIGHT HOLDER OR
// CONTRIBUTORS BE LIABLE FOR ANY DIRECT, INDIRECT, INCIDENTAL,
// SPECIAL, EXEMPLARY, OR CONSEQUENTIAL DAMAGES (INCLUDING,
// BUT NOT LIMITED TO, PROCUREMENT OF SUBSTITUTE GOODS OR
// SERVICES; LOSS OF USE, DATA, OR PROFITS; OR BUSINESS
// INTERRUPTION) HOWEVER CAUSED AND ON ANY THEORY OF LIABILITY,
// WHETHER IN CONTRACT, STRICT LIABILITY, OR TORT (INCLUDING
// NEGLIGENCE OR OTHERWISE) ARISING IN ANY WAY OUT OF THE USE
// OF THIS SOFTWARE, EVEN IF ADVISED OF THE POSSIBILITY OF SUCH
// DAMAGE.

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/jaffee/commandeer"
	"github.com/pilosa/musiclake/etl"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

var (
	// Version of this software - filled in by ldflags in Makefile.
	Version string
	// BuildTime of this software - filled in by ldflags in Makefile.
	BuildTime string
)

func setupVersionBuild() {
	if Version == "" {
		Version = "v0.0.0"
	}
	if BuildTime == "" {
		BuildTime = "not recorded"
	}
}

var subcommandFns = map[string]func(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command{}

// ETLMain is run by the root command and only exported for testing purposes.
var ETLMain *etl.Main

// NewRootCommand creates the top level cobra command, which runs the ETL,
// with each of subcommandFns as a subcommand.
func NewRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	setupVersionBuild()
	ETLMain = etl.NewMain()
	rc := &cobra.Command{
		Use:   "musiclake",
		Short: "musiclake - build a star schema data lake from song and event logs",
		Long: `Reads the raw song catalog and listening event log, and writes the
songs, artists, users, time_table and songplays tables as partitioned
parquet files. Run with no arguments to process the default input root.

Version: ` + Version + `
Build Time: ` + BuildTime + "\n",
		Args: cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			v := viper.New()
			return setAllConfig(v, cmd.Flags(), "MUSICLAKE")
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			sum, err := ETLMain.RunContext(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "songs: %d\nartists: %d\nusers: %d\ntime: %d\nsongplays: %d\n",
				sum.Songs, sum.Artists, sum.Users, sum.Time, sum.Songplays)
			return nil
		},
		SilenceUsage: true,
	}
	rc.PersistentFlags().StringP("config", "c", "", "Configuration file (TOML) to read options from.")
	if err := commandeer.Flags(rc.Flags(), ETLMain); err != nil {
		panic(err)
	}
	for _, subcomFn := range subcommandFns {
		rc.AddCommand(subcomFn(stdin, stdout, stderr))
	}
	rc.SetOutput(stderr)
	return rc
}

// setAllConfig resolves every flag in flags from, in decreasing priority, the
// command line, environment variables and the TOML file named by --config.
// The environment variable for a flag is envPrefix, an underscore, and the
// flag name upper cased with dashes turned into underscores, so
// --key-strategy is read from MUSICLAKE_KEY_STRATEGY.
func setAllConfig(v *viper.Viper, flags *pflag.FlagSet, envPrefix string) error {
	if err := v.BindPFlags(flags); err != nil {
		return errors.Wrap(err, "binding flags")
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path := v.GetString("config"); path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return errors.Wrapf(err, "reading configuration file '%s'", path)
		}
	}

	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		// Flags given on the command line win. Setting them again would also
		// append to slice values instead of replacing them.
		if err != nil || f.Changed {
			return
		}
		val := v.GetString(f.Name)
		if f.Value.Type() == "stringSlice" {
			// A TOML array comes back from GetString as "".
			val = strings.Join(v.GetStringSlice(f.Name), ",")
		}
		if serr := f.Value.Set(val); serr != nil {
			err = errors.Wrapf(serr, "setting '%s'", f.Name)
		}
	})
	return err
}
