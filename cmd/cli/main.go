package main

import (
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/myrjola/saferroad/cmd/cli/datasetcmd"
	"github.com/myrjola/saferroad/internal/errors"
	"github.com/spf13/cobra"
)

func init() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	rootCmd.AddGroup(datasetcmd.Group)
	rootCmd.AddCommand(datasetcmd.Check, datasetcmd.Sample)
}

var rootCmd = &cobra.Command{
	Use:  "saferroad-cli",
	Long: `Command line utilities for the Pick the Safer Road game`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func main() {
	Execute()
}
