// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the docsmith CLI. It converts Word,
// Excel, and PDF documents into a normalized Markdown tree suitable for
// static-site generators, and can serve the same conversion as an HTTP
// job API.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the docsmith CLI.
var rootCmd = &cobra.Command{
	Use:   "docsmith",
	Short: "Convert office documents into a Markdown documentation tree",
	Long: `docsmith converts Word, Excel, and PDF documents into normalized,
link-consistent Markdown for static-site generators such as MkDocs.

Point convert at a file or a directory tree: filenames are sanitized,
headings normalized, embedded images extracted into an assets tree, and
links between converted documents rewritten to their Markdown targets.
Every run produces a JSON conversion report with per-file quality scores.

The serve command exposes the same conversion as an HTTP job queue:
upload a document, poll its status, download the result as a ZIP.`,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./docsmith.yaml or ~/.config/docsmith/config.yaml)")
	rootCmd.PersistentFlags().Bool("verbose", false, "enable debug logging")
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("docsmith")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "docsmith"))
		}
	}

	viper.SetEnvPrefix("DOCSMITH")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
