// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/docsmith/internal/jobs"
	"github.com/pdiddy/docsmith/internal/web"
	"github.com/pdiddy/docsmith/pkg/types"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the conversion job API over HTTP",
	Long: `Serve runs the HTTP job queue: POST a document to /api/upload, poll
/api/status/{id}, and fetch the converted tree from /api/download/{id}
as a ZIP archive. Job state lives in a SQLite database under the data
directory, and expired jobs are garbage-collected on a timer.

The server binds to localhost by default. With --require-auth, requests
must carry a bearer token matching an api-token file in the secrets
directory.`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := serveSettings(cmd)
	logger := newLogger(cmd)

	mgr, err := jobs.NewManager(cfg, logger)
	if err != nil {
		return err
	}
	defer mgr.Close()

	srv, err := web.NewServer(cfg, mgr, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return srv.ListenAndServe(ctx)
}

func serveSettings(cmd *cobra.Command) types.WebConfig {
	str := func(flag, key string) string {
		v, _ := cmd.Flags().GetString(flag)
		if !cmd.Flags().Changed(flag) && viper.IsSet(key) {
			return viper.GetString(key)
		}
		return v
	}

	maxUpload, _ := cmd.Flags().GetInt64("max-upload")
	retention, _ := cmd.Flags().GetDuration("retention")
	requireAuth, _ := cmd.Flags().GetBool("require-auth")

	cfg := types.WebConfig{
		Addr:           str("addr", "addr"),
		DataDir:        str("data-dir", "data_dir"),
		MaxUploadBytes: maxUpload,
		Retention:      retention,
		RequireAuth:    requireAuth,
		SecretsDir:     str("secrets-dir", "secrets_dir"),
	}
	cfg.Defaults()
	return cfg
}

func init() {
	serveCmd.Flags().String("addr", "127.0.0.1:8000", "listen address")
	serveCmd.Flags().String("data-dir", "docsmith-jobs", "directory for job trees and the job database")
	serveCmd.Flags().Int64("max-upload", 50*1024*1024, "maximum upload size in bytes")
	serveCmd.Flags().Duration("retention", time.Hour, "how long finished jobs are kept")
	serveCmd.Flags().Bool("require-auth", false, "require a bearer token from the secrets directory")
	serveCmd.Flags().String("secrets-dir", "secrets", "directory holding api-token files")

	rootCmd.AddCommand(serveCmd)
}
