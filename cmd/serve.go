/*
Copyright © 2025 Valentyn Solomko <valentyn.solomko@gmail.com>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/
package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/valpere/wordweaver/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web interface",
	Long: `Serve the upload form, the report pages, the JSON API under /api/v1,
/healthz and Prometheus metrics on /metrics.`,
	Example: `  wordweaver serve --addr :8080
  WORDWEAVER_LLM_MODEL=llama3.2-vision wordweaver serve`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", ":8080", "Listen address")
	serveCmd.Flags().Int("max-upload-mb", 10, "Maximum request body size in MB")
	serveCmd.Flags().Float64("rate-limit", 0.5, "Analysis requests per second per client (0 disables)")

	bindFlags(serveCmd, map[string]string{
		"server.addr":          "addr",
		"server.max_upload_mb": "max-upload-mb",
		"server.rate_limit":    "rate-limit",
	})
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	pipe, err := a.pipeline()
	if err != nil {
		return err
	}

	var reports server.Reports
	if a.db != nil {
		reports = a.db
	}

	srv, err := server.New(server.Config{
		Addr:            cfg.Server.Addr,
		MaxUploadMB:     cfg.Server.MaxUploadMB,
		RateLimit:       cfg.Server.RateLimit,
		Burst:           cfg.Server.Burst,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	}, pipe, reports, a.client, a.rec, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.client.IsAvailable(ctx); err != nil {
		logger.Warn("model runtime not reachable, analyses will fail until it is", zap.Error(err))
	}

	logger.Info("starting server",
		zap.String("addr", cfg.Server.Addr),
		zap.String("model", cfg.LLM.Model),
		zap.Bool("history", a.db != nil))
	return srv.Run(ctx)
}
