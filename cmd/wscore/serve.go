/*
 * MIT License
 *
 * Copyright (c) 2026 nabbar
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 */

package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nabbar/wscore/wsserver"
)

func newServeCommand() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Accept WebSocket connections on a port until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}

			srv, err := buildServer(cfg)
			if err != nil {
				return err
			}

			if err := srv.Start(); err != nil {
				return fmt.Errorf("wscore: start: %w", err)
			}

			logrus.WithFields(logrus.Fields{
				"port":         srv.Port(),
				"max_sessions": cfg.MaxSessions,
				"tls_mode":     cfg.TLSMode,
			}).Info("wscore: serving")

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			<-sig

			logrus.Info("wscore: shutting down")
			return srv.Stop()
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "wscore.yaml", "path to the server config file")
	return cmd
}

func buildServer(cfg *serverConfig) (*wsserver.Server, error) {
	switch cfg.TLSMode {
	case "verified":
		return wsserver.NewSecureVerified(cfg.Port, cfg.MaxSessions, cfg.KeyPath, cfg.CertPath, cfg.CAPath)
	case "anonymous":
		return wsserver.NewSecureAnonymous(cfg.Port, cfg.MaxSessions, cfg.KeyPath)
	case "":
		return wsserver.NewPlain(cfg.Port, cfg.MaxSessions)
	default:
		return nil, fmt.Errorf("wscore: unknown tls_mode %q, want \"\", \"verified\", or \"anonymous\"", cfg.TLSMode)
	}
}
