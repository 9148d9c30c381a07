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

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// serverConfig is the subset of the server config file (wscore.yaml by
// default) that serve cares about. TLS
// paths are read once at startup; log level is watched and live-reloaded.
// A changed port or max_sessions value is picked up on the next restart,
// not applied to the running listener.
type serverConfig struct {
	Port        int    `mapstructure:"port"`
	MaxSessions int    `mapstructure:"max_sessions"`
	LogLevel    string `mapstructure:"log_level"`
	TLSMode     string `mapstructure:"tls_mode"` // "", "verified", "anonymous"
	KeyPath     string `mapstructure:"key_path"`
	CertPath    string `mapstructure:"cert_path"`
	CAPath      string `mapstructure:"ca_path"`
}

func loadConfig(path string) (*serverConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("port", 8081)
	v.SetDefault("max_sessions", 4)
	v.SetDefault("log_level", "info")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("wscore: reading config: %w", err)
	}

	cfg := &serverConfig{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("wscore: parsing config: %w", err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		logrus.WithField("file", e.Name).Info("wscore: config changed, reloading log level")
		if lvl, err := logrus.ParseLevel(v.GetString("log_level")); err == nil {
			logrus.SetLevel(lvl)
		}
	})
	v.WatchConfig()

	return cfg, nil
}
