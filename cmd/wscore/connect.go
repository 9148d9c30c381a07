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
	"bufio"
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/nabbar/wscore/wsclient"
)

func newConnectCommand() *cobra.Command {
	var (
		host     string
		port     int
		tlsMode  string
		keyPath  string
		certPath string
		caPath   string
	)

	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Connect to a server and relay stdin/stdout as frames",
		RunE: func(cmd *cobra.Command, args []string) error {
			cli, err := buildClient(tlsMode, keyPath, certPath, caPath)
			if err != nil {
				return err
			}

			if !cli.Connect(context.Background(), host, port) {
				return fmt.Errorf("wscore: failed to connect to %s:%d", host, port)
			}
			defer cli.Disconnect()

			scanner := bufio.NewScanner(os.Stdin)
			for scanner.Scan() {
				if err := cli.Send(append([]byte(nil), scanner.Bytes()...)); err != nil {
					return fmt.Errorf("wscore: send: %w", err)
				}
				if cli.InboxNonEmpty() {
					fmt.Println(string(cli.Read()))
				}
			}
			return scanner.Err()
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "server host")
	cmd.Flags().IntVar(&port, "port", 8081, "server port")
	cmd.Flags().StringVar(&tlsMode, "tls-mode", "", "\"\", \"verified\", or \"anonymous\"")
	cmd.Flags().StringVar(&keyPath, "key", "", "client private key path (TLS modes)")
	cmd.Flags().StringVar(&certPath, "cert", "", "client certificate path (verified mode)")
	cmd.Flags().StringVar(&caPath, "ca", "", "certificate authority path (verified mode)")
	return cmd
}

func buildClient(tlsMode, keyPath, certPath, caPath string) (*wsclient.Client, error) {
	switch tlsMode {
	case "verified":
		return wsclient.NewSecureVerified(keyPath, certPath, caPath)
	case "anonymous":
		return wsclient.NewSecureAnonymous(keyPath)
	case "":
		return wsclient.NewPlain(), nil
	default:
		return nil, fmt.Errorf("wscore: unknown tls-mode %q", tlsMode)
	}
}
