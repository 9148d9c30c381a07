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

package certificates

import (
	_ "embed"

	"bytes"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
)

//go:embed embedded/default-cert.pem
var defaultCertPEM []byte

// Config is the opaque, single-use TLS configuration produced by this
// package. Once built it is safe to share across every session/connection
// of a given server or client.
type Config struct {
	tls *tls.Config
}

// TLS returns the underlying *tls.Config for use by wsconn's TLS accept
// and dial paths.
func (c *Config) TLS() *tls.Config {
	return c.tls
}

func readPEMFile(errKind error, path string) ([]byte, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", errKind)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errKind, err)
	}

	b = bytes.TrimSpace(b)
	if len(b) < 1 {
		return nil, fmt.Errorf("%w: empty file %s", errKind, path)
	}

	return b, nil
}

// NewVerified builds a Config that authenticates the local key pair
// and verifies the peer's certificate against the given authority. Used by
// the secure server (mutual TLS against client certs) and the secure
// client (server cert against a CA). Returns an error if any file is
// missing or malformed.
func NewVerified(keyPath, certPath, authorityPath string) (*Config, error) {
	keyPEM, err := readPEMFile(ErrKeyLoad, keyPath)
	if err != nil {
		return nil, err
	}

	certPEM, err := readPEMFile(ErrCertificateLoad, certPath)
	if err != nil {
		return nil, err
	}

	pair, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCertificateLoad, err)
	}

	caPEM, err := readPEMFile(ErrAuthorityLoad, authorityPath)
	if err != nil {
		return nil, err
	}

	pool := x509.NewCertPool()
	if !pool.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("%w: no usable certificate in %s", ErrAuthorityLoad, authorityPath)
	}

	return &Config{tls: &tls.Config{
		MinVersion:             tls.VersionTLS12,
		Certificates:           []tls.Certificate{pair},
		RootCAs:                pool,
		ClientCAs:              pool,
		ClientAuth:             tls.RequireAndVerifyClientCert,
		SessionTicketsDisabled: true,
	}}, nil
}

// NewAnonymous builds a Config that loads only a private key; the
// certificate is the package's embedded default, and no peer verification
// is performed — key exchange only.
func NewAnonymous(keyPath string) (*Config, error) {
	keyPEM, err := readPEMFile(ErrKeyLoad, keyPath)
	if err != nil {
		return nil, err
	}

	pair, err := tls.X509KeyPair(defaultCertPEM, keyPEM)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCertificateLoad, err)
	}

	return &Config{tls: &tls.Config{
		MinVersion:             tls.VersionTLS12,
		Certificates:           []tls.Certificate{pair},
		ClientAuth:             tls.NoClientCert,
		InsecureSkipVerify:     true, //nolint:gosec // anonymous mode is key-exchange only by design, never certificate-authenticated
		SessionTicketsDisabled: true,
	}}, nil
}

// ForClient returns a client-side *tls.Config for the given Config,
// cloned so SNI can be set per-dial without mutating the shared Config.
func (c *Config) ForClient(serverName string) *tls.Config {
	cfg := c.tls.Clone()
	cfg.ServerName = serverName
	return cfg
}
