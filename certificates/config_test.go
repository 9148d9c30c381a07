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

package certificates_test

import (
	"crypto/tls"
	"errors"
	"path/filepath"
	"testing"

	"github.com/nabbar/wscore/certificates"
)

func testdata(name string) string {
	return filepath.Join("testdata", name)
}

func TestNewVerifiedLoadsAndConfiguresMutualTLS(t *testing.T) {
	cfg, err := certificates.NewVerified(
		testdata("server-key.pem"),
		testdata("server-cert.pem"),
		testdata("ca-cert.pem"),
	)
	if err != nil {
		t.Fatalf("NewVerified: %v", err)
	}

	tc := cfg.TLS()
	if tc.MinVersion != tls.VersionTLS12 {
		t.Fatalf("MinVersion = %x, want TLS1.2", tc.MinVersion)
	}
	if tc.ClientAuth != tls.RequireAndVerifyClientCert {
		t.Fatalf("ClientAuth = %v, want RequireAndVerifyClientCert", tc.ClientAuth)
	}
	if len(tc.Certificates) != 1 {
		t.Fatalf("Certificates len = %d, want 1", len(tc.Certificates))
	}
}

func TestNewAnonymousUsesEmbeddedDefaultCertificate(t *testing.T) {
	cfg, err := certificates.NewAnonymous(testdata("client-key.pem"))
	if err != nil {
		t.Fatalf("NewAnonymous: %v", err)
	}

	tc := cfg.TLS()
	if tc.ClientAuth != tls.NoClientCert {
		t.Fatalf("ClientAuth = %v, want NoClientCert", tc.ClientAuth)
	}
	if len(tc.Certificates) != 1 {
		t.Fatalf("Certificates len = %d, want 1", len(tc.Certificates))
	}
}

func TestNewVerifiedFailsOnMissingFiles(t *testing.T) {
	cases := []struct {
		name string
		key  string
		cert string
		ca   string
	}{
		{"missing key", testdata("nope.pem"), testdata("server-cert.pem"), testdata("ca-cert.pem")},
		{"missing cert", testdata("server-key.pem"), testdata("nope.pem"), testdata("ca-cert.pem")},
		{"missing ca", testdata("server-key.pem"), testdata("server-cert.pem"), testdata("nope.pem")},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := certificates.NewVerified(tc.key, tc.cert, tc.ca); err == nil {
				t.Fatal("NewVerified with a missing file succeeded, want error")
			}
		})
	}
}

func TestNewVerifiedFailsOnMismatchedKeyAndCert(t *testing.T) {
	_, err := certificates.NewVerified(
		testdata("client-key.pem"),
		testdata("server-cert.pem"),
		testdata("ca-cert.pem"),
	)
	if err == nil {
		t.Fatal("NewVerified with mismatched key/cert succeeded, want error")
	}
	if !errors.Is(err, certificates.ErrCertificateLoad) {
		t.Fatalf("err = %v, want wrapping ErrCertificateLoad", err)
	}
}

func TestForClientSetsServerNameWithoutMutatingShared(t *testing.T) {
	cfg, err := certificates.NewVerified(
		testdata("client-key.pem"),
		testdata("client-cert.pem"),
		testdata("ca-cert.pem"),
	)
	if err != nil {
		t.Fatalf("NewVerified: %v", err)
	}

	c1 := cfg.ForClient("alpha")
	c2 := cfg.ForClient("beta")

	if c1.ServerName != "alpha" || c2.ServerName != "beta" {
		t.Fatalf("ServerName cross-contaminated: c1=%q c2=%q", c1.ServerName, c2.ServerName)
	}
	if cfg.TLS().ServerName != "" {
		t.Fatalf("shared Config mutated, ServerName = %q", cfg.TLS().ServerName)
	}
}
