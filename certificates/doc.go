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

// Package certificates turns a caller's key/certificate/authority file
// paths into an opaque, single-use *tls.Config, with two modes:
//
//   - NewVerified: the peer's certificate is checked against a supplied
//     certificate authority. Used by both the secure server (verifying
//     client certs, mutual TLS) and the secure client (verifying the
//     server's cert).
//   - NewAnonymous: no peer verification, key-exchange only. The caller
//     supplies only a private key; the certificate is the package's
//     embedded default.
//
// Both modes disable legacy TLS versions and force TLS 1.2 as the floor.
// crypto/tls never speaks SSLv2/SSLv3 and negotiates a fresh session key
// per handshake on its own, so MinVersion is the one knob this package
// needs to set.
package certificates
