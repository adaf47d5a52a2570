// © 2026 Ilya Mateyko. All rights reserved.
// Use of this source code is governed by the ISC
// license that can be found in the LICENSE.md file.

// Package env contains definitions for the environments in which the page
// server can run.
package env

import "fmt"

// Env is the environment in which the page server can run.
type Env string

// Available environments.
const (
	Development = Env("development")
	Production  = Env("production")
)

// UnmarshalText implements [encoding.TextUnmarshaler], so Env can be loaded
// from the environment. Only known environments are accepted.
func (e *Env) UnmarshalText(text []byte) error {
	switch v := Env(text); v {
	case Development, Production:
		*e = v
		return nil
	}
	return fmt.Errorf("unknown environment %q (want %q or %q)", text, Development, Production)
}

// IsDev reports whether e is the development environment.
func (e Env) IsDev() bool { return e == Development }
