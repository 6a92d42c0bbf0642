//go:build tools

package tools

// This file tracks versions of CLI tool dependencies.
// It is not compiled into the binary.
//
// - github.com/matryer/moq (hand-maintained mocks follow its layout)
// - github.com/pressly/goose/v3/cmd/goose (migrations/ can also be applied with relayctl migrate)
