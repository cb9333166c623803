//go:build tools

// Package tools pins build-time tools (mockgen) as module dependencies.
package tools

import (
	_ "go.uber.org/mock/mockgen"
)
