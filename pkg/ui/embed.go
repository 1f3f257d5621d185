// Package ui holds the embedded browser wizard.
package ui

import (
	_ "embed"
)

// IndexHTML is the wizard: connect YouTube, upload, analyze, pick a moment,
// edit and publish.
//
//go:embed index.html
var IndexHTML []byte

// CallbackHTML is the OAuth landing page. It exchanges the code, keeps the
// refresh token in localStorage and returns to the wizard.
//
//go:embed callback.html
var CallbackHTML []byte
