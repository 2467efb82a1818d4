// Package app drives a rendering facade from host events: the per-vsync
// frame loop, surface and lifecycle transitions, and tap-to-select.
//
// Everything here runs on the looper goroutine.
package app

import (
	"github.com/taigrr/glbview/pkg/choreo"
	"github.com/taigrr/glbview/pkg/engine"
)

// FrameSource delivers one-shot frame callbacks, like choreo.Choreographer.
type FrameSource interface {
	PostFrameCallback(cb choreo.FrameCallback)
	RemoveFrameCallback(cb choreo.FrameCallback)
}

// Driver is the part of the frame loop the lifecycle binder controls.
type Driver interface {
	Start()
	Stop()
}

// Notifier shows user-facing feedback: a transient status line and an
// info popup.
type Notifier interface {
	Status(msg string)
	ShowPopup(title, body string)
	DismissPopup()
}

// AssetReader reads bundled assets by path.
type AssetReader interface {
	ReadAsset(path string) ([]byte, error)
}

// LogNotifier is a Notifier that only logs. Useful headless.
type LogNotifier struct{}

func (LogNotifier) Status(msg string) {
	engine.Logger().Info("status", "msg", msg)
}

func (LogNotifier) ShowPopup(title, body string) {
	engine.Logger().Info("popup", "title", title, "body", body)
}

func (LogNotifier) DismissPopup() {}
