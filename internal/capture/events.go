package capture

import (
	"github.com/fentz26/shelfcam/internal/device"
	"github.com/fentz26/shelfcam/internal/models"
	"github.com/fentz26/shelfcam/internal/permission"
)

type event interface{}

type permissionResult struct {
	state permission.State
	err   error
}

type captureRequested struct{}

type stopRequested struct{}

type acquired struct {
	locator models.Locator
	err     error
}

type retryRequested struct{}

type acceptRequested struct{}

type exitRequested struct{}

type configureRequested struct {
	change func(device.Options) device.Partial
}
