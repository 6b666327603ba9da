package scan

import (
	"github.com/fentz26/shelfcam/internal/device"
	"github.com/fentz26/shelfcam/internal/permission"
)

type event interface{}

type permissionResult struct {
	state permission.State
	err   error
}

type locked struct {
	event device.ScanEvent
}

type choiceMade struct {
	choice Choice
}

type linkOpened struct {
	err error
}

type exitRequested struct{}
