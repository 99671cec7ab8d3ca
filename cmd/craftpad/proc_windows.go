//go:build windows

package main

import (
	"os/exec"
	"syscall"
)

// configureDaemonProcess starts craftpadd in a new process group, detached
// from the CLI's console.
func configureDaemonProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP,
	}
}
