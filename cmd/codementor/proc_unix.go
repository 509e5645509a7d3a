//go:build unix

package main

import (
	"os/exec"
	"syscall"
)

// configureDaemonProcess starts codementord in its own session so closing
// the terminal does not signal it
func configureDaemonProcess(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
