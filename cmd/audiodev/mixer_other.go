//go:build !linux

package main

func platformCommands() []command {
	return nil
}
