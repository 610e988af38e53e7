package main

import (
	"fmt"
	"io"

	"tapvoice/audio"
)

// listDevices prints the capture devices, marking the one capture.device
// resolves to.
func listDevices(ctx audio.Context, configured string, w io.Writer) error {
	devices, err := ctx.Devices()
	if err != nil {
		return fmt.Errorf("enumerating devices: %w", err)
	}
	if len(devices) == 0 {
		return fmt.Errorf("no capture devices found")
	}

	selected, err := audio.FindDevice(ctx, configured)
	if err != nil {
		fmt.Fprintf(w, "warning: capture.device: %v\n", err)
	}
	if selected == nil && err == nil {
		fmt.Fprintln(w, "capture.device is empty; the system default is used")
	}

	for _, d := range devices {
		marker := "  "
		if selected != nil && d.ID == selected.ID {
			marker = "▶ "
		}
		suffix := ""
		if audio.IsBluetooth(d.Name) {
			suffix = " (BT)"
		}
		fmt.Fprintf(w, "%s%s%s\n", marker, d.Name, suffix)
	}
	return nil
}
