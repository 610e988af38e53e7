package audio

import (
	"fmt"
	"strings"
)

// FindDevice resolves a configured device name. An empty name selects the
// system default and returns nil. Matching is exact first, then by
// case-insensitive substring so "usb" finds "USB Audio Device Analog Mono".
func FindDevice(ctx Context, name string) (*DeviceInfo, error) {
	if name == "" {
		return nil, nil
	}
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}
	for i := range devices {
		if devices[i].Name == name || devices[i].ID == name {
			return &devices[i], nil
		}
	}
	want := strings.ToLower(name)
	var match *DeviceInfo
	for i := range devices {
		if strings.Contains(strings.ToLower(devices[i].Name), want) {
			if match != nil {
				return nil, fmt.Errorf("device %q is ambiguous: %q and %q", name, match.Name, devices[i].Name)
			}
			match = &devices[i]
		}
	}
	if match == nil {
		return nil, fmt.Errorf("no capture device matches %q", name)
	}
	return match, nil
}

// IsBluetooth reports whether a device name looks like a headset profile,
// which records at reduced quality while the headset is also playing audio.
func IsBluetooth(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range []string{"bluetooth", "airpods", "bluez", "headset", "hands-free", "handsfree"} {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
