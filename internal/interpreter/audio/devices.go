// ============================================================================
// meinDENKWERK (mDW) - Dolmetscher
// ============================================================================
//
// Package:     audio
// Description: Device enumeration
// Author:      Mike Stoffels
// Created:     2026-10-19
// License:     MIT
// ============================================================================

package audio

import (
	"fmt"
	"sort"

	"github.com/gordonklaus/portaudio"

	"github.com/msto63/dolmetscher/internal/interpreter"
)

// DeviceInfo holds information about an audio device
type DeviceInfo struct {
	Handle            interpreter.DeviceHandle
	Name              string
	HostAPI           string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
	IsDefaultInput    bool
	IsDefaultOutput   bool
}

// IsInput reports whether the device can capture
func (d DeviceInfo) IsInput() bool {
	return d.MaxInputChannels > 0
}

// IsOutput reports whether the device can play
func (d DeviceInfo) IsOutput() bool {
	return d.MaxOutputChannels > 0
}

// ListDevices returns all devices known to PortAudio
func ListDevices() ([]DeviceInfo, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize PortAudio: %w", err)
	}
	defer portaudio.Terminate()

	devices, err := portaudio.Devices()
	if err != nil {
		return nil, fmt.Errorf("failed to get devices: %w", err)
	}

	var defaultIn, defaultOut string
	if d, err := portaudio.DefaultInputDevice(); err == nil && d != nil {
		defaultIn = d.Name
	}
	if d, err := portaudio.DefaultOutputDevice(); err == nil && d != nil {
		defaultOut = d.Name
	}

	out := make([]DeviceInfo, 0, len(devices))
	for _, dev := range devices {
		info := DeviceInfo{
			Handle:            interpreter.DeviceHandle(dev.Name),
			Name:              dev.Name,
			MaxInputChannels:  dev.MaxInputChannels,
			MaxOutputChannels: dev.MaxOutputChannels,
			DefaultSampleRate: dev.DefaultSampleRate,
			IsDefaultInput:    dev.Name == defaultIn && dev.MaxInputChannels > 0,
			IsDefaultOutput:   dev.Name == defaultOut && dev.MaxOutputChannels > 0,
		}
		if dev.HostApi != nil {
			info.HostAPI = dev.HostApi.Name
		}
		out = append(out, info)
	}

	return out, nil
}

// Inputs filters capture devices, default first
func Inputs(devices []DeviceInfo) []DeviceInfo {
	return filter(devices, DeviceInfo.IsInput, func(d DeviceInfo) bool { return d.IsDefaultInput })
}

// Outputs filters playback devices, default first
func Outputs(devices []DeviceInfo) []DeviceInfo {
	return filter(devices, DeviceInfo.IsOutput, func(d DeviceInfo) bool { return d.IsDefaultOutput })
}

func filter(devices []DeviceInfo, keep, isDefault func(DeviceInfo) bool) []DeviceInfo {
	var out []DeviceInfo
	for _, d := range devices {
		if keep(d) {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return isDefault(out[i]) && !isDefault(out[j])
	})
	return out
}

// Resolve picks the device to use for a stored handle: the stored handle if
// it is still present, otherwise the default route. Pass a list already
// filtered with Inputs or Outputs.
func Resolve(devices []DeviceInfo, stored interpreter.DeviceHandle) interpreter.DeviceHandle {
	if stored.IsDefault() {
		return interpreter.DefaultDevice
	}
	if _, ok := FilePath(string(stored)); ok {
		return stored
	}
	for _, d := range devices {
		if d.Handle == stored {
			return stored
		}
	}
	return interpreter.DefaultDevice
}
