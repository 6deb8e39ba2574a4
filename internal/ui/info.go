package ui

import (
	"strings"

	"github.com/sweeney/tank-controller/internal/keypad"
)

// SeeDeviceAddress shows the network address until Accept or Cancel. The
// MAC is shown without separators so it fits one line.
type SeeDeviceAddress struct {
	base
}

// NewSeeDeviceAddress creates the address screen.
func NewSeeDeviceAddress(h Host) *SeeDeviceAddress {
	return &SeeDeviceAddress{base{host: h}}
}

func (s *SeeDeviceAddress) Name() string   { return "SeeDeviceAddress" }
func (s *SeeDeviceAddress) Prompt() string { return "Device address" }

func (s *SeeDeviceAddress) Start() {
	info := s.host.Info()
	ip := info.IP
	if ip == "" {
		ip = "no network"
	}
	s.show(ip, strings.ReplaceAll(info.MAC, ":", ""))
}

func (s *SeeDeviceAddress) HandleKey(k keypad.Key) {
	leave(s.host, k)
}

// SeeVersion shows the software version until Accept or Cancel.
type SeeVersion struct {
	base
}

// NewSeeVersion creates the version screen.
func NewSeeVersion(h Host) *SeeVersion {
	return &SeeVersion{base{host: h}}
}

func (s *SeeVersion) Name() string   { return "SeeVersion" }
func (s *SeeVersion) Prompt() string { return "Software version" }

func (s *SeeVersion) Start() {
	s.show(s.Prompt(), s.host.Info().Version)
}

func (s *SeeVersion) HandleKey(k keypad.Key) {
	leave(s.host, k)
}

func leave(h Host, k keypad.Key) {
	if k == keypad.Accept || k == keypad.Cancel {
		h.RequestTransition(NewMainMenu(h))
	}
}
