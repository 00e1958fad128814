// Package identity supplies the host-derived fields a client sends at logon:
// the OS type tag, the machine id blob and the obfuscated private address.
package identity

import (
	"bytes"
	"crypto/sha1"
	"encoding/binary"
	"encoding/hex"
	"net"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/tuokri/SteamKit/internal/steammsg"
)

// OSType is EOSType. Values are sent as their uint32 bit pattern.
type OSType int32

const (
	OSUnknown      OSType = -1
	OSMacOSUnknown OSType = -102
	OSLinuxUnknown OSType = -203
	OSWindows10    OSType = 16
)

// Provider supplies identity fields for outgoing logon messages.
type Provider interface {
	OSType() OSType
	MachineID() []byte
}

// Static is a fixed Provider.
type Static struct {
	OS OSType
	ID []byte
}

func (s Static) OSType() OSType    { return s.OS }
func (s Static) MachineID() []byte { return s.ID }

// Host derives identity from the running machine. The machine id is computed
// once per Host.
type Host struct {
	once sync.Once
	id   []byte
}

func NewHost() *Host { return &Host{} }

func (h *Host) OSType() OSType {
	switch runtime.GOOS {
	case "linux":
		return OSLinuxUnknown
	case "darwin":
		return OSMacOSUnknown
	case "windows":
		return OSWindows10
	default:
		return OSUnknown
	}
}

func (h *Host) MachineID() []byte {
	h.once.Do(func() {
		guid := machineGUID()
		disk := diskID()
		if disk == "" {
			disk = guid
		}
		h.id = EncodeMachineID(guid, macAddress(), disk)
	})
	return h.id
}

// EncodeMachineID builds the binary KeyValues "MessageObject" holding the
// SHA-1 hex digests of the three host identifiers.
func EncodeMachineID(machineGUID, mac, disk string) []byte {
	var b bytes.Buffer
	b.WriteByte(0x00)
	writeCString(&b, "MessageObject")
	for _, kv := range [][2]string{{"BB3", machineGUID}, {"FF2", mac}, {"3B3", disk}} {
		b.WriteByte(0x01)
		writeCString(&b, kv[0])
		sum := sha1.Sum([]byte(kv[1]))
		writeCString(&b, hex.EncodeToString(sum[:]))
	}
	b.WriteByte(0x08)
	b.WriteByte(0x08)
	return b.Bytes()
}

func writeCString(b *bytes.Buffer, s string) {
	b.WriteString(s)
	b.WriteByte(0)
}

func machineGUID() string {
	for _, path := range []string{"/etc/machine-id", "/var/lib/dbus/machine-id"} {
		if raw, err := os.ReadFile(path); err == nil {
			if s := strings.TrimSpace(string(raw)); s != "" {
				return s
			}
		}
	}
	return uuid.NewString()
}

func macAddress() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return ""
	}
	for _, iface := range ifaces {
		if iface.Flags&net.FlagLoopback != 0 || len(iface.HardwareAddr) == 0 {
			continue
		}
		return iface.HardwareAddr.String()
	}
	return ""
}

func diskID() string {
	entries, err := os.ReadDir("/dev/disk/by-uuid")
	if err != nil || len(entries) == 0 {
		return ""
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names[0]
}

// IPv4 returns ip as a host-order uint32. ok is false for nil and for
// addresses that are not IPv4.
func IPv4(ip net.IP) (v uint32, ok bool) {
	v4 := ip.To4()
	if v4 == nil {
		return 0, false
	}
	return binary.BigEndian.Uint32(v4), true
}

// ObfuscateIP applies the logon private-address mask. ok is false when ip is
// not an IPv4 address.
func ObfuscateIP(ip net.IP) (uint32, bool) {
	v, ok := IPv4(ip)
	if !ok {
		return 0, false
	}
	return v ^ steammsg.PrivateIPObfuscationMask, true
}
