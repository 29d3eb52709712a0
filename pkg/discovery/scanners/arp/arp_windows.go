//go:build windows

package arp

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"net"
	"unsafe"

	"github.com/ramonvermeulen/whosthere/pkg/discovery"
	"golang.org/x/sys/windows"
)

// Windows API definitions for GetIpNetTable.
// https://learn.microsoft.com/en-us/windows/win32/api/iphlpapi/nf-iphlpapi-getipnettable

const maxLenPhysAddr = 8

// mibIPNetRow mirrors MIB_IPNETROW: dwIndex, dwPhysAddrLen, bPhysAddr[8],
// dwAddr, dwType - 24 bytes total, no padding on 4-byte aligned fields.
type mibIPNetRow struct {
	Index       uint32
	PhysAddrLen uint32
	PhysAddr    [maxLenPhysAddr]byte
	Addr        uint32
	Type        uint32
}

var (
	modiphlpapi       = windows.NewLazySystemDLL("iphlpapi.dll")
	procGetIPNetTable = modiphlpapi.NewProc("GetIpNetTable")
)

// readWindowsARPCache retrieves ARP entries using the Windows IP Helper API.
func (s *Scanner) readWindowsARPCache(ctx context.Context, out chan<- *discovery.Device) error {
	entries, err := s.getIPNetTable(ctx)
	if err != nil {
		s.logger.Log(ctx, slog.LevelDebug, "arp: failed to get windows arp table", "error", err)
		return err
	}
	return s.emitARPEntries(ctx, out, entries)
}

// getIPNetTable calls GetIpNetTable and converts the result to Entry.
func (s *Scanner) getIPNetTable(ctx context.Context) ([]Entry, error) {
	var size uint32
	procGetIPNetTable.Call(0, uintptr(unsafe.Pointer(&size)), 0)

	if size == 0 {
		size = 15000
	}

	buf := make([]byte, size)
	r1, _, _ := procGetIPNetTable.Call(
		uintptr(unsafe.Pointer(&buf[0])),
		uintptr(unsafe.Pointer(&size)),
		0, // sort
	)

	if r1 != 0 {
		const errInsufficientBuffer = 122
		if r1 != errInsufficientBuffer {
			return nil, fmt.Errorf("GetIpNetTable failed with error code %d", r1)
		}
		buf = make([]byte, size)
		r1, _, _ = procGetIPNetTable.Call(
			uintptr(unsafe.Pointer(&buf[0])),
			uintptr(unsafe.Pointer(&size)),
			0,
		)
		if r1 != 0 {
			return nil, fmt.Errorf("GetIpNetTable failed with error code %d", r1)
		}
	}

	numEntries := *(*uint32)(unsafe.Pointer(&buf[0]))
	const rowSize = uintptr(24)
	startPtr := uintptr(unsafe.Pointer(&buf[0])) + 4

	var entries []Entry
	for i := uint32(0); i < numEntries; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		row := (*mibIPNetRow)(unsafe.Pointer(startPtr + uintptr(i)*rowSize))

		if int(row.Index) != s.iface.Interface.Index {
			continue
		}
		// Type 2 is "invalid" (deleted entry).
		if row.Type == 2 {
			continue
		}
		if row.PhysAddrLen > maxLenPhysAddr {
			continue
		}

		ipBytes := make([]byte, 4)
		binary.LittleEndian.PutUint32(ipBytes, row.Addr)

		mac := make(net.HardwareAddr, row.PhysAddrLen)
		copy(mac, row.PhysAddr[:row.PhysAddrLen])

		entries = append(entries, Entry{
			IP:            net.IP(ipBytes),
			MAC:           mac,
			InterfaceName: s.iface.Interface.Name,
		})
	}

	return entries, nil
}
