package hub

import (
	"bytes"
	"encoding/binary"
	"time"

	"github.com/pkg/errors"
)

// DefaultTimeout bounds one request/response transfer on the link.
const DefaultTimeout = 20 * time.Millisecond

// PortInterface is the serial surface the driver needs. Satisfied by the
// port returned from OpenSerial and by the mock in the tests.
type PortInterface interface {
	Read(p []byte) (int, error)
	Write(p []byte) (int, error)
	ResetInputBuffer() error
	Close() error
}

// Driver speaks the hub link protocol over a serial port.
type Driver struct {
	port    PortInterface
	Timeout time.Duration
}

func NewDriver(port PortInterface) *Driver {
	return &Driver{port: port, Timeout: DefaultTimeout}
}

func (d *Driver) Close() error {
	return d.port.Close()
}

// Transfer sends one frame and waits for the matching status frame. Stale
// bytes are dropped before the write so a late reply from a previous
// request cannot be mistaken for this one.
func (d *Driver) Transfer(tx []byte) ([]byte, error) {
	if err := d.port.ResetInputBuffer(); err != nil {
		return nil, errors.Wrap(err, "reset input buffer")
	}
	if _, err := d.port.Write(tx); err != nil {
		return nil, errors.Wrap(err, "write frame")
	}
	return d.readFrame()
}

// readFrame collects bytes until a complete frame is buffered or the
// deadline passes. Garbage ahead of the header is discarded.
func (d *Driver) readFrame() ([]byte, error) {
	deadline := time.Now().Add(d.Timeout)
	buf := bytes.NewBuffer(nil)
	tmp := make([]byte, 256)

	for time.Now().Before(deadline) {
		n, err := d.port.Read(tmp)
		if err != nil {
			return nil, errors.Wrap(err, "read frame")
		}
		if n == 0 {
			// Serial read timed out with nothing new; yield briefly.
			time.Sleep(time.Millisecond)
			continue
		}
		buf.Write(tmp[:n])

		b := buf.Bytes()
		start := findPacketStart(b)
		if start < 0 || len(b) < start+7 {
			continue
		}
		bodyLen := int(b[start+5]) | int(b[start+6])<<8
		total := start + 7 + bodyLen
		if len(b) >= total {
			return b[start:total], nil
		}
	}
	return nil, errors.Errorf("response timeout, buffered: %x", buf.Bytes())
}

// status unwraps a status frame and converts a nonzero firmware error
// byte into a Go error.
func status(rx []byte) (params []byte, err error) {
	_, errCode, params, err := ParsePacket(rx)
	if err != nil {
		return nil, err
	}
	if errCode != 0 {
		return nil, errors.Errorf("device error code %02X", errCode)
	}
	return params, nil
}

// Ping checks that a device answers on the link and returns its model number.
func (d *Driver) Ping(id uint8) (uint16, error) {
	rx, err := d.Transfer(BuildPacket(id, InstPing, nil))
	if err != nil {
		return 0, err
	}
	params, err := status(rx)
	if err != nil {
		return 0, err
	}
	if len(params) < 2 {
		return 0, errors.Errorf("ping reply too short: %d bytes", len(params))
	}
	return binary.LittleEndian.Uint16(params), nil
}

// Write stores data at a register address on one device.
func (d *Driver) Write(id uint8, addr uint16, data []byte) error {
	params := make([]byte, 2+len(data))
	binary.LittleEndian.PutUint16(params, addr)
	copy(params[2:], data)

	rx, err := d.Transfer(BuildPacket(id, InstWrite, params))
	if err != nil {
		return err
	}
	_, err = status(rx)
	return err
}

// Read fetches length bytes starting at a register address.
func (d *Driver) Read(id uint8, addr uint16, length uint16) ([]byte, error) {
	params := make([]byte, 4)
	binary.LittleEndian.PutUint16(params, addr)
	binary.LittleEndian.PutUint16(params[2:], length)

	rx, err := d.Transfer(BuildPacket(id, InstRead, params))
	if err != nil {
		return nil, err
	}
	return status(rx)
}

// WriteByte writes a single-byte register.
func (d *Driver) WriteByte(id uint8, addr uint16, val uint8) error {
	return d.Write(id, addr, []byte{val})
}

// Write4Byte writes a 4-byte register.
func (d *Driver) Write4Byte(id uint8, addr uint16, val uint32) error {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, val)
	return d.Write(id, addr, buf)
}

// ReadByte reads a single-byte register.
func (d *Driver) ReadByte(id uint8, addr uint16) (uint8, error) {
	data, err := d.Read(id, addr, 1)
	if err != nil {
		return 0, err
	}
	if len(data) != 1 {
		return 0, errors.Errorf("invalid length: %d", len(data))
	}
	return data[0], nil
}

// Read4Byte reads a 4-byte register.
func (d *Driver) Read4Byte(id uint8, addr uint16) (uint32, error) {
	data, err := d.Read(id, addr, 4)
	if err != nil {
		return 0, err
	}
	if len(data) != 4 {
		return 0, errors.Errorf("invalid length: %d", len(data))
	}
	return binary.LittleEndian.Uint32(data), nil
}

// SyncWriteData is one device's payload inside a sync write.
type SyncWriteData struct {
	ID   uint8
	Data []byte
}

// SyncWrite stores the same register block on several devices with one
// broadcast frame. Broadcasts are unacknowledged, so there is no status
// frame to wait for.
func (d *Driver) SyncWrite(addr uint16, length uint16, devices []SyncWriteData) error {
	if len(devices) == 0 {
		return errors.New("sync write needs at least one device")
	}

	params := make([]byte, 0, 4+len(devices)*(1+int(length)))
	params = append(params, byte(addr&0xFF), byte(addr>>8), byte(length&0xFF), byte(length>>8))
	for _, dev := range devices {
		if len(dev.Data) != int(length) {
			return errors.Errorf("device %d: data length %d, want %d", dev.ID, len(dev.Data), length)
		}
		params = append(params, dev.ID)
		params = append(params, dev.Data...)
	}

	if _, err := d.port.Write(BuildPacket(BroadcastID, InstSyncWrite, params)); err != nil {
		return errors.Wrap(err, "write sync frame")
	}
	return nil
}

// SyncWrite4Byte broadcasts one 4-byte register value per device.
func (d *Driver) SyncWrite4Byte(addr uint16, values map[uint8]uint32) error {
	devices := make([]SyncWriteData, 0, len(values))
	for id, val := range values {
		buf := make([]byte, 4)
		binary.LittleEndian.PutUint32(buf, val)
		devices = append(devices, SyncWriteData{ID: id, Data: buf})
	}
	return d.SyncWrite(addr, 4, devices)
}
