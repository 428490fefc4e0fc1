package device

import (
	"fmt"

	"github.com/vmihailenco/msgpack"
	"golang.org/x/sys/unix"

	"github.com/mutua/seekq/util"
)

const (
	BLOCK_SIZE = 4096

	magic = "seekq.dev"
)

// superblock occupies the first block of the backing file and records
// the device geometry so a reopened device keeps its original shape.
type superblock struct {
	Magic      string
	BlockSize  int
	BlockCount int
}

type FileDevice struct {
	fd      int
	nblocks int
}

// Open creates or opens a file-backed block device with nblocks data
// blocks. A new file is sized up front and stamped with a superblock;
// an existing file must match the requested geometry.
func Open(path string, nblocks int) (*FileDevice, error) {
	if nblocks <= 0 {
		return nil, util.NewDeviceGeometry("invalid block count %d", nblocks)
	}

	fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT, 0644)
	if err != nil {
		return nil, fmt.Errorf("error opening device %s: %v", path, err)
	}

	var stat unix.Stat_t
	if err := unix.Fstat(fd, &stat); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("error stating device %s: %v", path, err)
	}

	d := &FileDevice{fd: fd, nblocks: nblocks}
	if stat.Size == 0 {
		err = d.format()
	} else {
		err = d.validate()
	}
	if err != nil {
		unix.Close(fd)
		return nil, err
	}

	return d, nil
}

func (d *FileDevice) BlockCount() int {
	return d.nblocks
}

func (d *FileDevice) ReadBlock(block int, buf []byte) error {
	if err := d.check(block, buf); err != nil {
		return err
	}

	n, err := unix.Pread(d.fd, buf, d.offset(block))
	if err != nil {
		return fmt.Errorf("error reading block %d: %v", block, err)
	}
	if n != BLOCK_SIZE {
		return fmt.Errorf("short read on block %d: %d bytes", block, n)
	}

	return nil
}

func (d *FileDevice) WriteBlock(block int, buf []byte) error {
	if err := d.check(block, buf); err != nil {
		return err
	}

	n, err := unix.Pwrite(d.fd, buf, d.offset(block))
	if err != nil {
		return fmt.Errorf("error writing block %d: %v", block, err)
	}
	if n != BLOCK_SIZE {
		return fmt.Errorf("short write on block %d: %d bytes", block, n)
	}

	return nil
}

// Sync flushes all completed writes to stable storage.
func (d *FileDevice) Sync() error {
	return unix.Fsync(d.fd)
}

func (d *FileDevice) Close() error {
	return unix.Close(d.fd)
}

func (d *FileDevice) check(block int, buf []byte) error {
	if block < 0 || block >= d.nblocks {
		return util.NewBlockOutOfRange(block, d.nblocks)
	}
	if len(buf) != BLOCK_SIZE {
		return fmt.Errorf("buffer is %d bytes, want %d", len(buf), BLOCK_SIZE)
	}
	return nil
}

// offset skips the superblock; data block i lives at file block i+1.
func (d *FileDevice) offset(block int) int64 {
	return int64(block+1) * BLOCK_SIZE
}

func (d *FileDevice) format() error {
	sb, err := msgpack.Marshal(superblock{
		Magic:      magic,
		BlockSize:  BLOCK_SIZE,
		BlockCount: d.nblocks,
	})
	if err != nil {
		return fmt.Errorf("error encoding superblock: %v", err)
	}

	buf := make([]byte, BLOCK_SIZE)
	copy(buf, sb)
	if _, err := unix.Pwrite(d.fd, buf, 0); err != nil {
		return fmt.Errorf("error writing superblock: %v", err)
	}

	if err := unix.Ftruncate(d.fd, int64(d.nblocks+1)*BLOCK_SIZE); err != nil {
		return fmt.Errorf("error sizing device file: %v", err)
	}

	return unix.Fsync(d.fd)
}

func (d *FileDevice) validate() error {
	buf := make([]byte, BLOCK_SIZE)
	if _, err := unix.Pread(d.fd, buf, 0); err != nil {
		return fmt.Errorf("error reading superblock: %v", err)
	}

	var sb superblock
	if err := msgpack.Unmarshal(buf, &sb); err != nil {
		return fmt.Errorf("error decoding superblock: %v", err)
	}

	switch {
	case sb.Magic != magic:
		return util.NewDeviceGeometry("%q is not a seekq device", sb.Magic)
	case sb.BlockSize != BLOCK_SIZE:
		return util.NewDeviceGeometry("device has block size %d, want %d", sb.BlockSize, BLOCK_SIZE)
	case sb.BlockCount != d.nblocks:
		return util.NewDeviceGeometry("device has %d blocks, requested %d", sb.BlockCount, d.nblocks)
	}

	return nil
}
