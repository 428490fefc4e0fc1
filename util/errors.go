package util

import "fmt"

type SeekqError struct {
	Message string
	Err     error
}

func (e *SeekqError) Error() string {
	return e.Message
}

func (e *SeekqError) Unwrap() error {
	return e.Err
}

type SchedulerClosedError struct {
	*SeekqError
}

type BlockOutOfRangeError struct {
	*SeekqError
}

type DeviceGeometryError struct {
	*SeekqError
}

func NewSchedulerClosed() error {
	return &SchedulerClosedError{&SeekqError{Message: "scheduler is closed"}}
}

func NewBlockOutOfRange(block, nblocks int) error {
	return &BlockOutOfRangeError{&SeekqError{
		Message: fmt.Sprintf("block %d out of range [0, %d)", block, nblocks),
	}}
}

func NewDeviceGeometry(format string, args ...any) error {
	return &DeviceGeometryError{&SeekqError{Message: fmt.Sprintf(format, args...)}}
}
