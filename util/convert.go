package util

import (
	"fmt"

	"github.com/vmihailenco/msgpack"
)

// ToByteSlice encodes obj and pads the result to size, typically one
// device block.
func ToByteSlice[T any](obj T, size int) ([]byte, error) {
	data, err := msgpack.Marshal(obj)
	if err != nil {
		return nil, err
	}
	if len(data) > size {
		return nil, fmt.Errorf("encoded value is %d bytes, exceeds %d", len(data), size)
	}

	res := make([]byte, size)
	copy(res, data)

	return res, nil
}

func ToStruct[T any](data []byte) (T, error) {
	var res T

	if err := msgpack.Unmarshal(data, &res); err != nil {
		return res, err
	}

	return res, nil
}
