//go:build !unix && !windows

package mmap

func osMapAnon(size int, opts Options) ([]byte, func([]byte) error, error) {
	return nil, nil, ErrUnsupported
}
