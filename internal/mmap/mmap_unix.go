//go:build unix

package mmap

import (
	"errors"
	"os"

	"golang.org/x/sys/unix"
)

func osMap(f *os.File, size int) ([]byte, func() error, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, nil, err
	}
	return data, func() error { return unix.Munmap(data) }, nil
}

var madvise = map[Advice]int{
	AdviseNormal:     unix.MADV_NORMAL,
	AdviseSequential: unix.MADV_SEQUENTIAL,
	AdviseRandom:     unix.MADV_RANDOM,
	AdviseWillNeed:   unix.MADV_WILLNEED,
}

func osAdvise(data []byte, advice Advice) error {
	flag, ok := madvise[advice]
	if !ok {
		flag = unix.MADV_NORMAL
	}
	// EINVAL means the kernel ignored the hint.
	if err := unix.Madvise(data, flag); err != nil && !errors.Is(err, unix.EINVAL) {
		return err
	}
	return nil
}
