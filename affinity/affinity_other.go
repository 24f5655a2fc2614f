//go:build !linux

// File: affinity/affinity_other.go
// Author: momentics <momentics@gmail.com>

package affinity

func pinPlatform(int) error { return ErrUnsupported }

func allowedPlatform() ([]int, error) { return nil, ErrUnsupported }
