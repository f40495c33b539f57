//go:build !unix

package dispatch

func isCrossDevice(error) bool { return false }
