//go:build !linux

package backend

func nfTablesAvailable() bool { return false }
