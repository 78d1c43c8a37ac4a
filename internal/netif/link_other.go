//go:build !linux

package netif

import (
	"net"
)

func linkExists(name string) (bool, error) {
	_, err := net.InterfaceByName(name)
	return err == nil, nil
}
