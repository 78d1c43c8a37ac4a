//go:build linux

package netif

import (
	"errors"

	"github.com/vishvananda/netlink"
)

func linkExists(name string) (bool, error) {
	_, err := netlink.LinkByName(name)
	if err == nil {
		return true, nil
	}
	var notFound netlink.LinkNotFoundError
	if errors.As(err, &notFound) {
		return false, nil
	}
	return false, err
}
