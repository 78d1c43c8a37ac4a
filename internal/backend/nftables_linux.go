//go:build linux

package backend

import (
	"github.com/google/nftables"
)

// nfTablesAvailable reports whether the nf_tables netlink subsystem answers
// a table listing. It fails without CAP_NET_ADMIN, in which case the
// nf_tables based tools could not apply mutations either.
func nfTablesAvailable() bool {
	conn, err := nftables.New()
	if err != nil {
		return false
	}
	defer conn.CloseLasting()
	_, err = conn.ListTablesOfFamily(nftables.TableFamilyIPv4)
	return err == nil
}
