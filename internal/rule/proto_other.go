//go:build !linux

package rule

// protoNames is empty off Linux; numeric protocols are kept as given.
var protoNames = map[int]string{}
