package rule

// paramSpec describes how one attribute is spelled on the command line.
type paramSpec struct {
	param     Param
	flag      string
	module    string
	multi     bool
	negatable bool
	target    bool
}

// canonical is the fixed order in which attributes are serialized.
var canonical = []paramSpec{
	{param: ParamSource, flag: "-s", negatable: true},
	{param: ParamDestination, flag: "-d", negatable: true},
	{param: ParamInIface, flag: "-i", negatable: true},
	{param: ParamOutIface, flag: "-o", negatable: true},
	{param: ParamProto, flag: "-p", negatable: true},
	{param: ParamSport, flag: "--sports", module: "multiport", multi: true, negatable: true},
	{param: ParamDport, flag: "--dports", module: "multiport", multi: true, negatable: true},
	{param: ParamPort, flag: "--ports", module: "multiport", multi: true, negatable: true},
	{param: ParamComment, flag: "--comment", module: "comment"},
	{param: ParamState, flag: "--state", module: "state", multi: true, negatable: true},
	{param: ParamCtState, flag: "--ctstate", module: "conntrack", multi: true, negatable: true},
	{param: ParamICMP, flag: "--icmp-type", module: "icmp", negatable: true},
	{param: ParamRejectWith, flag: "--reject-with", target: true},
	{param: ParamLogPrefix, flag: "--log-prefix", target: true},
	{param: ParamLogLevel, flag: "--log-level", target: true},
	{param: ParamToDest, flag: "--to-destination", target: true},
	{param: ParamToSource, flag: "--to-source", target: true},
	{param: ParamToPorts, flag: "--to-ports", target: true},
}

// specFor returns the serialization details of p.
func specFor(p Param) (paramSpec, bool) {
	for _, s := range canonical {
		if s.param == p {
			return s, true
		}
	}
	return paramSpec{}, false
}

// flagParams maps every flag spelling accepted on parse to its attribute.
var flagParams = map[string]Param{
	"-s":                  ParamSource,
	"--source":            ParamSource,
	"--src":               ParamSource,
	"-d":                  ParamDestination,
	"--destination":       ParamDestination,
	"--dst":               ParamDestination,
	"-i":                  ParamInIface,
	"--in-interface":      ParamInIface,
	"-o":                  ParamOutIface,
	"--out-interface":     ParamOutIface,
	"-p":                  ParamProto,
	"--protocol":          ParamProto,
	"--sport":             ParamSport,
	"--source-port":       ParamSport,
	"--sports":            ParamSport,
	"--source-ports":      ParamSport,
	"--dport":             ParamDport,
	"--destination-port":  ParamDport,
	"--dports":            ParamDport,
	"--destination-ports": ParamDport,
	"--ports":             ParamPort,
	"--state":             ParamState,
	"--ctstate":           ParamCtState,
	"--icmp-type":         ParamICMP,
	"--icmpv6-type":       ParamICMP,
	"--reject-with":       ParamRejectWith,
	"--log-prefix":        ParamLogPrefix,
	"--log-level":         ParamLogLevel,
	"--to-destination":    ParamToDest,
	"--to-source":         ParamToSource,
	"--to-ports":          ParamToPorts,
}

// knownModules are match modules whose flags the codec understands. Loading
// them carries no meaning of its own.
var knownModules = map[string]bool{
	"tcp":       true,
	"udp":       true,
	"multiport": true,
	"comment":   true,
	"state":     true,
	"conntrack": true,
	"icmp":      true,
	"icmp6":     true,
}
