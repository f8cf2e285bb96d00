package audiodev

// ResolveDefault returns the endpoint of snap that carried the default flag for flow and role when snap was built.
// It returns false when no endpoint carries the flag.
func ResolveDefault(snap *Snapshot, flow Flow, role Role) (Endpoint, bool) {
	if snap == nil {
		return Endpoint{}, false
	}

	for _, ep := range snap.endpoints {
		if ep.Flow == flow && ep.IsDefault(role) {
			return ep, true
		}
	}

	return Endpoint{}, false
}
