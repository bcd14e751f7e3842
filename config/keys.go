// Package config holds session configuration: the well-known configuration
// and info key tables, the Config structure, and a thread-safe notifier
// giving live read/merge access to a running session's configuration.
package config

// Well-known configuration keys accepted in a session configuration
// property map.
const (
	// ModeKey selects the library mode: "peer" or "client". Default "peer".
	ModeKey = "mode"

	// ConnectKey lists locators of peers to connect to
	// (e.g. "tcp/10.10.10.10:7447"). Multiple values accepted.
	ConnectKey = "connect/endpoints"

	// ListenKey lists locators to listen on. Multiple values accepted.
	ListenKey = "listen/endpoints"

	// UserKey is the user name used for authentication.
	UserKey = "transport/auth/usrpwd/user"

	// PasswordKey is the password used for authentication.
	PasswordKey = "transport/auth/usrpwd/password"

	// MulticastScoutingKey toggles multicast scouting: "true" or "false".
	// Default "true".
	MulticastScoutingKey = "scouting/multicast/enabled"

	// MulticastInterfaceKey is the network interface used for multicast
	// scouting: "auto", an IP address or an interface name. Default "auto".
	MulticastInterfaceKey = "scouting/multicast/interface"

	// MulticastAddressKey is the multicast address and port used for
	// scouting. Default "224.0.0.224:7447".
	MulticastAddressKey = "scouting/multicast/address"

	// ScoutingTimeoutKey is the period in seconds dedicated to scouting a
	// router before failing, in client mode. Default "3.0".
	ScoutingTimeoutKey = "scouting/timeout"

	// ScoutingDelayKey is the period in seconds dedicated to scouting
	// remote peers before doing anything else, in peer mode. Default "0.2".
	ScoutingDelayKey = "scouting/delay"

	// AddTimestampKey toggles timestamping of data messages: "true" or
	// "false". Default "false".
	AddTimestampKey = "add_timestamp"

	// LocalRoutingKey toggles whether local writes/queries reach local
	// subscribers/queryables.
	LocalRoutingKey = "local_routing"
)

// Numeric identifiers of the properties returned by a session's info.
const (
	InfoPIDKey       uint64 = 0x00
	InfoPeerPIDKey   uint64 = 0x01
	InfoRouterPIDKey uint64 = 0x02
)

// InfoKeyNames maps info key identifiers to the string keys used in the
// session info map. Read-only.
var InfoKeyNames = map[uint64]string{
	InfoPIDKey:       "pid",
	InfoPeerPIDKey:   "peer_pid",
	InfoRouterPIDKey: "router_pid",
}
