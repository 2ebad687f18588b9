package peer

// Elect implements the RFC 6733 §5.6.4 election algorithm: when both
// sides simultaneously open a transport connection to each other, the
// connection initiated by the peer with the lexicographically larger
// Origin-Host wins, and the other side's connection is discarded.
// Returns true when localOriginHost wins the election.
func Elect(localOriginHost, remoteOriginHost string) bool {
	return localOriginHost > remoteOriginHost
}
