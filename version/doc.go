// Package version carries build information and the default User-Agent
// sent by restkit connections.
//
//	go build -ldflags "-X github.com/kbukum/restkit/version.Version=1.4.0" ./cmd/restkit
package version
