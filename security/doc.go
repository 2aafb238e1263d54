// Package security holds the TLS options a restkit connection passes to
// its transport.
//
//	conn, err := httpclient.NewConnection("https://api.example.com",
//	    httpclient.WithTLS(&security.TLSConfig{CAFile: "/etc/ssl/internal-ca.pem"}),
//	)
//
// Changing the options of a live connection (Connection.SetTLS) drops every
// cached network client before the next request.
package security
