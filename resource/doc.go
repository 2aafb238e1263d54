// Package resource provides nested, parameterized handles on a REST API.
//
// A Resource is a template: a connection, a path, params, headers and an
// optional format. Descend derives children without touching the parent;
// verbs issue exactly one request each.
//
//	root, err := resource.New("http://api.example.com", resource.WithFormat(format.JSON()))
//	users, _ := root.Descend("users")
//	res, err := users.Get(ctx, resource.Param("id", "7")) // GET /users?id=7
//	if err != nil {
//	    return err // transport failure
//	}
//	v, err := res.Value() // classified status error, if any
//
// On a queued connection, Submit registers a verb and Run performs every
// submitted request concurrently.
package resource
