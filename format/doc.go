// Package format encodes request bodies and decodes response bodies.
//
// A Format pairs a Codec with the MIME type it negotiates and an optional
// path suffix:
//
//	f := format.JSON()                  // Accept/Content-Type: application/json
//	f = format.XML().WithSuffix("")     // /users -> /users.xml
//
// Codecs are stateless and safe for concurrent use.
package format
