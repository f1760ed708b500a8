// Package http provides a fluent builder for a single blocking HTTP transfer.
//
// A Request accumulates configuration through setters, then Execute hands the
// resolved settings to a Transport, collects the response through header and
// body hooks, and stores a Response record with transfer metadata.
//
// Basic usage:
//
//	req := http.NewRequest()
//	if err := req.SetURL("https://api.example.com/users"); err != nil {
//		return err
//	}
//	req.WithHeader("Accept", "application/json").WithTimeout(10 * time.Second)
//	ok, err := req.Execute(ctx)
//	if err != nil {
//		return err // lifecycle misuse
//	}
//	if !ok {
//		return req.Err() // transport failure
//	}
//	fmt.Println(req.Response().StatusCode, req.Response().BodyString())
//
// Configuration errors are returned by the setters and leave the request
// unchanged. Transport failures are reported through the boolean result of
// Execute together with ErrorMessage and Err.
//
// # Options
//
// Typed setters and SetRawOption share one option table. Entries are
// first-set-wins: a raw option set before execution is not replaced by the
// value derived from a typed setter.
//
// # Body precedence
//
// A non-empty raw body wins over an upload, which wins over form fields. A
// named upload is sent as multipart/form-data together with the form fields.
// Uploads larger than StreamThreshold are streamed and never rewound.
package http
