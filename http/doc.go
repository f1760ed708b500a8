// Package http is the public face of curly's transfer builder, for programs
// that want curly's semantics without the command line.
//
// Basic Usage:
//
//	req := http.NewRequest()
//	if err := req.SetURL("https://api.example.com/users"); err != nil {
//	    log.Fatal(err)
//	}
//	req.WithHeader("Accept", "application/json").WithTimeout(10 * time.Second)
//
//	ok, err := req.Execute(context.Background())
//	if err != nil {
//	    log.Fatal(err) // lifecycle misuse only
//	}
//	if !ok {
//	    log.Fatal(req.ErrorMessage())
//	}
//	fmt.Println(req.Response().StatusCode)
//
// Upload Example:
//
//	payload, err := http.FilePayload("./backup.tar")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	req.WithUpload("archive", payload).WithField("owner", "ops")
//
// Payloads larger than StreamThreshold are streamed from disk instead of
// being read into memory.
package http
