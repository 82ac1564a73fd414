package provider

import "net/http"

// HTTPDoer abstracts HTTP request execution. *resilience.Client and
// *http.Client both satisfy it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}
