package webhook

import "net/http"

// OKResponder answers 200 with an empty body. It is used when a configuration
// does not name a responder.
type OKResponder struct{}

// Respond implements Responder.
func (OKResponder) Respond(*Request) Response {
	return Response{StatusCode: http.StatusOK, Header: http.Header{}}
}

// AcceptedResponder answers 202 with a small JSON acknowledgement.
type AcceptedResponder struct{}

// Respond implements Responder.
func (AcceptedResponder) Respond(*Request) Response {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	return Response{
		StatusCode: http.StatusAccepted,
		Body:       []byte(`{"message":"accepted"}` + "\n"),
		Header:     h,
	}
}
