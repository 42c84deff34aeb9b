package types

// Envelope is the flat response body shared by every endpoint. Success and
// soft failures both travel over HTTP 200 and are told apart by IsError;
// payload fields are merged alongside these at the top level.
type Envelope struct {
	Status  int    `json:"status"`
	IsError bool   `json:"is_error"`
	Message string `json:"message,omitempty"`
}
