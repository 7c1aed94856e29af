package mock

import (
	"io/ioutil"
	"net/http"
	"strings"
)

// HTTPClient is mock of adaptor.HTTPClient. It returns RespCode and RespBody for
// every request and keeps request bodies.
type HTTPClient struct {
	Requests []*http.Request
	Bodies   [][]byte
	RespCode int
	RespBody string
}

func (x *HTTPClient) Do(req *http.Request) (*http.Response, error) {
	x.Requests = append(x.Requests, req)
	if req.Body != nil {
		raw, err := ioutil.ReadAll(req.Body)
		if err != nil {
			return nil, err
		}
		x.Bodies = append(x.Bodies, raw)
	}

	return &http.Response{
		StatusCode: x.RespCode,
		Body:       ioutil.NopCloser(strings.NewReader(x.RespBody)),
	}, nil
}
