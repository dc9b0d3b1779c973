// Package netx holds small HTTP helpers shared by client components.
package netx

import (
	"context"
	"fmt"
	"io"

	"github.com/go-resty/resty/v2"
)

// plain carries no credentials; presigned URLs reject extra auth headers.
var plain = resty.New()

// Download streams the body at url into w. Any non-2xx answer is an error.
func Download(ctx context.Context, url string, w io.Writer) (int64, error) {
	resp, err := plain.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return 0, err
	}
	body := resp.RawBody()
	defer body.Close()

	if resp.IsError() {
		b, _ := io.ReadAll(io.LimitReader(body, 512))
		return 0, fmt.Errorf("download failed: %s; body: %s", resp.Status(), string(b))
	}
	return io.Copy(w, body)
}
