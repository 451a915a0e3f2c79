package domain

import (
	"encoding/base64"
	"fmt"
)

// Image is an optional binary attachment sent along with a transformation request.
type Image struct {
	Name        string
	ContentType string
	Data        []byte
}

// DataURL encodes the image the way a browser FileReader would.
func (i Image) DataURL() string {
	contentType := i.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(i.Data))
}

// TransformationRequest is built by the Panel from user input. It is never persisted.
type TransformationRequest struct {
	Prompt string
	Code   string
	Image  *Image
}

// HasImage reports whether the request carries an attachment.
func (r TransformationRequest) HasImage() bool {
	return r.Image != nil
}

// TransformationResult is a successful reply from the transformation service.
type TransformationResult struct {
	Code string `json:"code"`
}
