package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// readUpload returns the bytes and name of the multipart "file" field.
// ok is false when the request carries no file.
func readUpload(c *gin.Context, maxBytes int64) (data []byte, name string, ok bool, err error) {
	header, err := c.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, "", false, nil
	}
	if err != nil {
		return nil, "", false, fmt.Errorf("read upload: %w", err)
	}
	if header.Size > maxBytes {
		return nil, header.Filename, true, fmt.Errorf("upload %s is %d bytes, limit is %d", header.Filename, header.Size, maxBytes)
	}

	f, err := header.Open()
	if err != nil {
		return nil, header.Filename, true, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err = io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return nil, header.Filename, true, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > maxBytes {
		return nil, header.Filename, true, fmt.Errorf("upload %s exceeds %d bytes", header.Filename, maxBytes)
	}
	return data, header.Filename, true, nil
}
