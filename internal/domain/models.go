package domain

import "io"

// ImageEntry is one source image together with whether a mask has been saved
// for it. HasMask is computed on every listing.
type ImageEntry struct {
	Filename string `json:"filename"`
	HasMask  bool   `json:"has_mask"`
}

type ImageList struct {
	Images []ImageEntry `json:"images"`
	Total  int          `json:"total"`
}

type SaveMaskRequest struct {
	Filename string `json:"filename"`
	MaskData string `json:"mask_data"`
}

// UploadFile is a single multipart part handed to the service.
type UploadFile struct {
	Filename    string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

type UploadResult struct {
	UploadedFiles []string `json:"uploaded_files"`
	Count         int      `json:"count"`
}
