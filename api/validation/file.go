package validation

import (
	"bytes"
	"io"
	"mime/multipart"
)

type FileType string

const (
	FileTypeJPEG FileType = "jpeg"
	FileTypePNG  FileType = "png"
	FileTypeGIF  FileType = "gif"
	FileTypeBMP  FileType = "bmp"
)

var magicBytes = map[FileType][]byte{
	FileTypeJPEG: {0xFF, 0xD8, 0xFF},
	FileTypePNG:  {0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
	FileTypeGIF:  {0x47, 0x49, 0x46, 0x38},
	FileTypeBMP:  {0x42, 0x4D},
}

// DetectFileType sniffs the first bytes of the upload and matches them
// against known image signatures. The reader is rewound afterwards.
func DetectFileType(file multipart.File) (FileType, error) {
	buffer := make([]byte, 512)
	n, err := file.Read(buffer)
	if err != nil && err != io.EOF {
		return "", err
	}

	if _, err := file.Seek(0, 0); err != nil {
		return "", err
	}

	for fileType, signature := range magicBytes {
		if bytes.HasPrefix(buffer[:n], signature) {
			return fileType, nil
		}
	}

	return "", ErrInvalidFileType
}

// CheckUpload validates size and content of a single multipart upload.
// The extension is deliberately not trusted; only magic bytes count.
func CheckUpload(file multipart.File, header *multipart.FileHeader, maxSize int64) error {
	if header.Size > maxSize {
		return ErrFileTooLarge
	}

	if _, err := DetectFileType(file); err != nil {
		return err
	}

	return nil
}
