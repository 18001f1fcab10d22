package helpers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"

	"github.com/cloudinary/cloudinary-go/v2"
	"github.com/cloudinary/cloudinary-go/v2/api/uploader"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	storage_go "github.com/supabase-community/storage-go"
)

const (
	EventsFolder      = "events"
	EventImagesBucket = "event-images"
	MaxImageSize      = 5 << 20
	imageTag          = "campus-events"
)

var (
	ErrImageTooLarge = errors.New("image must be 5MB or smaller")
	ErrNotAnImage    = errors.New("file is not an image")
	ErrEmptyImage    = errors.New("image is empty")
)

// ImageStore keeps event images and hands back public URLs.
type ImageStore interface {
	Upload(ctx context.Context, ownerID uuid.UUID, filename string, r io.Reader) (string, error)
	Delete(ctx context.Context, url string) error
}

// ReadImage buffers an upload, enforcing MaxImageSize and checking the
// content sniffs as an image.
func ReadImage(r io.Reader) ([]byte, *mimetype.MIME, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxImageSize+1))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read image: %v", err)
	}
	if len(data) == 0 {
		return nil, nil, ErrEmptyImage
	}
	if len(data) > MaxImageSize {
		return nil, nil, ErrImageTooLarge
	}
	mime := mimetype.Detect(data)
	if !strings.HasPrefix(mime.String(), "image/") {
		return nil, nil, fmt.Errorf("%w: detected %s", ErrNotAnImage, mime.String())
	}
	return data, mime, nil
}

func objectName(ownerID uuid.UUID, ext string) string {
	return fmt.Sprintf("%s-%s%s", ownerID, uuid.New(), ext)
}

type CloudinaryImages struct {
	cld    *cloudinary.Cloudinary
	folder string
}

func NewCloudinaryImages(cld *cloudinary.Cloudinary, folder string) *CloudinaryImages {
	if folder == "" {
		folder = EventsFolder
	}
	return &CloudinaryImages{cld: cld, folder: folder}
}

func (ci *CloudinaryImages) Upload(ctx context.Context, ownerID uuid.UUID, filename string, r io.Reader) (string, error) {
	data, _, err := ReadImage(r)
	if err != nil {
		return "", err
	}

	res, err := ci.cld.Upload.Upload(ctx, bytes.NewReader(data), uploader.UploadParams{
		Folder:   ci.folder,
		PublicID: objectName(ownerID, ""),
		Tags:     []string{imageTag},
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload image %s: %v", filename, err)
	}
	if res.Error.Message != "" {
		return "", fmt.Errorf("failed to upload image %s: %s", filename, res.Error.Message)
	}
	return res.SecureURL, nil
}

func (ci *CloudinaryImages) Delete(ctx context.Context, url string) error {
	publicID, err := publicIDFromURL(url)
	if err != nil {
		return err
	}
	res, err := ci.cld.Upload.Destroy(ctx, uploader.DestroyParams{PublicID: publicID})
	if err != nil {
		return fmt.Errorf("failed to delete image %s: %v", publicID, err)
	}
	if res.Result != "ok" && res.Result != "not found" {
		return fmt.Errorf("failed to delete image %s: %s", publicID, res.Result)
	}
	return nil
}

var versionSegment = regexp.MustCompile(`^v\d+/`)

// publicIDFromURL extracts "events/abc" from a delivery URL such as
// https://res.cloudinary.com/demo/image/upload/v1712/events/abc.jpg.
func publicIDFromURL(url string) (string, error) {
	_, rest, ok := strings.Cut(url, "/upload/")
	if !ok || rest == "" {
		return "", fmt.Errorf("not a cloudinary upload url: %s", url)
	}
	rest = versionSegment.ReplaceAllString(rest, "")
	return strings.TrimSuffix(rest, path.Ext(rest)), nil
}

type SupabaseImages struct {
	storage *storage_go.Client
	bucket  string
}

func NewSupabaseImages(storage *storage_go.Client, bucket string) *SupabaseImages {
	if bucket == "" {
		bucket = EventImagesBucket
	}
	return &SupabaseImages{storage: storage, bucket: bucket}
}

func (si *SupabaseImages) Upload(ctx context.Context, ownerID uuid.UUID, filename string, r io.Reader) (string, error) {
	data, mime, err := ReadImage(r)
	if err != nil {
		return "", err
	}

	objectPath := path.Join(ownerID.String(), objectName(ownerID, mime.Extension()))
	contentType := mime.String()
	if _, err := si.storage.UploadFile(si.bucket, objectPath, bytes.NewReader(data), storage_go.FileOptions{
		ContentType: &contentType,
	}); err != nil {
		return "", fmt.Errorf("failed to upload image %s: %v", filename, err)
	}
	return si.storage.GetPublicUrl(si.bucket, objectPath).SignedURL, nil
}

func (si *SupabaseImages) Delete(ctx context.Context, url string) error {
	marker := "/object/public/" + si.bucket + "/"
	_, objectPath, ok := strings.Cut(url, marker)
	if !ok || objectPath == "" {
		return fmt.Errorf("not a %s bucket url: %s", si.bucket, url)
	}
	if _, err := si.storage.RemoveFile(si.bucket, []string{objectPath}); err != nil {
		return fmt.Errorf("failed to delete image %s: %v", objectPath, err)
	}
	return nil
}
